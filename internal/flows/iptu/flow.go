// Package iptu implements the IPTU payment workflow: a multi-turn
// conversation that walks a citizen from property inscription to emitted
// DARM payment slips, talking to the municipal tax service through a
// gateway facade.
package iptu

import (
	"context"
	"log/slog"

	"github.com/lucasmbraga/taxflow/internal/intercept"
	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/internal/runtime"
	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

// Graph node names, in step order.
const (
	nodeCollectProperty    = "collect_property"
	nodeChooseYear         = "choose_year"
	nodeFetchGuides        = "fetch_guides"
	nodeChooseGuide        = "choose_guide"
	nodeFetchInstallments  = "fetch_installments"
	nodeChooseInstallments = "choose_installments"
	nodeChooseSlipFormat   = "choose_slip_format"
	nodeConfirm            = "confirm"
	nodeGenerateSlips      = "generate_slips"
	nodeAskContinue        = "ask_continue"
)

// maxEmptyYearAttempts is how many consecutive empty guide listings a
// property gets before the workflow assumes a mistyped inscription and
// re-asks for the property.
const maxEmptyYearAttempts = 3

// Flow holds the dependencies of the IPTU workflow steps.
type Flow struct {
	gateway  ports.TaxGateway
	observer *intercept.Observer
	logger   *slog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithObserver sets the error observer wrapping remote calls.
func WithObserver(o *intercept.Observer) Option {
	return func(f *Flow) { f.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) { f.logger = logger }
}

// New creates the workflow over the given tax gateway.
func New(gateway ports.TaxGateway, opts ...Option) *Flow {
	f := &Flow{
		gateway: gateway,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.observer == nil {
		f.observer = intercept.New("iptu_flow", intercept.WithLogger(f.logger))
	}
	return f
}

// Graph wires the steps into the runnable workflow graph. Every step is
// registered behind the error observer, so failures raised by step logic
// itself, not only by gateway calls, reach the sink before propagating.
func (f *Flow) Graph() *runtime.Graph {
	to := func(next string) runtime.Router {
		return func(*domain.State) string { return next }
	}
	g := runtime.NewGraph(nodeCollectProperty, runtime.WithLogger(f.logger))
	g.Add(nodeCollectProperty, f.step(nodeCollectProperty, f.stepCollectProperty), to(nodeChooseYear))
	g.Add(nodeChooseYear, f.step(nodeChooseYear, f.stepChooseYear), to(nodeFetchGuides))
	g.Add(nodeFetchGuides, f.step(nodeFetchGuides, f.stepFetchGuides), to(nodeChooseGuide))
	g.Add(nodeChooseGuide, f.step(nodeChooseGuide, f.stepChooseGuide), to(nodeFetchInstallments))
	g.Add(nodeFetchInstallments, f.step(nodeFetchInstallments, f.stepFetchInstallments), to(nodeChooseInstallments))
	g.Add(nodeChooseInstallments, f.step(nodeChooseInstallments, f.stepChooseInstallments), to(nodeChooseSlipFormat))
	g.Add(nodeChooseSlipFormat, f.step(nodeChooseSlipFormat, f.stepChooseSlipFormat), to(nodeConfirm))
	g.Add(nodeConfirm, f.step(nodeConfirm, f.stepConfirm), to(nodeGenerateSlips))
	g.Add(nodeGenerateSlips, f.step(nodeGenerateSlips, f.stepGenerateSlips), to(nodeAskContinue))
	g.Add(nodeAskContinue, f.step(nodeAskContinue, f.stepAskContinue), routeContinue)
	return g
}

// step wraps a node's function with the observer. Errors already reported
// by a nested gateway wrapper pass through without a second report.
func (f *Flow) step(name string, fn runtime.Step) runtime.Step {
	return func(ctx context.Context, st *domain.State) error {
		return f.observer.Run(ctx, st.SessionID, name, func(ctx context.Context) error {
			return fn(ctx, st)
		})
	}
}

// routeContinue sends the flow back to an earlier step after the user
// answers the post-generation question, or ends the cycle.
func routeContinue(st *domain.State) string {
	switch {
	case st.Internal.WantsMoreInstallments:
		return nodeChooseInstallments
	case st.Internal.WantsOtherGuide:
		return nodeChooseGuide
	case st.Internal.WantsOtherProperty:
		return nodeCollectProperty
	}
	return runtime.End
}

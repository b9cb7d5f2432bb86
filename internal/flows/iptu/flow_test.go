package iptu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmbraga/taxflow/internal/gateway/fake"
	"github.com/lucasmbraga/taxflow/internal/intercept"
	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

type sinkReporter struct {
	mu      sync.Mutex
	reports []ports.ErrorReport
}

func (s *sinkReporter) Report(ctx context.Context, rep ports.ErrorReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, rep)
	return nil
}

func (s *sinkReporter) all() []ports.ErrorReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.ErrorReport(nil), s.reports...)
}

// brokenGateway fails the guide listing with an error outside the gateway
// taxonomy, the kind a step cannot translate into a prompt.
type brokenGateway struct {
	*fake.Gateway
}

func (g *brokenGateway) ListGuides(ctx context.Context, propertyID string, year int) (*domain.GuideSet, error) {
	return nil, errors.New("resposta inesperada do serviço")
}

func observedFlow(t *testing.T) (*Flow, *sinkReporter, *intercept.Observer) {
	t.Helper()
	sink := &sinkReporter{}
	obs := intercept.New("iptu_flow", intercept.WithReporter(sink))
	f := New(&brokenGateway{Gateway: fake.New()}, WithObserver(obs))
	return f, sink, obs
}

func TestStepFailureReportedOnceAndPropagated(t *testing.T) {
	f, sink, obs := observedFlow(t)
	g := f.Graph()

	st := domain.NewState("sess-1", time.Now())
	st.Data.PropertyID = "12345678"
	st.Data.Year = 2025

	err := g.Run(context.Background(), st)
	obs.Flush()

	require.Error(t, err)
	assert.ErrorContains(t, err, "list guides")

	// The gateway wrapper reported; the step wrapper saw the mark and let
	// the error through without a second report.
	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "iptu_flow", reports[0].Component)
	assert.Equal(t, "generic", reports[0].ErrorType)
	assert.Equal(t, "list_guides", reports[0].Tags["operation"])
	assert.Equal(t, "sess-1", reports[0].SessionID)
}

func TestStepRaisedErrorReachesSink(t *testing.T) {
	f, sink, obs := observedFlow(t)

	// A state that lost its guide listing while a guide choice is pending
	// trips the step's own invariant, with no gateway call involved.
	wrapped := f.step(nodeChooseGuide, f.stepChooseGuide)
	st := domain.NewState("sess-1", time.Now())

	err := wrapped(context.Background(), st)
	obs.Flush()

	require.Error(t, err)
	assert.ErrorContains(t, err, "guide list missing")

	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "generic", reports[0].ErrorType)
	assert.Equal(t, nodeChooseGuide, reports[0].Tags["operation"])
}

func TestFullResetKeepsOnlyPropertyID(t *testing.T) {
	st := domain.NewState("sess-1", time.Now())
	st.Data.PropertyID = "12345678"
	st.Data.Property = &domain.PropertyInfo{ID: "12345678", Address: "RUA EXEMPLO, 123"}
	st.Data.Year = 2025
	st.Data.ChosenGuide = "00"
	st.Internal.DataConfirmed = true
	st.Ask("confirma?", SchemaConfirm)

	ResetFull(st, true)
	assert.Equal(t, domain.Data{PropertyID: "12345678"}, st.Data)
	assert.Equal(t, domain.Internal{}, st.Internal)
	assert.Nil(t, st.Prompt)
}

func TestFullResetWithoutProperty(t *testing.T) {
	st := domain.NewState("sess-1", time.Now())
	st.Data.PropertyID = "12345678"
	st.Data.Property = &domain.PropertyInfo{ID: "12345678"}

	ResetFull(st, false)
	assert.Equal(t, domain.Data{}, st.Data)
}

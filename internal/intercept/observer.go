// Package intercept wraps workflow operations with error observation.
// Errors matching the configured allow-list are shipped to an external sink
// as structured reports, then returned to the caller unchanged. Wrappers
// nest: a failure already reported by an inner Run or Do passes through
// outer observers without a second report. The sink is strictly
// best-effort: delivery failures are logged and never propagate.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/internal/metrics"
	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

// Class names an error category for reporting and allow-listing.
type Class struct {
	Name    string
	Matches func(error) bool
}

var (
	// ClassAuthentication covers upstream credential rejections.
	ClassAuthentication = Class{
		Name:    "authentication_error",
		Matches: func(err error) bool { return errors.Is(err, domain.ErrAuthentication) },
	}

	// ClassUnavailable covers transient upstream failures.
	ClassUnavailable = Class{
		Name:    "service_unavailable",
		Matches: func(err error) bool { return errors.Is(err, domain.ErrServiceUnavailable) },
	}

	// ClassGeneric matches any error. Keep it last in an allow-list.
	ClassGeneric = Class{
		Name:    "generic",
		Matches: func(err error) bool { return true },
	}
)

const defaultReportTimeout = 10 * time.Second

// Observer wraps operations of one component.
type Observer struct {
	component string
	reporter  ports.ErrorReporter
	allowed   []Class
	tags      map[string]string
	timeout   time.Duration
	logger    *slog.Logger

	wg sync.WaitGroup
}

// Option configures the Observer.
type Option func(*Observer)

// WithReporter sets the error sink. Without one, reports are dropped.
func WithReporter(r ports.ErrorReporter) Option {
	return func(o *Observer) { o.reporter = r }
}

// WithAllowed replaces the allow-list of reportable error classes.
func WithAllowed(classes ...Class) Option {
	return func(o *Observer) { o.allowed = classes }
}

// WithTags sets static tags attached to every report.
func WithTags(tags map[string]string) Option {
	return func(o *Observer) { o.tags = tags }
}

// WithTimeout overrides the report delivery timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Observer) { o.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Observer) { o.logger = logger }
}

// New creates an Observer for a component. The default allow-list reports
// the gateway taxonomy plus everything else as generic.
func New(component string, opts ...Option) *Observer {
	o := &Observer{
		component: component,
		allowed:   []Class{ClassAuthentication, ClassUnavailable, ClassGeneric},
		timeout:   defaultReportTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type scopeKey struct{}

// reportScope remembers the failures already reported within one wrapped
// call tree, so nested observers ship each failure exactly once while the
// error values themselves stay untouched.
type reportScope struct {
	mu     sync.Mutex
	errs   []error
	panics []any
}

// withScope reuses the scope of an enclosing observer, or starts one.
func withScope(ctx context.Context) (context.Context, *reportScope) {
	if sc, ok := ctx.Value(scopeKey{}).(*reportScope); ok {
		return ctx, sc
	}
	sc := &reportScope{}
	return context.WithValue(ctx, scopeKey{}, sc), sc
}

// sawError reports whether err, or anything err wraps, was already shipped.
func (s *reportScope) sawError(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.errs {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (s *reportScope) addError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// sawPanic reports whether the recovered value was already shipped.
// Uncomparable values are never deduplicated.
func (s *reportScope) sawPanic(r any) bool {
	if r == nil || !reflect.TypeOf(r).Comparable() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.panics {
		if p == r {
			return true
		}
	}
	return false
}

func (s *reportScope) addPanic(r any) {
	if r == nil || !reflect.TypeOf(r).Comparable() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics = append(s.panics, r)
}

// Run executes fn, reporting any allow-listed error exactly once before
// returning it unchanged. Panics are reported and re-raised.
func (o *Observer) Run(ctx context.Context, sessionID, op string, fn func(context.Context) error) error {
	ctx, sc := withScope(ctx)
	defer o.recovered(ctx, sc, sessionID, op)

	err := fn(ctx)
	if err != nil {
		o.observe(ctx, sc, sessionID, op, err)
	}
	return err
}

// Do executes fn and returns its result, reporting any allow-listed error
// exactly once before returning it unchanged. Panics are reported and
// re-raised.
func Do[T any](ctx context.Context, o *Observer, sessionID, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, sc := withScope(ctx)
	defer o.recovered(ctx, sc, sessionID, op)

	out, err := fn(ctx)
	if err != nil {
		o.observe(ctx, sc, sessionID, op, err)
	}
	return out, err
}

func (o *Observer) recovered(ctx context.Context, sc *reportScope, sessionID, op string) {
	r := recover()
	if r == nil {
		return
	}
	if sc.sawPanic(r) {
		panic(r)
	}
	sc.addPanic(r)
	o.dispatch(ctx, ports.ErrorReport{
		ID:        uuid.NewString(),
		Component: o.component,
		ErrorType: "panic",
		Message:   fmt.Sprint(r),
		Stack:     string(debug.Stack()),
		SessionID: sessionID,
		Tags:      o.mergedTags(op),
		At:        time.Now().UTC(),
	})
	panic(r)
}

// observe classifies the error against the allow-list and dispatches one
// report when a class matches and no nested observer reported it already.
func (o *Observer) observe(ctx context.Context, sc *reportScope, sessionID, op string, err error) {
	if sc.sawError(err) {
		return
	}

	var class *Class
	for i := range o.allowed {
		if o.allowed[i].Matches(err) {
			class = &o.allowed[i]
			break
		}
	}
	if class == nil {
		return
	}

	sc.addError(err)
	o.dispatch(ctx, ports.ErrorReport{
		ID:        uuid.NewString(),
		Component: o.component,
		ErrorType: class.Name,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		SessionID: sessionID,
		Tags:      o.mergedTags(op),
		At:        time.Now().UTC(),
	})
}

func (o *Observer) mergedTags(op string) map[string]string {
	tags := make(map[string]string, len(o.tags)+1)
	for k, v := range o.tags {
		tags[k] = v
	}
	if op != "" {
		tags["operation"] = op
	}
	return tags
}

// dispatch ships the report in the background. Delivery outlives the turn's
// context but not the report timeout.
func (o *Observer) dispatch(ctx context.Context, rep ports.ErrorReport) {
	if o.reporter == nil {
		return
	}

	metrics.ErrorReportsTotal.Inc()

	base := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		sendCtx, cancel := context.WithTimeout(base, o.timeout)
		defer cancel()
		if err := o.reporter.Report(sendCtx, rep); err != nil {
			o.logger.Warn("error report delivery failed",
				"component", rep.Component,
				"error_type", rep.ErrorType,
				"err", err,
			)
		}
	}()
}

// Flush waits for in-flight reports. Call it on shutdown and in tests.
func (o *Observer) Flush() {
	o.wg.Wait()
}

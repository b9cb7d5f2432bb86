package taxflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/lucasmbraga/taxflow/internal/flows/iptu"
	"github.com/lucasmbraga/taxflow/internal/gateway/fake"
	"github.com/lucasmbraga/taxflow/internal/intercept"
	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/internal/metrics"
	"github.com/lucasmbraga/taxflow/internal/runtime"
	"github.com/lucasmbraga/taxflow/pkg/adapters/memory"
	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
	"github.com/lucasmbraga/taxflow/pkg/session"
)

// Engine runs the IPTU payment workflow: one Execute call per
// conversational turn, with session state persisted between calls.
type Engine struct {
	gateway  ports.TaxGateway
	store    ports.StateStore
	locker   ports.DistributedLocker
	reporter ports.ErrorReporter
	logger   *slog.Logger
	now      func() time.Time

	sessions *session.Manager
	observer *intercept.Observer
	graph    *runtime.Graph
}

// Option configures the Engine.
type Option func(*Engine)

// WithGateway sets the municipal tax service gateway. The default is the
// in-process fake, which is only useful for demos and tests.
func WithGateway(g ports.TaxGateway) Option {
	return func(e *Engine) { e.gateway = g }
}

// WithStore sets the session persistence backend.
func WithStore(s ports.StateStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithLocker enables distributed session locking across replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithReporter ships classified remote-call failures to an external sink.
func WithReporter(r ports.ErrorReporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New assembles the engine. Without options it runs fully in-process:
// memory store, fake gateway, no distributed lock.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gateway == nil {
		e.gateway = fake.New()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	sessionOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithClock(func() time.Time { return e.now() }),
	}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	observerOpts := []intercept.Option{intercept.WithLogger(e.logger)}
	if e.reporter != nil {
		observerOpts = append(observerOpts, intercept.WithReporter(e.reporter))
	}
	e.observer = intercept.New("iptu_flow", observerOpts...)

	flow := iptu.New(e.gateway,
		iptu.WithObserver(e.observer),
		iptu.WithLogger(e.logger),
	)
	e.graph = flow.Graph()
	return e
}

// Execute runs one turn. An empty sessionID starts a fresh session with a
// generated id; an empty payload re-delivers the pending prompt, if any.
// The returned state carries the prompt the caller must answer next, or a
// completed status when the workflow finished.
func (e *Engine) Execute(ctx context.Context, sessionID string, payload map[string]any) (*domain.State, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	start := e.now()

	var st *domain.State
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		st, err = e.loadOrCreate(ctx, sessionID)
		if err != nil {
			return err
		}
		return e.turn(ctx, st, payload)
	})

	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TurnsTotal.WithLabelValues(string(domain.StatusError)).Inc()
		return st, err
	}
	metrics.TurnsTotal.WithLabelValues(string(st.Status)).Inc()
	return st, nil
}

func (e *Engine) loadOrCreate(ctx context.Context, sessionID string) (*domain.State, error) {
	st, err := e.store.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewState(sessionID, e.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return st, nil
}

// turn applies a payload to a loaded state, runs the graph and persists
// the outcome. The raw payload is transient and never reaches the store.
func (e *Engine) turn(ctx context.Context, st *domain.State, payload map[string]any) error {
	// A finished session receiving a new turn starts a clean conversation.
	if st.Status == domain.StatusCompleted {
		iptu.ResetFull(st, false)
		st.Status = domain.StatusProgress
	}

	st.Payload = payload
	if len(payload) > 0 {
		st.Prompt = nil
		iptu.Backtrack(st)
	}

	runErr := e.graph.Run(ctx, st)
	if runErr != nil {
		st.Status = domain.StatusError
	} else if st.HasPrompt() {
		st.Status = domain.StatusProgress
	} else {
		st.Status = domain.StatusCompleted
	}

	st.Payload = nil
	st.Touch(e.now())
	if err := e.store.Save(ctx, st.SessionID, st); err != nil {
		if runErr != nil {
			e.logger.Error("persist after failed turn", "session_id", st.SessionID, "err", err)
			return runErr
		}
		return fmt.Errorf("persist session %s: %w", st.SessionID, err)
	}
	return runErr
}

// Session loads a session snapshot without running a turn.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.State, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Delete removes a session.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// List returns the known session ids, most recently updated first.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Gateway exposes the configured tax gateway, letting surfaces serve
// slip documents without going through a workflow turn.
func (e *Engine) Gateway() ports.TaxGateway {
	return e.gateway
}

// Store exposes the configured session store.
func (e *Engine) Store() ports.StateStore {
	return e.store
}

// Flush waits for in-flight error reports to be delivered. Call on
// shutdown.
func (e *Engine) Flush() {
	e.observer.Flush()
}

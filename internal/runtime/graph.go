// Package runtime drives a statically wired step graph one turn at a time.
// Each turn starts at the entry node and advances until a step records a
// pending prompt, a router reaches the terminal, or a step fails.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/internal/metrics"
	"github.com/lucasmbraga/taxflow/pkg/domain"
)

// End is the terminal node name. Routers return it to finish the turn.
const End = "end"

// maxHops guards against wiring mistakes producing infinite routing loops.
const maxHops = 64

// Step mutates the session state: validating payload, fetching remote data
// or recording a prompt.
type Step func(ctx context.Context, st *domain.State) error

// Router picks the next node. Routers are pure functions of the state's
// durable namespaces and MUST return End while a prompt is pending.
type Router func(st *domain.State) string

type node struct {
	step  Step
	route Router
}

// Graph is a statically wired workflow.
type Graph struct {
	entry  string
	nodes  map[string]node
	logger *slog.Logger
}

// Option configures the Graph.
type Option func(*Graph)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// NewGraph creates an empty graph with the given entry node name.
func NewGraph(entry string, opts ...Option) *Graph {
	g := &Graph{
		entry:  entry,
		nodes:  make(map[string]node),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Add registers a node. A nil router means the node always routes to End.
func (g *Graph) Add(name string, step Step, route Router) *Graph {
	if route == nil {
		route = func(*domain.State) string { return End }
	}
	g.nodes[name] = node{step: step, route: route}
	return g
}

// Run executes one turn over the state, starting from the entry node.
// The halt-on-pending invariant is enforced here regardless of router
// behavior: once a prompt is set, no further step runs.
func (g *Graph) Run(ctx context.Context, st *domain.State) error {
	current := g.entry
	for hops := 0; ; hops++ {
		if hops >= maxHops {
			return fmt.Errorf("graph did not terminate after %d hops (loop at %q?)", maxHops, current)
		}
		if st.HasPrompt() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("unknown node %q", current)
		}

		g.logger.Debug("running step", "node", current, "session_id", st.SessionID)
		if err := n.step(ctx, st); err != nil {
			metrics.StepErrorsTotal.WithLabelValues(current).Inc()
			return fmt.Errorf("step %s: %w", current, err)
		}

		if st.HasPrompt() {
			g.logger.Debug("prompt pending, halting turn", "node", current, "session_id", st.SessionID)
			return nil
		}

		next := n.route(st)
		if next == End {
			return nil
		}
		current = next
	}
}

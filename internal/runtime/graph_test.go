package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmbraga/taxflow/pkg/domain"
)

func newState() *domain.State {
	return domain.NewState("sess-1", time.Now())
}

func TestRunAdvancesUntilPrompt(t *testing.T) {
	var visited []string
	record := func(name string) Step {
		return func(ctx context.Context, st *domain.State) error {
			visited = append(visited, name)
			return nil
		}
	}

	g := NewGraph("a").
		Add("a", record("a"), func(*domain.State) string { return "b" }).
		Add("b", record("b"), func(*domain.State) string { return "c" }).
		Add("c", func(ctx context.Context, st *domain.State) error {
			st.Ask("question?", "answer")
			return nil
		}, func(*domain.State) string { return "d" }).
		Add("d", record("d"), nil)

	st := newState()
	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, []string{"a", "b"}, visited)
	require.True(t, st.HasPrompt())
	assert.Equal(t, "question?", st.Prompt.Description)
}

func TestRunHaltsBeforeFirstStepWhenPromptSet(t *testing.T) {
	ran := false
	g := NewGraph("a").Add("a", func(ctx context.Context, st *domain.State) error {
		ran = true
		return nil
	}, nil)

	st := newState()
	st.Ask("pending", "")
	require.NoError(t, g.Run(context.Background(), st))
	assert.False(t, ran, "steps must not run while a prompt is pending")
}

func TestRunHaltsEvenIfRouterMisbehaves(t *testing.T) {
	ran := 0
	g := NewGraph("a").
		Add("a", func(ctx context.Context, st *domain.State) error {
			ran++
			st.Ask("q", "")
			return nil
		}, func(*domain.State) string { return "a" }) // never returns End

	st := newState()
	require.NoError(t, g.Run(context.Background(), st))
	assert.Equal(t, 1, ran)
}

func TestRunStepError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGraph("a").Add("a", func(ctx context.Context, st *domain.State) error {
		return boom
	}, nil)

	err := g.Run(context.Background(), newState())
	assert.ErrorIs(t, err, boom)
}

func TestRunUnknownNode(t *testing.T) {
	g := NewGraph("a").Add("a", func(ctx context.Context, st *domain.State) error {
		return nil
	}, func(*domain.State) string { return "ghost" })

	err := g.Run(context.Background(), newState())
	assert.ErrorContains(t, err, "ghost")
}

func TestRunLoopGuard(t *testing.T) {
	g := NewGraph("a").
		Add("a", func(ctx context.Context, st *domain.State) error { return nil },
			func(*domain.State) string { return "b" }).
		Add("b", func(ctx context.Context, st *domain.State) error { return nil },
			func(*domain.State) string { return "a" })

	err := g.Run(context.Background(), newState())
	assert.ErrorContains(t, err, "did not terminate")
}

func TestRunContextCanceled(t *testing.T) {
	g := NewGraph("a").Add("a", func(ctx context.Context, st *domain.State) error {
		return nil
	}, func(*domain.State) string { return "a" })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Run(ctx, newState())
	assert.ErrorIs(t, err, context.Canceled)
}

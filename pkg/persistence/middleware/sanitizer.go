package middleware

import (
	"context"

	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

type sanitizerMiddleware struct {
	next ports.StateStore
}

// NewSanitizerMiddleware creates a middleware that strips personal and bulky
// data before a state reaches the store: the owner's name is masked and the
// base64 slip documents are dropped. Documents can be re-downloaded from the
// municipal service on demand, so they never need to live at rest.
func NewSanitizerMiddleware() Middleware {
	return func(next ports.StateStore) ports.StateStore {
		return &sanitizerMiddleware{next: next}
	}
}

func (m *sanitizerMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	// Clone what we touch so the in-memory state used by the engine keeps
	// its documents for the current turn's response.
	cloned := *state

	if state.Data.Property != nil && state.Data.Property.Owner != "" {
		prop := *state.Data.Property
		prop.Owner = maskOwner(prop.Owner)
		cloned.Data.Property = &prop
	}

	if hasDocuments(state.Data.Slips) {
		slips := make([]domain.Slip, len(state.Data.Slips))
		copy(slips, state.Data.Slips)
		for i := range slips {
			slips[i].Document = ""
		}
		cloned.Data.Slips = slips
	}

	return m.next.Save(ctx, sessionID, &cloned)
}

func (m *sanitizerMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *sanitizerMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *sanitizerMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func hasDocuments(slips []domain.Slip) bool {
	for _, s := range slips {
		if s.Document != "" {
			return true
		}
	}
	return false
}

// maskOwner keeps only the first rune of each name part.
func maskOwner(owner string) string {
	masked := make([]rune, 0, len(owner))
	startOfWord := true
	for _, r := range owner {
		switch {
		case r == ' ':
			masked = append(masked, r)
			startOfWord = true
		case startOfWord:
			masked = append(masked, r)
			startOfWord = false
		default:
			masked = append(masked, '*')
		}
	}
	return string(masked)
}

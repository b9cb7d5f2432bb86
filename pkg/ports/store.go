package ports

import (
	"context"

	"github.com/lucasmbraga/taxflow/pkg/domain"
)

// StateStore defines the interface for persisting session state between
// turns. Implementations must persist everything on the state except its
// transient payload.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the known session IDs, most recently updated first.
	List(ctx context.Context) ([]string, error)
}

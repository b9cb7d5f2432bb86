package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

// StateStoreContractTest is a reusable test suite that verifies if an adapter
// complies with ports.StateStore. The store must be empty when passed in.
func StateStoreContractTest(t *testing.T, store ports.StateStore) {
	t.Helper()
	ctx := context.Background()

	// 1. Test Load (NotFound)
	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "contract-missing")
		if !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	// 2. Test Save then Load
	t.Run("SaveLoad_RoundTrip", func(t *testing.T) {
		st := domain.NewState("contract-a", time.Now())
		st.Data.PropertyID = "01234567890123"
		st.Data.Year = 2025
		st.Ask("informe o ano", "year")

		if err := store.Save(ctx, st.SessionID, st); err != nil {
			t.Fatalf("unexpected error saving state: %v", err)
		}

		loaded, err := store.Load(ctx, st.SessionID)
		if err != nil {
			t.Fatalf("unexpected error loading state: %v", err)
		}
		if loaded.Data.PropertyID != st.Data.PropertyID || loaded.Data.Year != st.Data.Year {
			t.Errorf("data mismatch. got %+v, want %+v", loaded.Data, st.Data)
		}
		if loaded.Prompt == nil || loaded.Prompt.PayloadSchema != "year" {
			t.Errorf("prompt not persisted: %+v", loaded.Prompt)
		}
	})

	// 3. The transient payload never reaches the store
	t.Run("Payload_NotPersisted", func(t *testing.T) {
		st := domain.NewState("contract-b", time.Now())
		st.Payload = map[string]any{"year": 2025}

		if err := store.Save(ctx, st.SessionID, st); err != nil {
			t.Fatalf("unexpected error saving state: %v", err)
		}
		loaded, err := store.Load(ctx, st.SessionID)
		if err != nil {
			t.Fatalf("unexpected error loading state: %v", err)
		}
		if loaded.Payload != nil {
			t.Errorf("payload leaked into the store: %v", loaded.Payload)
		}
	})

	// 4. Test List
	t.Run("List", func(t *testing.T) {
		ids, err := store.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing sessions: %v", err)
		}

		lookup := make(map[string]bool, len(ids))
		for _, id := range ids {
			lookup[id] = true
		}
		for _, want := range []string{"contract-a", "contract-b"} {
			if !lookup[want] {
				t.Errorf("session %s missing from list %v", want, ids)
			}
		}
	})

	// 5. Test Delete
	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "contract-a"); err != nil {
			t.Fatalf("unexpected error deleting session: %v", err)
		}
		if _, err := store.Load(ctx, "contract-a"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
		}
	})
}

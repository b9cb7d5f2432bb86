package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lucasmbraga/taxflow/pkg/domain"
	storetests "github.com/lucasmbraga/taxflow/pkg/ports/tests"
)

func TestStoreContract(t *testing.T) {
	storetests.StateStoreContractTest(t, NewStore())
}

func TestStoreSaveLoad(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	state := domain.NewState("sess-1", time.Now())
	state.Data.PropertyID = "01234567890123"
	state.Data.Year = 2025

	assert.NoError(t, store.Save(ctx, "sess-1", state))

	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, "01234567890123", loaded.Data.PropertyID)
	assert.Equal(t, 2025, loaded.Data.Year)
}

func TestStoreIsolation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	state := domain.NewState("sess-1", time.Now())
	state.Data.PropertyID = "111"
	assert.NoError(t, store.Save(ctx, "sess-1", state))

	// Mutating the original after save must not leak into the store.
	state.Data.PropertyID = "changed"

	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, "111", loaded.Data.PropertyID)

	// Mutating a loaded copy must not leak either.
	loaded.Data.Year = 1999
	again, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, 0, again.Data.Year)
}

func TestStorePayloadNotPersisted(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	state := domain.NewState("sess-1", time.Now())
	state.Payload = map[string]any{"property_id": "123"}
	assert.NoError(t, store.Save(ctx, "sess-1", state))

	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Nil(t, loaded.Payload)
}

func TestStoreNotFound(t *testing.T) {
	store := NewStore()
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStoreDeleteAndList(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	older := domain.NewState("a", base)
	newer := domain.NewState("b", base.Add(time.Minute))
	assert.NoError(t, store.Save(ctx, "a", older))
	assert.NoError(t, store.Save(ctx, "b", newer))

	ids, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)

	assert.NoError(t, store.Delete(ctx, "b"))
	ids, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

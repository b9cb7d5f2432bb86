package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lucasmbraga/taxflow/pkg/domain"
	storetests "github.com/lucasmbraga/taxflow/pkg/ports/tests"
)

func TestFileStoreContract(t *testing.T) {
	storetests.StateStoreContractTest(t, New(t.TempDir()))
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	state := domain.NewState("sess-1", time.Now())
	state.Data.PropertyID = "12345678"
	state.Data.Year = 2025
	state.Internal.GuidesConsulted = true

	assert.NoError(t, store.Save(ctx, "sess-1", state))

	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, "12345678", loaded.Data.PropertyID)
	assert.Equal(t, 2025, loaded.Data.Year)
	assert.True(t, loaded.Internal.GuidesConsulted)
}

func TestFileStorePayloadNotPersisted(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	state := domain.NewState("sess-1", time.Now())
	state.Payload = map[string]any{"year": 2025}
	assert.NoError(t, store.Save(ctx, "sess-1", state))

	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Nil(t, loaded.Payload)
}

func TestFileStoreNotFound(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestFileStoreOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	state := domain.NewState("sess-1", time.Now())
	state.Data.Year = 2024
	assert.NoError(t, store.Save(ctx, "sess-1", state))

	state.Data.Year = 2025
	assert.NoError(t, store.Save(ctx, "sess-1", state))

	loaded, err := store.Load(ctx, "sess-1")
	assert.NoError(t, err)
	assert.Equal(t, 2025, loaded.Data.Year)

	// Only the final file remains, no temp leftovers.
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "sess-1.json", filepath.Base(entries[0].Name()))
}

func TestFileStoreDeleteAndList(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	assert.NoError(t, store.Save(ctx, "a", domain.NewState("a", time.Now())))
	assert.NoError(t, store.Save(ctx, "b", domain.NewState("b", time.Now())))

	ids, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, ids, 2)

	assert.NoError(t, store.Delete(ctx, "a"))
	assert.NoError(t, store.Delete(ctx, "a")) // idempotent

	ids, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

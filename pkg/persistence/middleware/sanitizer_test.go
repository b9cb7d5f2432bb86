package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmbraga/taxflow/pkg/adapters/memory"
	"github.com/lucasmbraga/taxflow/pkg/domain"
)

func TestSanitizerMasksOwner(t *testing.T) {
	inner := memory.NewStore()
	store := NewSanitizerMiddleware()(inner)
	ctx := context.Background()

	st := domain.NewState("sess-1", time.Now())
	st.Data.Property = &domain.PropertyInfo{ID: "12345678", Owner: "Maria Silva"}

	require.NoError(t, store.Save(ctx, "sess-1", st))

	raw, err := inner.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "M**** S****", raw.Data.Property.Owner)
	assert.Equal(t, "12345678", raw.Data.Property.ID)

	// The engine's in-memory copy is untouched.
	assert.Equal(t, "Maria Silva", st.Data.Property.Owner)
}

func TestSanitizerStripsSlipDocuments(t *testing.T) {
	inner := memory.NewStore()
	store := NewSanitizerMiddleware()(inner)
	ctx := context.Background()

	st := domain.NewState("sess-1", time.Now())
	st.Data.Slips = []domain.Slip{
		{ID: "slip-1", GuideNumber: "00", Document: "JVBERi0xLjQ="},
		{ID: "slip-2", GuideNumber: "00", Document: "JVBERi0xLjU="},
	}

	require.NoError(t, store.Save(ctx, "sess-1", st))

	raw, err := inner.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, raw.Data.Slips, 2)
	for _, s := range raw.Data.Slips {
		assert.Empty(t, s.Document)
	}
	assert.Equal(t, "slip-1", raw.Data.Slips[0].ID)

	assert.Equal(t, "JVBERi0xLjQ=", st.Data.Slips[0].Document)
}

func TestSanitizerDelegatesReads(t *testing.T) {
	inner := memory.NewStore()
	store := NewSanitizerMiddleware()(inner)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", domain.NewState("a", time.Now())))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChainOrder(t *testing.T) {
	inner := memory.NewStore()
	store := Chain(inner,
		NewSanitizerMiddleware(),
		NewEncryptionMiddleware(EncryptionConfig{ActiveKey: keyA}),
	)
	ctx := context.Background()

	st := domain.NewState("sess-1", time.Now())
	st.Data.Property = &domain.PropertyInfo{ID: "12345678", Owner: "Maria Silva"}
	st.Data.Slips = []domain.Slip{{ID: "slip-1", Document: "JVBERi0xLjQ="}}

	require.NoError(t, store.Save(ctx, "sess-1", st))

	// At rest only the envelope is visible.
	raw, err := inner.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Encrypted)
	assert.Nil(t, raw.Data.Property)

	// Decrypted content went through the sanitizer first.
	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "M**** S****", loaded.Data.Property.Owner)
	assert.Empty(t, loaded.Data.Slips[0].Document)
}

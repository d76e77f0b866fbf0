package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/markitup/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument(company string, generatedAt time.Time) *types.StrategyDocument {
	req := types.StrategyRequest{
		CompanyName:      company,
		Industry:         "Retail",
		TargetAudience:   "Families",
		StrategicFocus:   "growth",
		BrandInspiration: "Nike",
		StrategyType:     "Growth",
	}
	sections := types.Sections{
		{Key: "summary", Title: "Summary", Content: "Text", KeyPoints: []string{"a"}, Recommendations: []string{}},
		{Key: "plan", Title: "Plan", Content: "Go"},
	}
	return types.NewStrategyDocument(req, sections, types.SourceRemote, generatedAt)
}

// testStore exercises the Store contract against any implementation.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save and get", func(t *testing.T) {
		doc := newTestDocument("Acme", base)
		require.NoError(t, store.SaveDocument(ctx, doc))
		t.Cleanup(func() { _, _ = store.DeleteDocument(ctx, doc.ID) })

		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, doc.Sections, got.Sections)
		assert.Equal(t, doc.Metadata.Context, got.Metadata.Context)
		assert.Equal(t, types.SourceRemote, got.Metadata.Source)
		assert.True(t, doc.Metadata.GeneratedAt.Equal(got.Metadata.GeneratedAt))
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := store.GetDocument(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("fallback reason is kept", func(t *testing.T) {
		doc := newTestDocument("Globex", base)
		doc.Metadata.Source = types.SourceFallback
		doc.Metadata.FallbackReason = "transport error"
		require.NoError(t, store.SaveDocument(ctx, doc))
		t.Cleanup(func() { _, _ = store.DeleteDocument(ctx, doc.ID) })

		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "transport error", got.Metadata.FallbackReason)
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		older := newTestDocument("Older", base.Add(-time.Hour))
		newer := newTestDocument("Newer", base.Add(time.Hour))
		for _, d := range []*types.StrategyDocument{older, newer} {
			require.NoError(t, store.SaveDocument(ctx, d))
			id := d.ID
			t.Cleanup(func() { _, _ = store.DeleteDocument(ctx, id) })
		}

		docs, err := store.ListDocuments(ctx, 1)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, newer.ID, docs[0].ID)

		docs, err = store.ListDocuments(ctx, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(docs), 2)
	})

	t.Run("customized document is not overwritten by generation", func(t *testing.T) {
		doc := newTestDocument("Initech", base)
		require.NoError(t, store.SaveDocument(ctx, doc))
		t.Cleanup(func() { _, _ = store.DeleteDocument(ctx, doc.ID) })

		edited, err := doc.Customize(types.Sections{{Key: "mine", Title: "Mine", Content: "Edited"}}, base.Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, store.SaveDocument(ctx, edited))

		assert.ErrorIs(t, store.SaveDocument(ctx, doc), types.ErrCustomized)

		again, err := edited.Customize(types.Sections{{Key: "mine", Title: "Mine", Content: "Edited twice"}}, base.Add(2*time.Minute))
		require.NoError(t, err)
		require.NoError(t, store.SaveDocument(ctx, again))

		got, err := store.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, types.SourceUserCustomized, got.Metadata.Source)
		assert.Equal(t, "Edited twice", got.Sections[0].Content)
	})

	t.Run("delete", func(t *testing.T) {
		doc := newTestDocument("Umbrella", base)
		require.NoError(t, store.SaveDocument(ctx, doc))

		deleted, err := store.DeleteDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.DeleteDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	doc := newTestDocument("Acme", time.Now())
	require.NoError(t, store.SaveDocument(ctx, doc))

	doc.Sections[0].KeyPoints[0] = "mutated"
	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Sections[0].KeyPoints[0])

	got.Sections[0].Title = "mutated"
	again, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Summary", again.Sections[0].Title)
}

func TestMemoryStore_ListTieBreaksOnInsertion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := newTestDocument("First", at)
	second := newTestDocument("Second", at)
	require.NoError(t, store.SaveDocument(ctx, first))
	require.NoError(t, store.SaveDocument(ctx, second))

	docs, err := store.ListDocuments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, second.ID, docs[0].ID)
}

package projectors_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/db/memory"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

func TestSearchIndexerUsesCanonicalIDs(t *testing.T) {
	store := memory.NewSearch()
	p := projectors.NewSearchIndexer(store, projectors.Once, projectors.DefaultSearchIndexes, zerolog.Nop())

	report := p.Project(context.Background(), fixture())
	require.True(t, report.Consistent(), report.Errors)
	assert.Equal(t, 2, store.Count("sessions"))
	assert.Equal(t, 1, store.Count("session_materials"))

	doc, ok := store.Doc("sessions", 51)
	require.True(t, ok)
	assert.Equal(t, "Transactions", doc.(projectors.SessionDoc).Topic)

	mat, ok := store.Doc("session_materials", 55)
	require.True(t, ok)
	assert.Equal(t, "Indexes", mat.(projectors.MaterialDoc).Topic)

	// reindexing replaces documents by id
	p.Project(context.Background(), fixture())
	assert.Equal(t, 2, store.Count("sessions"))
}

func TestSearchIndexSetupFailureSkipsItems(t *testing.T) {
	store := memory.NewSearch()
	store.Hook = func(ctx context.Context, op string) error {
		if op == "ensure_index" {
			return apperrors.NewSyncError(apperrors.KindConnectionLost, projectors.StoreSearch, "", errors.New("no route to host"))
		}
		return nil
	}
	p := projectors.NewSearchIndexer(store, projectors.Once, projectors.DefaultSearchIndexes, zerolog.Nop())

	report := p.Project(context.Background(), fixture())
	assert.False(t, report.Consistent())
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 3, report.Skipped)
	assert.Zero(t, report.Committed)
}

func TestSearchIndexerCustomIndexNames(t *testing.T) {
	store := memory.NewSearch()
	names := projectors.SearchIndexes{Sessions: "uni_sessions", Materials: "uni_materials"}
	p := projectors.NewSearchIndexer(store, projectors.Once, names, zerolog.Nop())

	p.Project(context.Background(), fixture())
	assert.Equal(t, 2, store.Count("uni_sessions"))
	assert.Zero(t, store.Count("sessions"))
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/internal/storetest"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.CreateSchema(context.Background()))
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newTestStore(t, ":memory:"))
}

func TestStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bpmn.db")

	s := newTestStore(t, path)
	_, err := s.SaveDocument(ctx, &bpmn.Record{Key: "p", Content: "<a/>"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again := newTestStore(t, path)
	rec, err := again.LatestDocument(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, "<a/>", rec.Content)
}

func TestDropSchema(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, ":memory:")
	require.NoError(t, s.DropSchema(ctx))
	_, err := s.LatestDocument(ctx, "p")
	assert.Error(t, err)
	require.NoError(t, s.CreateSchema(ctx))
}

// Package storetest holds the behaviour every bpmn.Store must share.
package storetest

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/form"
)

// Run exercises s against the Store contract. s must start empty.
func Run(t *testing.T, s bpmn.Store) {
	t.Run("Versions", func(t *testing.T) { versions(t, s) })
	t.Run("ConcurrentSaves", func(t *testing.T) { concurrentSaves(t, s) })
	t.Run("Kinds", func(t *testing.T) { kinds(t, s) })
	t.Run("Forms", func(t *testing.T) { forms(t, s) })
}

func versions(t *testing.T, s bpmn.Store) {
	ctx := context.Background()

	v1, err := s.SaveDocument(ctx, &bpmn.Record{Key: "leave", Name: "Leave", Content: "<a/>"})
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, bpmn.KindBPMN, v1.Kind)
	assert.False(t, v1.CreatedAt.IsZero())

	_, err = s.SaveDocument(ctx, &bpmn.Record{Key: "leave", Content: "<b/>"})
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeVersionConflict))

	v2, err := s.SaveDocument(ctx, &bpmn.Record{Key: "leave", Name: "Leave", Version: 1, Content: "<b/>"})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	latest, err := s.LatestDocument(ctx, "leave")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "<b/>", latest.Content)
	assert.Equal(t, "Leave", latest.Name)

	old, err := s.DocumentVersion(ctx, "leave", 1)
	require.NoError(t, err)
	assert.Equal(t, "<a/>", old.Content)

	all, err := s.ListVersions(ctx, "leave")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, 2, all[1].Version)

	_, err = s.DocumentVersion(ctx, "leave", 3)
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeNotFound))

	none, err := s.ListVersions(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.SaveDocument(ctx, &bpmn.Record{Content: "<a/>"})
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeInvalidAttribute))

	require.NoError(t, s.DeleteDocument(ctx, "leave"))
	_, err = s.LatestDocument(ctx, "leave")
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeNotFound))
	assert.True(t, bpmn.IsCode(s.DeleteDocument(ctx, "leave"), bpmn.ErrCodeNotFound))
}

// concurrentSaves races writers on the same base version. Exactly one
// may win.
func concurrentSaves(t *testing.T, s bpmn.Store) {
	ctx := context.Background()
	const writers = 8

	var (
		g         errgroup.Group
		won       atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := s.SaveDocument(ctx, &bpmn.Record{Key: "race", Content: "<x/>"})
			switch {
			case err == nil:
				won.Add(1)
			case bpmn.IsCode(err, bpmn.ErrCodeVersionConflict):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, won.Load())
	assert.EqualValues(t, writers-1, conflicts.Load())
	require.NoError(t, s.DeleteDocument(ctx, "race"))
}

func kinds(t *testing.T, s bpmn.Store) {
	ctx := context.Background()
	rec, err := s.SaveDocument(ctx, &bpmn.Record{Key: "risk", Kind: bpmn.KindDMN, Content: "<definitions/>"})
	require.NoError(t, err)
	assert.Equal(t, bpmn.KindDMN, rec.Kind)

	got, err := s.LatestDocument(ctx, "risk")
	require.NoError(t, err)
	assert.Equal(t, bpmn.KindDMN, got.Kind)
	require.NoError(t, s.DeleteDocument(ctx, "risk"))
}

func forms(t *testing.T, s bpmn.Store) {
	ctx := context.Background()
	f := form.Decision("Form_abc", []form.Option{{Value: "f1", Label: "Go to A"}, {Value: "f2", Label: "Go to B"}})

	require.NoError(t, s.SaveForm(ctx, "Form_abc", f))
	got, err := s.GetForm(ctx, "Form_abc")
	require.NoError(t, err)
	assert.Equal(t, f, got)

	f.Components[0].Label = "Pick one"
	require.NoError(t, s.SaveForm(ctx, "Form_abc", f))
	got, err = s.GetForm(ctx, "Form_abc")
	require.NoError(t, err)
	assert.Equal(t, "Pick one", got.Components[0].Label)

	require.NoError(t, s.DeleteForm(ctx, "Form_abc"))
	_, err = s.GetForm(ctx, "Form_abc")
	assert.True(t, bpmn.IsCode(err, bpmn.ErrCodeNotFound))
	assert.True(t, bpmn.IsCode(s.DeleteForm(ctx, "Form_abc"), bpmn.ErrCodeNotFound))
}

package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Projects(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	m := NewMemory()

	p, err := m.CreateProject(ctx, Project{ID: "proj_a", Name: "A", Width: 16, Height: 16, PassphraseHash: "x"})
	require.NoError(t, err)
	assert.False(p.CreatedAt.IsZero())
	assert.True(p.Protected())

	_, err = m.CreateProject(ctx, Project{ID: "proj_a"})
	assert.ErrorIs(err, ErrExists)

	_, err = m.CreateProject(ctx, Project{ID: "proj_b", Name: "B"})
	require.NoError(t, err)
	_, err = m.SaveSnapshot(ctx, Snapshot{ID: "snap_1", ProjectID: "proj_a", Document: json.RawMessage(`{}`)})
	require.NoError(t, err)

	list, err := m.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal("proj_a", list[0].ID, "most recently updated first")

	require.NoError(t, m.DeleteProject(ctx, "proj_a"))
	_, err = m.GetProject(ctx, "proj_a")
	assert.ErrorIs(err, ErrNotFound)
	_, err = m.LatestSnapshot(ctx, "proj_a")
	assert.ErrorIs(err, ErrNotFound)
	assert.ErrorIs(m.DeleteProject(ctx, "proj_a"), ErrNotFound)
}

func TestMemory_Snapshots(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	m := NewMemory()

	_, err := m.SaveSnapshot(ctx, Snapshot{ID: "snap_0", ProjectID: "proj_missing"})
	assert.ErrorIs(err, ErrNotFound)

	_, err = m.CreateProject(ctx, Project{ID: "proj_a"})
	require.NoError(t, err)

	first, err := m.SaveSnapshot(ctx, Snapshot{ID: "snap_1", ProjectID: "proj_a", Label: "Initial", Document: json.RawMessage(`{"v":1}`)})
	require.NoError(t, err)
	assert.Equal(1, first.Version)
	second, err := m.SaveSnapshot(ctx, Snapshot{ID: "snap_2", ProjectID: "proj_a", Label: "Free Transform", Document: json.RawMessage(`{"v":2}`)})
	require.NoError(t, err)
	assert.Equal(2, second.Version)

	latest, err := m.LatestSnapshot(ctx, "proj_a")
	require.NoError(t, err)
	assert.Equal("snap_2", latest.ID)
	assert.JSONEq(`{"v":2}`, string(latest.Document))

	list, err := m.ListSnapshots(ctx, "proj_a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal("Free Transform", list[0].Label)
	assert.Nil(list[0].Document)

	got, err := m.GetSnapshot(ctx, "proj_a", "snap_1")
	require.NoError(t, err)
	assert.JSONEq(`{"v":1}`, string(got.Document))
	_, err = m.GetSnapshot(ctx, "proj_a", "snap_9")
	assert.ErrorIs(err, ErrNotFound)
}

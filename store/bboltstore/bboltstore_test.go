package bboltstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/statemech"
	"github.com/atlekbai/statemech/store"
	"github.com/atlekbai/statemech/store/bboltstore"
)

type door struct {
	sm     *statemech.StateMachine
	closed statemech.State
	open   statemech.State
	toggle *statemech.Event
}

func newDoor() *door {
	d := &door{sm: statemech.New("door")}
	d.closed = d.sm.CreateInitialState("Closed")
	d.open = d.sm.CreateState("Open")
	d.toggle = statemech.NewEvent("toggle")
	d.closed.TransitionOn(d.toggle).To(d.open)
	d.open.TransitionOn(d.toggle).To(d.closed)
	return d
}

func openStore(t *testing.T, opts ...bboltstore.Option) *bboltstore.Store {
	t.Helper()
	s, err := bboltstore.Open(filepath.Join(t.TempDir(), "snapshots.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	savedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := openStore(t, bboltstore.WithClock(func() time.Time { return savedAt }))

	d := newDoor()
	require.NoError(t, d.toggle.Fire())
	require.NoError(t, s.Save(ctx, "front", d.sm))

	rec, err := s.Get(ctx, "front")
	require.NoError(t, err)
	assert.Equal(t, "1:Open", rec.Snapshot)
	assert.Equal(t, "door", rec.Machine)
	assert.True(t, savedAt.Equal(rec.SavedAt))

	restored := newDoor()
	require.NoError(t, s.Load(ctx, "front", restored.sm))
	assert.True(t, restored.open.IsCurrent())
}

func TestSave_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	d := newDoor()
	require.NoError(t, s.Save(ctx, "front", d.sm))
	require.NoError(t, d.toggle.Fire())
	require.NoError(t, s.Save(ctx, "front", d.sm))

	rec, err := s.Get(ctx, "front")
	require.NoError(t, err)
	assert.Equal(t, "1:Open", rec.Snapshot)
}

func TestLoad_NotFound(t *testing.T) {
	s := openStore(t)

	err := s.Load(context.Background(), "missing", newDoor().sm)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoad_InvalidSnapshotKeepsMachine(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	other := statemech.New("other")
	other.CreateInitialState("Elsewhere")
	require.NoError(t, s.Save(ctx, "front", other))

	d := newDoor()
	err := s.Load(ctx, "front", d.sm)
	var serr *statemech.SerializationError
	require.ErrorAs(t, err, &serr)
	assert.True(t, d.closed.IsCurrent())
}

func TestSave_Faulted(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	d := newDoor()
	d.open.OnEntry(func(statemech.TransitionInfo) error { return assert.AnError })
	require.Error(t, d.toggle.Fire())
	require.True(t, d.sm.IsFaulted())

	var faulted *statemech.MachineFaultedError
	require.ErrorAs(t, s.Save(ctx, "front", d.sm), &faulted)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeysAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	d := newDoor()
	require.NoError(t, s.Save(ctx, "b", d.sm))
	require.NoError(t, s.Save(ctx, "a", d.sm))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := openStore(t)

	require.ErrorIs(t, s.Save(ctx, "front", newDoor().sm), context.Canceled)
	require.ErrorIs(t, s.Load(ctx, "front", newDoor().sm), context.Canceled)
	require.ErrorIs(t, s.Delete(ctx, "front"), context.Canceled)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := bboltstore.Open(path)
	require.NoError(t, err)
	d := newDoor()
	require.NoError(t, d.toggle.Fire())
	require.NoError(t, s.Save(ctx, "front", d.sm))
	require.NoError(t, s.Close())

	s, err = bboltstore.Open(path)
	require.NoError(t, err)
	defer s.Close()

	restored := newDoor()
	require.NoError(t, s.Load(ctx, "front", restored.sm))
	assert.True(t, restored.open.IsCurrent())
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"coinarena/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	mu        sync.Mutex
	snapshots []game.StateSnapshot
	ends      chan game.MatchEnd
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{ends: make(chan game.MatchEnd, 4)}
}

func (o *fakeObserver) Snapshot(roomID string, snap game.StateSnapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots = append(o.snapshots, snap)
}

func (o *fakeObserver) MatchEnded(room *game.Room, end game.MatchEnd) {
	o.ends <- end
}

func (o *fakeObserver) Snapshots() []game.StateSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]game.StateSnapshot(nil), o.snapshots...)
}

func activeRoom(t *testing.T, start time.Time) *game.Room {
	t.Helper()
	r := game.NewRoom("room-1", game.DefaultSettings(), game.WithSeed(3))
	v, err := r.Join("solo")
	require.NoError(t, err)
	_, ok := r.TryStart(v.ID, start)
	require.True(t, ok)
	return r
}

func TestSchedulerRunsUntilMatchEnds(t *testing.T) {
	clock := newStepClock(5 * time.Second)
	obs := newFakeObserver()
	s := NewScheduler(context.Background(), 1000, 500, obs, WithClock(clock.Now))

	r := activeRoom(t, t0)
	require.True(t, s.Start(r))
	assert.False(t, s.Start(r), "second start while running")

	select {
	case end := <-obs.ends:
		assert.Equal(t, game.EndTimeUp, end.Reason)
		assert.Equal(t, "room-1", end.RoomID)
	case <-time.After(5 * time.Second):
		t.Fatal("match never ended")
	}
	s.Wait()

	assert.False(t, s.Running(r.ID))
	assert.Equal(t, game.PhaseEnded, r.Phase())
	assert.Empty(t, obs.ends, "match end reported once")

	snaps := obs.Snapshots()
	require.NotEmpty(t, snaps)
	for _, snap := range snaps {
		assert.Zero(t, snap.Tick%2, "snapshots every second tick")
	}
}

func TestSchedulerStopCancelsLoop(t *testing.T) {
	obs := newFakeObserver()
	s := NewScheduler(context.Background(), 1000, 1000, obs, WithClock(func() time.Time { return t0 }))

	r := activeRoom(t, t0)
	require.True(t, s.Start(r))
	require.Eventually(t, func() bool { return len(obs.Snapshots()) > 0 }, 2*time.Second, time.Millisecond)

	s.Stop(r.ID)
	s.Wait()
	assert.False(t, s.Running(r.ID))
	assert.Equal(t, game.PhaseActive, r.Phase())

	// the room can be picked up again
	require.True(t, s.Start(r))
	s.Stop(r.ID)
	s.Wait()
}

func TestSchedulerSkipsIdleRooms(t *testing.T) {
	obs := newFakeObserver()
	s := NewScheduler(context.Background(), 1000, 1000, obs)

	r := game.NewRoom("lobby", game.DefaultSettings())
	_, err := r.Join("waiting")
	require.NoError(t, err)

	require.True(t, s.Start(r))
	s.Wait()
	assert.False(t, s.Running(r.ID))
	assert.Empty(t, obs.Snapshots())
}

func TestSchedulerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	obs := newFakeObserver()
	s := NewScheduler(ctx, 1000, 1000, obs, WithClock(func() time.Time { return t0 }))

	r := activeRoom(t, t0)
	require.True(t, s.Start(r))
	cancel()
	s.Wait()

	assert.False(t, s.Running(r.ID))
	assert.False(t, s.Start(r), "no new loops after shutdown")
}

package services

import (
	"fmt"
	"sync"
	"time"

	"coinarena/game"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// stepClock moves forward by step on every read.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{now: t0, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

type fakeEvents struct {
	mu       sync.Mutex
	changed  []game.RoomInfo
	closed   []string
	finished []game.MatchEnd
}

func (f *fakeEvents) RoomChanged(info game.RoomInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, info)
}

func (f *fakeEvents) RoomClosed(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, roomID)
}

func (f *fakeEvents) MatchFinished(end game.MatchEnd) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, end)
}

func (f *fakeEvents) Closed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

func (f *fakeEvents) Finished() []game.MatchEnd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]game.MatchEnd(nil), f.finished...)
}

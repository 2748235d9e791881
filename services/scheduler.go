package services

import (
	"context"
	"sync"
	"time"

	"coinarena/game"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// TickObserver receives the output of running rooms. Both methods are called
// from the room's loop goroutine without any scheduler lock held.
type TickObserver interface {
	Snapshot(roomID string, snap game.StateSnapshot)
	MatchEnded(room *game.Room, end game.MatchEnd)
}

type loop struct {
	cancel context.CancelFunc
}

// Scheduler runs one tick loop per Active room. A loop exists only while its
// room is Active and exits on its own when the match ends.
type Scheduler struct {
	mu             deadlock.Mutex
	ctx            context.Context
	interval       time.Duration
	broadcastEvery uint64
	now            func() time.Time
	observer       TickObserver
	loops          map[string]*loop
	wg             sync.WaitGroup
}

type SchedulerOpt func(*Scheduler)

// WithClock replaces time.Now as the simulation clock.
func WithClock(now func() time.Time) SchedulerOpt {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler builds a scheduler ticking at simHz and handing a snapshot to
// the observer every simHz/broadcastHz ticks. Loops stop when ctx is done.
func NewScheduler(ctx context.Context, simHz, broadcastHz int, observer TickObserver, opts ...SchedulerOpt) *Scheduler {
	if simHz <= 0 {
		simHz = 30
	}
	every := 1
	if broadcastHz > 0 && simHz/broadcastHz > 1 {
		every = simHz / broadcastHz
	}
	s := &Scheduler{
		ctx:            ctx,
		interval:       time.Second / time.Duration(simHz),
		broadcastEvery: uint64(every),
		now:            time.Now,
		observer:       observer,
		loops:          make(map[string]*loop),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the loop for room unless one is already running. It reports
// whether a new loop was started.
func (s *Scheduler) Start(room *game.Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loops[room.ID]; ok {
		return false
	}
	if s.ctx.Err() != nil {
		return false
	}
	ctx, cancel := context.WithCancel(s.ctx)
	l := &loop{cancel: cancel}
	s.loops[room.ID] = l

	s.wg.Add(1)
	go s.run(ctx, room, l)
	return true
}

// Stop cancels the loop for roomID, if any.
func (s *Scheduler) Stop(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loops[roomID]; ok {
		l.cancel()
		delete(s.loops, roomID)
	}
}

func (s *Scheduler) Running(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[roomID]
	return ok
}

// Wait blocks until every loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, room *game.Room, l *loop) {
	defer s.wg.Done()
	defer s.release(room.ID, l)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Debug().Str("room", room.ID).Dur("interval", s.interval).Msg("tick loop started")
	var n uint64
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("room", room.ID).Msg("tick loop cancelled")
			return
		case <-ticker.C:
			now := s.now()
			end, running := room.Step(now)
			if !running {
				return
			}
			if end != nil {
				// the entry must be gone before the observer can restart the room
				s.release(room.ID, l)
				s.observer.MatchEnded(room, *end)
				return
			}
			n++
			if n%s.broadcastEvery == 0 {
				s.observer.Snapshot(room.ID, room.Snapshot(now))
			}
		}
	}
}

// release forgets l if it is still the registered loop for roomID.
func (s *Scheduler) release(roomID string, l *loop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.loops[roomID]; ok && cur == l {
		l.cancel()
		delete(s.loops, roomID)
	}
}

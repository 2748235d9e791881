package services

import (
	"context"
	"time"

	"coinarena/game"

	"github.com/pixil98/go-errors"
	"github.com/rs/zerolog/log"
)

// RoomEvents is what the hub reports about room lifecycle. Implementations
// must not block.
type RoomEvents interface {
	RoomChanged(info game.RoomInfo)
	RoomClosed(roomID string)
	MatchFinished(end game.MatchEnd)
}

type RoomSink interface {
	Publish(ctx context.Context, info game.RoomInfo) error
	Remove(ctx context.Context, roomID string) error
}

type MatchSink interface {
	RecordMatch(ctx context.Context, end game.MatchEnd) error
}

type recordKind int

const (
	roomChanged recordKind = iota
	roomClosed
	matchFinished
)

type record struct {
	kind   recordKind
	info   game.RoomInfo
	roomID string
	end    game.MatchEnd
}

// Recorder moves persistence off the room and tick goroutines. Events are
// queued without blocking and written to the sinks by Run.
type Recorder struct {
	queue   chan record
	rooms   []RoomSink
	matches []MatchSink
	timeout time.Duration
}

func NewRecorder(buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		queue:   make(chan record, buffer),
		timeout: 5 * time.Second,
	}
}

// AddRoomSink and AddMatchSink must be called before Run.
func (r *Recorder) AddRoomSink(s RoomSink) {
	r.rooms = append(r.rooms, s)
}

func (r *Recorder) AddMatchSink(s MatchSink) {
	r.matches = append(r.matches, s)
}

func (r *Recorder) RoomChanged(info game.RoomInfo) {
	r.enqueue(record{kind: roomChanged, info: info, roomID: info.ID})
}

func (r *Recorder) RoomClosed(roomID string) {
	r.enqueue(record{kind: roomClosed, roomID: roomID})
}

func (r *Recorder) MatchFinished(end game.MatchEnd) {
	r.enqueue(record{kind: matchFinished, end: end, roomID: end.RoomID})
}

func (r *Recorder) enqueue(rec record) {
	select {
	case r.queue <- rec:
	default:
		log.Warn().Str("room", rec.roomID).Int("kind", int(rec.kind)).Msg("recorder queue full, dropping event")
	}
}

// Run writes queued events until ctx is done, then drains what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			r.write(context.Background(), rec)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case rec := <-r.queue:
			r.write(context.Background(), rec)
		default:
			return
		}
	}
}

func (r *Recorder) write(parent context.Context, rec record) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	el := errors.NewErrorList()
	switch rec.kind {
	case roomChanged:
		for _, s := range r.rooms {
			el.Add(s.Publish(ctx, rec.info))
		}
	case roomClosed:
		for _, s := range r.rooms {
			el.Add(s.Remove(ctx, rec.roomID))
		}
	case matchFinished:
		for _, s := range r.matches {
			el.Add(s.RecordMatch(ctx, rec.end))
		}
	}
	if err := el.Err(); err != nil {
		log.Error().Err(err).Str("room", rec.roomID).Msg("recording room event")
	}
}

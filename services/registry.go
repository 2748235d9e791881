package services

import (
	"errors"

	"coinarena/game"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var ErrNoRoomAvailable = errors.New("no room available")

// RoomRegistry holds the live rooms. Rooms are created on demand by Assign and
// dropped once their last player leaves. The registry lock is always taken
// before a room lock, never the other way round.
type RoomRegistry struct {
	mu       deadlock.Mutex
	settings game.Settings
	maxRooms int
	rooms    map[string]*game.Room
	order    []string // creation order
	newID    func() string
	roomOpts []game.RoomOpt
}

type RegistryOpt func(*RoomRegistry)

// WithRoomIDs overrides the room id generator.
func WithRoomIDs(f func() string) RegistryOpt {
	return func(m *RoomRegistry) {
		m.newID = f
	}
}

// WithRoomOptions is applied to every room the registry creates.
func WithRoomOptions(opts ...game.RoomOpt) RegistryOpt {
	return func(m *RoomRegistry) {
		m.roomOpts = append(m.roomOpts, opts...)
	}
}

// NewRoomRegistry creates an empty registry. maxRooms <= 0 means unbounded.
func NewRoomRegistry(settings game.Settings, maxRooms int, opts ...RegistryOpt) *RoomRegistry {
	m := &RoomRegistry{
		settings: settings,
		maxRooms: maxRooms,
		rooms:    make(map[string]*game.Room),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Assign places a new player in the oldest lobby with a free seat, creating a
// room when none has one.
func (m *RoomRegistry) Assign(name string) (*game.Room, game.PlayerView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		r := m.rooms[id]
		if !r.Joinable() {
			continue
		}
		v, err := r.Join(name)
		if err == nil {
			return r, v, nil
		}
	}

	if m.maxRooms > 0 && len(m.rooms) >= m.maxRooms {
		return nil, game.PlayerView{}, ErrNoRoomAvailable
	}
	r := game.NewRoom(m.newID(), m.settings, m.roomOpts...)
	v, err := r.Join(name)
	if err != nil {
		return nil, game.PlayerView{}, err
	}
	m.rooms[r.ID] = r
	m.order = append(m.order, r.ID)
	log.Info().Str("room", r.ID).Int("rooms", len(m.rooms)).Msg("room created")
	return r, v, nil
}

func (m *RoomRegistry) Get(id string) (*game.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// RemoveIfEmpty drops the room when nobody is left in it. It reports whether
// the room was removed.
func (m *RoomRegistry) RemoveIfEmpty(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok || r.Len() > 0 {
		return false
	}
	m.remove(id)
	return true
}

// Remove drops the room regardless of its roster.
func (m *RoomRegistry) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return false
	}
	m.remove(id)
	return true
}

func (m *RoomRegistry) remove(id string) {
	delete(m.rooms, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	log.Info().Str("room", id).Int("rooms", len(m.rooms)).Msg("room removed")
}

// Rooms returns the live rooms in creation order.
func (m *RoomRegistry) Rooms() []*game.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*game.Room, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rooms[id])
	}
	return out
}

// List summarises every live room in creation order.
func (m *RoomRegistry) List() []game.RoomInfo {
	rooms := m.Rooms()
	out := make([]game.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	return out
}

func (m *RoomRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

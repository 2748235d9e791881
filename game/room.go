package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

var (
	ErrRoomFull        = errors.New("room is full")
	ErrMatchInProgress = errors.New("match already in progress")
)

// Room owns one match's state. Every exported method takes the room lock, so
// callers on different goroutines never write the same room concurrently.
type Room struct {
	ID string

	mu       deadlock.Mutex
	settings Settings
	rng      *rand.Rand
	newID    func() string

	phase     Phase
	players   []*Player // join order
	bullets   []*Bullet
	coins     []*Coin
	startedAt time.Time
	lastTick  time.Time
	tick      uint64

	joinSeq   uint64
	entityID  uint64
	coinsLost int
}

type RoomOpt func(*Room)

// WithSeed makes coin placement reproducible.
func WithSeed(seed uint64) RoomOpt {
	return func(r *Room) {
		r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func WithIDGenerator(f func() string) RoomOpt {
	return func(r *Room) {
		r.newID = f
	}
}

func NewRoom(id string, s Settings, opts ...RoomOpt) *Room {
	r := &Room{
		ID:       id,
		settings: s,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		newID:    uuid.NewString,
		phase:    PhaseLobby,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Room) Settings() Settings {
	return r.settings
}

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Joinable reports whether Join would currently succeed.
func (r *Room) Joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == PhaseLobby && len(r.players) < r.capacity()
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := RoomInfo{
		ID:       r.ID,
		Phase:    r.phase,
		Players:  len(r.players),
		Capacity: r.capacity(),
	}
	if r.phase != PhaseLobby {
		started := r.startedAt
		info.StartedAt = &started
	}
	return info
}

func (r *Room) Ledger() Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := Ledger{OnField: len(r.coins), Lost: r.coinsLost}
	if r.phase != PhaseLobby {
		l.Spawned = r.settings.CoinCount
	}
	for _, p := range r.players {
		l.Held += p.Coins
	}
	return l
}

// Roster returns the lobby view of the room.
func (r *Room) Roster() LobbyUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lobbyUpdate()
}

// Join admits a new player while the room is in Lobby and below capacity.
func (r *Room) Join(name string) (PlayerView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseLobby {
		return PlayerView{}, ErrMatchInProgress
	}
	if len(r.players) >= r.capacity() {
		return PlayerView{}, ErrRoomFull
	}

	slot := r.freeSlot()
	r.joinSeq++
	if name == "" {
		name = fmt.Sprintf("Player %d", r.joinSeq)
	}
	p := &Player{
		ID:      r.newID(),
		Name:    name,
		Color:   Palette[slot],
		Slot:    slot,
		JoinSeq: r.joinSeq,
	}
	p.spawn(r.settings)
	r.players = append(r.players, p)
	r.electHost()

	return p.view(r.settings, r.lastTick), nil
}

// ToggleReady flips the ready flag of a lobby player. Unknown ids are ignored;
// the returned roster is broadcast either way.
func (r *Room) ToggleReady(playerID string) LobbyUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toggleReady(playerID)
	return r.lobbyUpdate()
}

// Leave removes the player and returns how many remain.
func (r *Room) Leave(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(playerID)
	if i < 0 {
		return len(r.players)
	}
	p := r.players[i]
	if r.phase == PhaseActive {
		r.coinsLost += p.Coins
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	if p.Host {
		r.electHost()
	}
	return len(r.players)
}

// TryStart moves the room to Active when the host asks and every other player
// is ready. It changes nothing when the preconditions fail.
func (r *Room) TryStart(playerID string, now time.Time) (MatchStart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tryStart(playerID, now)
}

// Reset returns an Ended room to a fresh Lobby with the same roster.
func (r *Room) Reset() (LobbyUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseEnded {
		return LobbyUpdate{}, false
	}
	r.phase = PhaseLobby
	r.bullets = nil
	r.coins = nil
	r.coinsLost = 0
	r.tick = 0
	r.startedAt = time.Time{}
	for _, p := range r.players {
		p.Ready = false
		p.Coins = 0
		p.lastShot = time.Time{}
		p.spawn(r.settings)
	}
	return r.lobbyUpdate(), true
}

// Apply dispatches one inbound event from playerID. Join and Ping belong to the
// session layer and are ignored here. The result, if any, should be broadcast
// to the room.
func (r *Room) Apply(playerID string, ev Inbound, now time.Time) Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := ev.(type) {
	case ToggleReady:
		if r.phase != PhaseLobby {
			return nil
		}
		r.toggleReady(playerID)
		return r.lobbyUpdate()
	case Start:
		if ms, ok := r.tryStart(playerID, now); ok {
			return ms
		}
	case Move:
		r.move(playerID, e)
	case Shoot:
		r.shoot(playerID, e, now)
	case CoinClaim:
		r.claimCoin(playerID, e.CoinID)
	case Join, Ping:
	}
	return nil
}

func (r *Room) tryStart(playerID string, now time.Time) (MatchStart, bool) {
	if r.phase != PhaseLobby {
		return MatchStart{}, false
	}
	host := r.find(playerID)
	if host == nil || !host.Host {
		return MatchStart{}, false
	}
	for _, p := range r.players {
		if p != host && !p.Ready {
			return MatchStart{}, false
		}
	}

	s := r.settings
	r.phase = PhaseActive
	r.startedAt = now
	r.lastTick = now
	r.tick = 0
	r.bullets = nil
	r.coinsLost = 0
	r.coins = make([]*Coin, 0, s.CoinCount)
	for i := 0; i < s.CoinCount; i++ {
		pos := RandomInAnnulus(r.rng, s.FieldCenter, 0, s.FieldRadius-s.CoinSpawnMargin)
		r.coins = append(r.coins, &Coin{ID: r.nextEntityID(), Pos: pos})
	}
	for _, p := range r.players {
		p.Coins = 0
		p.lastShot = time.Time{}
		p.spawn(s)
	}

	return MatchStart{
		RoomID:   r.ID,
		Players:  r.playerViews(),
		Coins:    r.coinViews(),
		Duration: s.MatchDuration.Seconds(),
		Settings: s,
	}, true
}

func (r *Room) toggleReady(playerID string) {
	if r.phase != PhaseLobby {
		return
	}
	if p := r.find(playerID); p != nil {
		p.Ready = !p.Ready
	}
}

func (r *Room) move(playerID string, m Move) {
	p := r.find(playerID)
	if r.phase != PhaseActive || p == nil || !p.Alive {
		return
	}
	in := Vec{X: m.AX, Y: m.AY}
	if !finite(in.X) || !finite(in.Y) {
		return
	}
	p.input = in.ClampLen(1)
	if finite(m.Aim) {
		p.Aim = m.Aim
	}
}

func (r *Room) shoot(playerID string, sh Shoot, now time.Time) {
	p := r.find(playerID)
	if r.phase != PhaseActive || p == nil || !p.Alive || p.HP == 0 || !finite(sh.Angle) {
		return
	}
	if !p.lastShot.IsZero() && now.Sub(p.lastShot) < r.settings.FireCooldown {
		return
	}
	p.lastShot = now
	p.Aim = sh.Angle
	r.bullets = append(r.bullets, &Bullet{
		ID:        r.nextEntityID(),
		OwnerID:   p.ID,
		Color:     p.Color,
		Pos:       p.Pos,
		Vel:       FromAngle(sh.Angle).Mul(r.settings.BulletSpeed),
		CreatedAt: now,
	})
}

// claimCoin credits a client-reported pickup only if the server agrees the
// player is touching the coin.
func (r *Room) claimCoin(playerID string, coinID uint64) {
	p := r.find(playerID)
	if r.phase != PhaseActive || p == nil || !p.Alive || p.HP == 0 {
		return
	}
	for i, c := range r.coins {
		if c.ID != coinID {
			continue
		}
		if CirclesOverlap(p.Pos, r.settings.PlayerRadius, c.Pos, r.settings.CoinRadius) {
			r.coins = append(r.coins[:i], r.coins[i+1:]...)
			p.Coins++
		}
		return
	}
}

// electHost gives the host flag to the earliest-joined member.
func (r *Room) electHost() {
	var first *Player
	for _, p := range r.players {
		p.Host = false
		if first == nil || p.JoinSeq < first.JoinSeq {
			first = p
		}
	}
	if first != nil {
		first.Host = true
	}
}

func (r *Room) capacity() int {
	c := r.settings.Capacity
	if c > len(Palette) {
		c = len(Palette)
	}
	if c < 1 {
		c = 1
	}
	return c
}

func (r *Room) freeSlot() int {
	used := make([]bool, len(Palette))
	for _, p := range r.players {
		used[p.Slot] = true
	}
	for i, u := range used {
		if !u {
			return i
		}
	}
	return len(r.players) % len(Palette)
}

func (r *Room) find(playerID string) *Player {
	if i := r.indexOf(playerID); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) nextEntityID() uint64 {
	r.entityID++
	return r.entityID
}

func (r *Room) lobbyUpdate() LobbyUpdate {
	return LobbyUpdate{
		RoomID:  r.ID,
		Phase:   r.phase,
		Players: r.playerViews(),
	}
}

func (r *Room) playerViews() []PlayerView {
	out := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.view(r.settings, r.lastTick))
	}
	return out
}

func (r *Room) coinViews() []CoinView {
	out := make([]CoinView, 0, len(r.coins))
	for _, c := range r.coins {
		out = append(out, CoinView{ID: c.ID, X: c.Pos.X, Y: c.Pos.Y})
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

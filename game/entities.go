package game

import (
	"fmt"
	"math"
	"time"
)

type Phase uint8

const (
	PhaseLobby Phase = iota
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "lobby":
		*p = PhaseLobby
	case "active":
		*p = PhaseActive
	case "ended":
		*p = PhaseEnded
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// Player is owned by exactly one Room and is only touched under that room's lock.
type Player struct {
	ID      string
	Name    string
	Color   string
	Slot    int    // palette index, fixed at join
	JoinSeq uint64 // strictly increasing per room; lower joined earlier

	Pos Vec
	Vel Vec
	Aim float64

	HP        int
	Coins     int
	Alive     bool
	DeadSince *time.Time

	Ready bool
	Host  bool

	input    Vec
	lastShot time.Time
}

func (p *Player) spawn(s Settings) {
	p.Pos = s.SpawnPoint(p.Slot)
	p.Vel = Vec{}
	p.input = Vec{}
	p.HP = s.MaxHP
	p.Alive = true
	p.DeadSince = nil
}

func (p *Player) damage(n int) {
	p.HP -= n
	if p.HP < 0 {
		p.HP = 0
	}
}

func (p *Player) view(s Settings, now time.Time) PlayerView {
	v := PlayerView{
		ID:    p.ID,
		Name:  p.Name,
		Color: p.Color,
		X:     p.Pos.X,
		Y:     p.Pos.Y,
		VX:    p.Vel.X,
		VY:    p.Vel.Y,
		Aim:   p.Aim,
		HP:    p.HP,
		Coins: p.Coins,
		Alive: p.Alive,
		Ready: p.Ready,
		Host:  p.Host,
	}
	if p.DeadSince != nil {
		left := s.RespawnDelay - now.Sub(*p.DeadSince)
		if left > 0 {
			v.RespawnIn = math.Ceil(left.Seconds())
		}
	}
	return v
}

type Bullet struct {
	ID        uint64
	OwnerID   string
	Color     string
	Pos       Vec
	Vel       Vec
	CreatedAt time.Time
}

// Coin exists only while it is available; picking it up removes it.
type Coin struct {
	ID  uint64
	Pos Vec
}

type PlayerView struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	Aim       float64 `json:"aim"`
	HP        int     `json:"hp"`
	Coins     int     `json:"coins"`
	Alive     bool    `json:"alive"`
	Ready     bool    `json:"ready"`
	Host      bool    `json:"host"`
	RespawnIn float64 `json:"respawnIn,omitempty"`
}

type BulletView struct {
	ID      uint64  `json:"id"`
	OwnerID string  `json:"ownerId"`
	Color   string  `json:"color"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type CoinView struct {
	ID uint64  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Standing is one leaderboard row.
type Standing struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Coins    int    `json:"coins"`
}

// RoomInfo summarises a room for listings.
type RoomInfo struct {
	ID        string    `json:"id"`
	Phase     Phase     `json:"phase"`
	Players   int       `json:"players"`
	Capacity  int       `json:"capacity"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Ledger accounts for every coin of the current match.
type Ledger struct {
	Spawned int `json:"spawned"`
	Held    int `json:"held"`
	OnField int `json:"onField"`
	Lost    int `json:"lost"`
}

func (l Ledger) Balanced() bool {
	return l.Held+l.OnField+l.Lost == l.Spawned
}

package game

import "time"

// Inbound is the closed set of events a connection can send. The unexported
// method keeps other packages from adding variants.
type Inbound interface {
	inbound()
}

type Join struct {
	Name string `json:"name"`
}

type ToggleReady struct{}

type Start struct{}

// Move carries an acceleration intent in [-1,1] per axis and the aim angle.
type Move struct {
	AX  float64 `json:"ax"`
	AY  float64 `json:"ay"`
	Aim float64 `json:"aim"`
}

type Shoot struct {
	Angle float64 `json:"angle"`
}

type CoinClaim struct {
	CoinID uint64 `json:"coinId"`
}

type Ping struct{}

func (Join) inbound() {}
func (ToggleReady) inbound() {}
func (Start) inbound() {}
func (Move) inbound() {}
func (Shoot) inbound() {}
func (CoinClaim) inbound() {}
func (Ping) inbound() {}

// Outbound is the closed set of payloads sent to clients. Kind is the envelope
// type tag.
type Outbound interface {
	Kind() string
	outbound()
}

type JoinResult struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	Color    string `json:"color,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type LobbyUpdate struct {
	RoomID  string       `json:"roomId"`
	Phase   Phase        `json:"phase"`
	Players []PlayerView `json:"players"`
}

type MatchStart struct {
	RoomID   string       `json:"roomId"`
	Players  []PlayerView `json:"players"`
	Coins    []CoinView   `json:"coins"`
	Duration float64      `json:"duration"`
	Settings Settings     `json:"settings"`
}

type StateSnapshot struct {
	RoomID        string       `json:"roomId"`
	Tick          uint64       `json:"tick"`
	Players       []PlayerView `json:"players"`
	Bullets       []BulletView `json:"bullets"`
	Coins         []CoinView   `json:"coins"`
	TimeRemaining float64      `json:"timeRemaining"`
}

type EndReason string

const (
	EndTimeUp         EndReason = "time_up"
	EndCoinsExhausted EndReason = "coins_exhausted"
)

type MatchEnd struct {
	RoomID      string     `json:"roomId"`
	Reason      EndReason  `json:"reason"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     time.Time  `json:"endedAt"`
	Leaderboard []Standing `json:"leaderboard"`
}

type Pong struct{}

func (JoinResult) Kind() string { return "join_result" }
func (LobbyUpdate) Kind() string { return "lobby_update" }
func (MatchStart) Kind() string { return "match_start" }
func (StateSnapshot) Kind() string { return "state" }
func (MatchEnd) Kind() string { return "match_end" }
func (Pong) Kind() string { return "pong" }

func (JoinResult) outbound() {}
func (LobbyUpdate) outbound() {}
func (MatchStart) outbound() {}
func (StateSnapshot) outbound() {}
func (MatchEnd) outbound() {}
func (Pong) outbound() {}

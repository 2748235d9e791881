package game

import (
	"encoding/json"
	"time"
)

// Palette is the fixed set of player colors. Its length bounds room capacity.
var Palette = []string{"red", "blue", "green", "yellow"}

// spawnOffsets are relative to the field center, one per palette slot.
var spawnOffsets = []Vec{
	{X: 0, Y: -250},
	{X: -200, Y: 200},
	{X: 200, Y: 200},
	{X: 0, Y: 250},
}

// Settings holds every gameplay constant. Clients predicting movement must use
// the same values. Per-tick quantities assume the scheduler's simulation rate.
// Durations are encoded as seconds, like every other time on the wire.
type Settings struct {
	FieldCenter  Vec     `json:"fieldCenter"`
	FieldRadius  float64 `json:"fieldRadius"`
	PlayerRadius float64 `json:"playerRadius"`
	BulletRadius float64 `json:"bulletRadius"`
	CoinRadius   float64 `json:"coinRadius"`

	MaxHP     int     `json:"maxHp"`
	Accel     float64 `json:"accel"`
	Friction  float64 `json:"friction"`
	Knockback float64 `json:"knockback"`

	BulletSpeed    float64       `json:"bulletSpeed"`
	BulletLifetime time.Duration `json:"-"`
	FireCooldown   time.Duration `json:"-"`

	CoinCount       int     `json:"coinCount"`
	CoinSpawnMargin float64 `json:"coinSpawnMargin"`
	DropMinRadius   float64 `json:"dropMinRadius"`
	DropMaxRadius   float64 `json:"dropMaxRadius"`

	MatchDuration time.Duration `json:"-"`
	RespawnDelay  time.Duration `json:"-"`
	Capacity      int           `json:"capacity"`
}

type settingsJSON struct {
	jsonSettings
	BulletLifetime float64 `json:"bulletLifetime"`
	FireCooldown   float64 `json:"fireCooldown"`
	MatchDuration  float64 `json:"matchDuration"`
	RespawnDelay   float64 `json:"respawnDelay"`
}

// jsonSettings drops the methods so encoding does not recurse.
type jsonSettings Settings

func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsJSON{
		jsonSettings:   jsonSettings(s),
		BulletLifetime: s.BulletLifetime.Seconds(),
		FireCooldown:   s.FireCooldown.Seconds(),
		MatchDuration:  s.MatchDuration.Seconds(),
		RespawnDelay:   s.RespawnDelay.Seconds(),
	})
}

func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw settingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Settings(raw.jsonSettings)
	s.BulletLifetime = seconds(raw.BulletLifetime)
	s.FireCooldown = seconds(raw.FireCooldown)
	s.MatchDuration = seconds(raw.MatchDuration)
	s.RespawnDelay = seconds(raw.RespawnDelay)
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func DefaultSettings() Settings {
	return Settings{
		FieldCenter:  Vec{X: 400, Y: 400},
		FieldRadius:  380,
		PlayerRadius: 20,
		BulletRadius: 5,
		CoinRadius:   8,

		MaxHP:     5,
		Accel:     0.6,
		Friction:  0.9,
		Knockback: 6,

		BulletSpeed:    16,
		BulletLifetime: 2 * time.Second,
		FireCooldown:   500 * time.Millisecond,

		CoinCount:       50,
		CoinSpawnMargin: 50,
		DropMinRadius:   30,
		DropMaxRadius:   60,

		MatchDuration: 180 * time.Second,
		RespawnDelay:  10 * time.Second,
		Capacity:      3,
	}
}

// SpawnPoint returns the fixed spawn position for a palette slot.
func (s Settings) SpawnPoint(slot int) Vec {
	return s.FieldCenter.Add(spawnOffsets[slot%len(spawnOffsets)])
}

// InField reports whether p lies within the playable disc.
func (s Settings) InField(p Vec) bool {
	return p.Dist(s.FieldCenter) <= s.FieldRadius
}

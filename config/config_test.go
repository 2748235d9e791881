package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SIM_TICK_HZ", "BROADCAST_HZ", "ROOM_CAPACITY", "MATCH_DURATION", "RESET_ON_END", "PORT", "BIND_ADDRESS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30, cfg.SimTickHz)
	assert.Equal(t, 15, cfg.BroadcastHz)
	assert.Equal(t, 3, cfg.RoomCapacity)
	assert.Equal(t, 180*time.Second, cfg.MatchDuration)
	assert.True(t, cfg.ResetOnEnd)
	assert.Equal(t, ":8080", cfg.ListenAddr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SIM_TICK_HZ", "60")
	t.Setenv("BROADCAST_HZ", "20")
	t.Setenv("MATCH_DURATION", "90")
	t.Setenv("RESPAWN_DELAY", "5s")
	t.Setenv("RESET_ON_END", "false")
	t.Setenv("COIN_COUNT", "not-a-number")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60, cfg.SimTickHz)
	assert.Equal(t, 90*time.Second, cfg.MatchDuration)
	assert.Equal(t, 5*time.Second, cfg.RespawnDelay)
	assert.False(t, cfg.ResetOnEnd)
	assert.Equal(t, 50, cfg.CoinCount)

	s := cfg.Game()
	assert.Equal(t, 90*time.Second, s.MatchDuration)
	assert.Equal(t, 5*time.Second, s.RespawnDelay)
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Config)
		errs   []string
	}{
		"valid": {
			mutate: func(c *Config) {},
		},
		"broadcast not a divisor": {
			mutate: func(c *Config) { c.BroadcastHz = 7 },
			errs:   []string{"multiple of BROADCAST_HZ"},
		},
		"capacity above palette": {
			mutate: func(c *Config) { c.RoomCapacity = 5 },
			errs:   []string{"ROOM_CAPACITY"},
		},
		"several problems at once": {
			mutate: func(c *Config) {
				c.RoomCapacity = 0
				c.MatchDuration = 0
				c.LogFormat = "xml"
			},
			errs: []string{"ROOM_CAPACITY", "MATCH_DURATION", "LOG_FORMAT"},
		},
		"zero tick rate": {
			mutate: func(c *Config) { c.SimTickHz = 0 },
			errs:   []string{"SIM_TICK_HZ must be positive"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:      "info",
				LogFormat:     "json",
				SimTickHz:     30,
				BroadcastHz:   15,
				RoomCapacity:  3,
				MatchDuration: time.Minute,
				RespawnDelay:  time.Second,
				CoinCount:     50,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.errs) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.errs {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	InitLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("room", "r1").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"room":"r1"`)
}

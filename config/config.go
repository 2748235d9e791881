package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"coinarena/game"

	"github.com/pixil98/go-errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port          string
	BindAddress   string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	JWTSecret     string
	AdminPassword string
	LogLevel      string
	LogFormat     string
	StaticDir     string

	SimTickHz     int
	BroadcastHz   int
	MaxRooms      int
	RoomCapacity  int
	MatchDuration time.Duration
	RespawnDelay  time.Duration
	CoinCount     int
	ResetOnEnd    bool
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		BindAddress:   getEnv("BIND_ADDRESS", ""),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "coinarena"),
		DBPassword:    getEnv("DB_PASSWORD", "coinarena"),
		DBName:        getEnv("DB_NAME", "coinarena"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		StaticDir:     getEnv("STATIC_DIR", "./public"),

		SimTickHz:     getEnvInt("SIM_TICK_HZ", 30),
		BroadcastHz:   getEnvInt("BROADCAST_HZ", 15),
		MaxRooms:      getEnvInt("MAX_ROOMS", 0),
		RoomCapacity:  getEnvInt("ROOM_CAPACITY", 3),
		MatchDuration: getEnvDuration("MATCH_DURATION", 180*time.Second),
		RespawnDelay:  getEnvDuration("RESPAWN_DELAY", 10*time.Second),
		CoinCount:     getEnvInt("COIN_COUNT", 50),
		ResetOnEnd:    getEnvBool("RESET_ON_END", true),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.SimTickHz <= 0 {
		el.Add(fmt.Errorf("SIM_TICK_HZ must be positive, got %d", c.SimTickHz))
	}
	if c.BroadcastHz <= 0 {
		el.Add(fmt.Errorf("BROADCAST_HZ must be positive, got %d", c.BroadcastHz))
	} else if c.SimTickHz > 0 && c.SimTickHz%c.BroadcastHz != 0 {
		el.Add(fmt.Errorf("SIM_TICK_HZ (%d) must be a multiple of BROADCAST_HZ (%d)", c.SimTickHz, c.BroadcastHz))
	}
	if c.MaxRooms < 0 {
		el.Add(fmt.Errorf("MAX_ROOMS must not be negative, got %d", c.MaxRooms))
	}
	if c.RoomCapacity < 1 || c.RoomCapacity > len(game.Palette) {
		el.Add(fmt.Errorf("ROOM_CAPACITY must be between 1 and %d, got %d", len(game.Palette), c.RoomCapacity))
	}
	if c.MatchDuration <= 0 {
		el.Add(fmt.Errorf("MATCH_DURATION must be positive, got %s", c.MatchDuration))
	}
	if c.RespawnDelay <= 0 {
		el.Add(fmt.Errorf("RESPAWN_DELAY must be positive, got %s", c.RespawnDelay))
	}
	if c.CoinCount <= 0 {
		el.Add(fmt.Errorf("COIN_COUNT must be positive, got %d", c.CoinCount))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		el.Add(fmt.Errorf("LOG_LEVEL: %w", err))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		el.Add(fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}

	return el.Err()
}

// Game builds the room settings from the defaults plus the configured overrides.
func (c *Config) Game() game.Settings {
	s := game.DefaultSettings()
	s.Capacity = c.RoomCapacity
	s.MatchDuration = c.MatchDuration
	s.RespawnDelay = c.RespawnDelay
	s.CoinCount = c.CoinCount
	return s
}

func (c *Config) ListenAddr() string {
	return c.BindAddress + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("not an integer, using default")
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("not a boolean, using default")
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("not a duration, using default")
	return defaultValue
}

// InitLogger configures the global zerolog logger.
func InitLogger(cfg *Config, out io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: "",
		DB:       0,
	})

	return client
}

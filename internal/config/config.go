// Package config loads server settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr        string
	PublicURL       string
	ShutdownTimeout time.Duration

	Log   LogConfig
	Store StoreConfig
	Redis RedisConfig
	Game  GameConfig
	WS    WSConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type StoreConfig struct {
	Driver      string
	DatabaseURL string
}

// RedisConfig is optional; an empty Addr disables the snapshot cache.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	SnapshotTTL time.Duration
}

type GameConfig struct {
	SpeedBonus       bool
	DefaultTimeLimit time.Duration
}

type WSConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	ClientBuffer int
}

// Load reads .env (if any) and then the process environment. Values
// already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		PublicURL:       strings.TrimRight(envOrDefault("PUBLIC_URL", "http://localhost:8080"), "/"),
		ShutdownTimeout: durationEnvOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		Log: LogConfig{
			Level:  envOrDefault("LOG_LEVEL", "info"),
			Format: envOrDefault("LOG_FORMAT", "json"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(envOrDefault("STORE_DRIVER", StoreMemory)),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:        os.Getenv("REDIS_ADDR"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          intEnvOrDefault("REDIS_DB", 0),
			SnapshotTTL: durationEnvOrDefault("SNAPSHOT_TTL", 24*time.Hour),
		},
		Game: GameConfig{
			SpeedBonus:       boolEnvOrDefault("SPEED_BONUS", false),
			DefaultTimeLimit: durationEnvOrDefault("DEFAULT_TIME_LIMIT", 30*time.Second),
		},
		WS: WSConfig{
			PingInterval: durationEnvOrDefault("WS_PING_INTERVAL", 20*time.Second),
			WriteTimeout: durationEnvOrDefault("WS_WRITE_TIMEOUT", 3*time.Second),
			ClientBuffer: intEnvOrDefault("CLIENT_BUFFER", 32),
		},
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

func envOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func durationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func intEnvOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return defaultValue
	}
	return val
}

func boolEnvOrDefault(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if raw == "1" || strings.EqualFold(raw, "true") || strings.EqualFold(raw, "yes") {
		return true
	}
	if raw == "0" || strings.EqualFold(raw, "false") || strings.EqualFold(raw, "no") {
		return false
	}
	return defaultValue
}

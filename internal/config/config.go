package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ListenAddr is fixed infrastructure, not a tunable.
const ListenAddr = ":8080"

const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
	BackendRocksDB  = "rocksdb"
	BackendMemory   = "memory"
)

type Backend struct {
	Kind string
	// Target is the connection string for postgres and the filesystem path
	// for the embedded engines. Empty for memory.
	Target string
}

type Config struct {
	DatabaseURL   string
	Backend       Backend
	LogLevel      string
	LogFile       string
	SocketPath    string
	SweepInterval time.Duration
	RateLimit     float64
	RateBurst     int
}

// Load reads .env (when present) into the environment and then parses it.
// Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse(os.Getenv)
}

// Parse builds a Config from getenv without touching the filesystem.
func Parse(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL: strings.TrimSpace(getenv("DATABASE_URL")),
		LogLevel:    strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL"))),
		LogFile:     strings.TrimSpace(getenv("LOG_FILE")),
		SocketPath:  strings.TrimSpace(getenv("SOCKET_PATH")),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}
	b, err := parseBackend(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("DATABASE_URL: %w", err)
	}
	cfg.Backend = b

	if v := strings.TrimSpace(getenv("SWEEP_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}
	if v := strings.TrimSpace(getenv("RATE_LIMIT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = f
	}
	if v := strings.TrimSpace(getenv("RATE_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("RATE_BURST: %w", err)
		}
		cfg.RateBurst = n
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal; got %s", c.LogLevel)
	}
	if c.SweepInterval < 0 {
		return errors.New("SWEEP_INTERVAL must be >= 0")
	}
	if c.RateLimit < 0 {
		return errors.New("RATE_LIMIT must be >= 0")
	}
	if c.RateBurst < 0 {
		return errors.New("RATE_BURST must be >= 0")
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		c.RateBurst = max(1, int(c.RateLimit))
	}
	return nil
}

func parseBackend(raw string) (Backend, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Backend{}, fmt.Errorf("missing scheme in %q", redact(raw))
	}

	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return Backend{Kind: BackendPostgres, Target: raw}, nil
	case BackendBolt, BackendRocksDB:
		if rest == "" {
			return Backend{}, fmt.Errorf("%s backend needs a path", scheme)
		}
		return Backend{Kind: strings.ToLower(scheme), Target: rest}, nil
	case BackendMemory:
		return Backend{Kind: BackendMemory}, nil
	default:
		return Backend{}, fmt.Errorf("unsupported scheme %q", scheme)
	}
}

// redact drops anything that might be a password before it reaches an error.
func redact(raw string) string {
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		return "***" + raw[i:]
	}
	return raw
}

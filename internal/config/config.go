package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the lethe page cache.
type Config struct {
	DBPath        string
	LogLevel      string
	SentryDSN     string
	Environment   string
	Platform      string
	ServerPort    int
	ShutdownGrace time.Duration
	Archive       ArchiveConfig
	RateLimit     RateLimitConfig
	Concurrency   ConcurrencyConfig
}

// ArchiveConfig locates the page archive and its local staging file.
type ArchiveConfig struct {
	URL  string
	Path string
	// Timeout bounds the whole download. Zero means no limit.
	Timeout time.Duration
}

// RateLimitConfig configures the HTTP token bucket.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

// ConcurrencyConfig sizes the dispatch pools.
type ConcurrencyConfig struct {
	IO          int
	Computation int
}

const (
	defaultDBPath          = "./data/lethe.db"
	defaultLogLevel        = "info"
	defaultEnvironment     = "development"
	defaultPlatform        = "common"
	defaultServerPort      = 8080
	defaultShutdownGrace   = 10 * time.Second
	defaultRateLimitBurst  = 20
	defaultRateLimitRPS    = 10
	defaultRateLimitTTL    = 5 * time.Minute
	defaultIOConcurrency   = 64
	defaultArchiveFileName = "tldr.zip"
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		Platform:      strings.ToLower(getEnv("PLATFORM", defaultPlatform)),
		ShutdownGrace: defaultShutdownGrace,
		Archive: ArchiveConfig{
			URL:  os.Getenv("ARCHIVE_URL"),
			Path: getEnv("ARCHIVE_PATH", defaultArchivePath()),
		},
	}

	var err error
	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %d is out of range", cfg.ServerPort)
	}
	if cfg.Archive.Timeout, err = durationEnv("FETCH_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = floatEnv("RATE_LIMIT_RPS", defaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_CLIENT_TTL", defaultRateLimitTTL); err != nil {
		return nil, err
	}
	if cfg.Concurrency.IO, err = intEnv("IO_CONCURRENCY", defaultIOConcurrency); err != nil {
		return nil, err
	}
	if cfg.Concurrency.Computation, err = intEnv("COMPUTE_CONCURRENCY", runtime.NumCPU()); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultArchivePath() string {
	return filepath.Join(os.TempDir(), defaultArchiveFileName)
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

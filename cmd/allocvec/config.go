package main

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/bouquent/allocator-vec/internal/memory"
)

// EnvPrefix is the prefix of every environment variable the binary reads.
const EnvPrefix = "ALLOCVEC"

// Config is the full binary configuration. The embedded pool settings are read
// from ALLOCVEC_BACKEND, ALLOCVEC_HEAP_LIMIT and ALLOCVEC_DEBUG.
type Config struct {
	memory.Config

	Elements   int   `envconfig:"ELEMENTS" default:"100000"`
	Iterations int   `envconfig:"ITERATIONS" default:"100000"`
	MaxSize    int   `envconfig:"MAX_SIZE" default:"512"`
	Seed       int64 `envconfig:"SEED" default:"1"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:"0.0.0.0:9090"`
	Serve       bool   `envconfig:"SERVE" default:"false"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// Config validation errors
var (
	ErrInvalidBackend     = errors.New("backend must be go, mmap or arrow")
	ErrInvalidHeapLimit   = errors.New("heap_limit must not be negative")
	ErrInvalidElements    = errors.New("elements must not be negative")
	ErrInvalidIterations  = errors.New("iterations must not be negative")
	ErrInvalidMaxSize     = errors.New("max_size must be positive")
	ErrInvalidMetricsAddr = errors.New("metrics_addr cannot be empty when serving")
	ErrInvalidLogFormat   = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel    = errors.New("log_level must be debug, info, warn, or error")
)

// LoadConfig reads the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	switch cfg.Backend {
	case memory.BackendGo, memory.BackendMmap, memory.BackendArrow:
	default:
		return ErrInvalidBackend
	}
	if cfg.HeapLimit < 0 {
		return ErrInvalidHeapLimit
	}
	if cfg.Elements < 0 {
		return ErrInvalidElements
	}
	if cfg.Iterations < 0 {
		return ErrInvalidIterations
	}
	if cfg.MaxSize <= 0 {
		return ErrInvalidMaxSize
	}
	if cfg.Serve && cfg.MetricsAddr == "" {
		return ErrInvalidMetricsAddr
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Config:      memory.DefaultConfig(),
		Elements:    100000,
		Iterations:  100000,
		MaxSize:     512,
		Seed:        1,
		MetricsAddr: "0.0.0.0:9090",
		LogFormat:   "json",
		LogLevel:    "info",
	}
}

// Package config holds the runtime configuration of the chat server.
//
// Precedence order (highest wins):
//  1. command-line flags (BindFlags)
//  2. environment variables
//  3. a .env file, when present
//  4. defaults from the struct tags
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

type Config struct {
	// Listener
	Addr        string `env:"CHAT_ADDR" envDefault:"127.0.0.1:8000"`
	MetricsAddr string `env:"CHAT_METRICS_ADDR"` // empty disables the metrics endpoint

	// Persistence
	SnapshotPath string `env:"CHAT_SNAPSHOT_PATH" envDefault:"backup.gob"`

	// History replay
	HistorySize int           `env:"CHAT_HISTORY_SIZE" envDefault:"20"`
	ReplayDelay time.Duration `env:"CHAT_REPLAY_DELAY" envDefault:"100ms"`

	// Queues
	OutboundBuffer int `env:"CHAT_OUTBOUND_BUFFER" envDefault:"64"`
	EventBuffer    int `env:"CHAT_EVENT_BUFFER" envDefault:"128"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Default returns the configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	// Parsing an empty environment only applies envDefault tags and cannot fail.
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// Load applies the optional dotenv files (".env" when none are given) and then
// the process environment. A missing dotenv file is not an error.
func Load(dotenvFiles ...string) (*Config, error) {
	_ = godotenv.Load(dotenvFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// BindFlags registers a flag for every field, using the current values as
// flag defaults so that unset flags keep environment values.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.Addr, "addr", "a", c.Addr, "Chat listen address")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Prometheus metrics listen address (empty disables)")
	fs.StringVarP(&c.SnapshotPath, "snapshot", "s", c.SnapshotPath, "Snapshot file for users and history")
	fs.IntVar(&c.HistorySize, "history", c.HistorySize, "Number of broadcasts kept for replay")
	fs.DurationVar(&c.ReplayDelay, "replay-delay", c.ReplayDelay, "Pause between replayed history messages")
	fs.IntVar(&c.OutboundBuffer, "outbound-buffer", c.OutboundBuffer, "Per-session outbound queue length")
	fs.IntVar(&c.EventBuffer, "event-buffer", c.EventBuffer, "Router event queue length")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: json, text")
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("CHAT_ADDR is required")
	}
	if c.SnapshotPath == "" {
		return fmt.Errorf("CHAT_SNAPSHOT_PATH is required")
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("CHAT_HISTORY_SIZE must be > 0, got %d", c.HistorySize)
	}
	if c.ReplayDelay < 0 {
		return fmt.Errorf("CHAT_REPLAY_DELAY must not be negative, got %s", c.ReplayDelay)
	}
	if c.OutboundBuffer < 1 {
		return fmt.Errorf("CHAT_OUTBOUND_BUFFER must be > 0, got %d", c.OutboundBuffer)
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("CHAT_EVENT_BUFFER must be > 0, got %d", c.EventBuffer)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

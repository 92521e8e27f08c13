package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" toml:"server"`
	Control   ControlConfig   `json:"control" yaml:"control" toml:"control"`
	Terminal  TerminalConfig  `json:"terminal" yaml:"terminal" toml:"terminal"`
	Logging   LogConfig       `json:"logging" yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds the UI gateway configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"45893" json:"port" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" json:"host" yaml:"host" toml:"host"`
}

// ControlConfig holds control-plane socket configuration.
// Empty Network/Address select the platform default endpoint.
type ControlConfig struct {
	Enabled      bool          `envconfig:"CONTROL_ENABLED" default:"true" json:"enabled" yaml:"enabled" toml:"enabled"`
	Network      string        `envconfig:"CONTROL_NETWORK" json:"network" yaml:"network" toml:"network"`
	Address      string        `envconfig:"CONTROL_ADDRESS" json:"address" yaml:"address" toml:"address"`
	ReplyTimeout time.Duration `envconfig:"CONTROL_REPLY_TIMEOUT" default:"30s" json:"reply_timeout" yaml:"reply_timeout" toml:"reply_timeout"`
}

// TerminalConfig holds pty session defaults.
type TerminalConfig struct {
	Shell       string `envconfig:"TERMINAL_SHELL" json:"shell" yaml:"shell" toml:"shell"`
	BufferBytes int    `envconfig:"TERMINAL_BUFFER_BYTES" default:"102400" json:"buffer_bytes" yaml:"buffer_bytes" toml:"buffer_bytes"`
	Cols        int    `envconfig:"TERMINAL_COLS" default:"80" json:"cols" yaml:"cols" toml:"cols"`
	Rows        int    `envconfig:"TERMINAL_ROWS" default:"24" json:"rows" yaml:"rows" toml:"rows"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" json:"level" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" json:"development" yaml:"development" toml:"development"`
	Output      string `envconfig:"LOG_OUTPUT" default:"stderr" json:"output" yaml:"output" toml:"output"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" json:"burst" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" json:"enabled" yaml:"enabled" toml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "45893",
			Host: "127.0.0.1",
		},
		Control: ControlConfig{
			Enabled:      true,
			ReplyTimeout: 30 * time.Second,
		},
		Terminal: TerminalConfig{
			BufferBytes: 100 * 1024,
			Cols:        80,
			Rows:        24,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			Output:      "stderr",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Addr returns the gateway listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Render serializes cfg in the given format: "yaml", "toml" or "json".
func Render(cfg *Config, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		return yaml.Marshal(cfg)
	case "toml":
		return toml.Marshal(cfg)
	case "json":
		return sonic.MarshalIndent(cfg, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported config format: %q", format)
	}
}

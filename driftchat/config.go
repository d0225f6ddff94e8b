package driftchat

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls how the SDK connects.
type Config struct {
	// BaseURL is the REST origin, e.g. "https://api.example.com".
	BaseURL string `yaml:"base_url"`
	// SocketURL is the realtime endpoint, e.g. "wss://api.example.com/ws".
	SocketURL string `yaml:"socket_url"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`

	// HeartbeatInterval is the fixed bidirectional heartbeat cadence. Two
	// missed intervals count as a transport failure.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// ReconnectBackoff is the fixed delay before a retry. Constant rather
	// than exponential: connections are short-lived and screen-bound.
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`

	// HistoryPageSize bounds one history fetch.
	HistoryPageSize int `yaml:"history_page_size"`

	// VerifyPaths lists endpoints where a 401 means "input was wrong" rather
	// than "session expired". Requests to these paths never invalidate the
	// session.
	VerifyPaths []string `yaml:"verify_paths"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		ReconnectBackoff:  3 * time.Second,
		HistoryPageSize:   50,
		VerifyPaths: []string{
			"/auth/verify-password",
			"/auth/verify-code",
		},
	}
}

// LoadConfig reads a YAML config file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.HeartbeatInterval < 0 || c.ReconnectBackoff < 0 {
		return NewError(ErrorInvalidConfig, "negative interval")
	}
	if c.HistoryPageSize < 0 {
		return NewError(ErrorInvalidConfig, "negative history page size")
	}
	return nil
}

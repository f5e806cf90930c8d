package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full alertd configuration.
type Config struct {
	// Platform selects the permission capability profile: "apple" or
	// "android". Resolved once at startup.
	Platform string `json:"platform"`

	Logging LoggingConfig  `json:"logging"`
	HTTP    HTTPConfig     `json:"http"`
	Gateway GatewayConfig  `json:"gateway"`
	Storage *StorageConfig `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// HTTPConfig controls the admin API server.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8080"
}

// GatewayConfig selects the notification delivery driver.
//
// Driver values:
//   - "memory": in-process gateway (development, tests)
//   - "telegram": deliver notifications to a Telegram chat
type GatewayConfig struct {
	Driver   string          `json:"driver"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type TelegramConfig struct {
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec,omitempty"` // default 3
}

// StorageConfig controls the optional settings persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./alertd_store.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Validate checks the cross-field constraints that strict decoding can't.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Platform)) {
	case "apple", "android":
	case "":
		return fmt.Errorf("platform is required (apple or android)")
	default:
		return fmt.Errorf("unknown platform %q", c.Platform)
	}

	switch strings.ToLower(strings.TrimSpace(c.Gateway.Driver)) {
	case "", "memory":
	case "telegram":
		if c.Gateway.Telegram == nil || strings.TrimSpace(c.Gateway.Telegram.Token) == "" {
			return fmt.Errorf("gateway.telegram.token is required for the telegram driver")
		}
		if c.Gateway.Telegram.ChatID == 0 {
			return fmt.Errorf("gateway.telegram.chat_id is required for the telegram driver")
		}
	default:
		return fmt.Errorf("unknown gateway driver %q", c.Gateway.Driver)
	}

	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

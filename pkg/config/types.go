package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Transport TransportConfig `yaml:"transport"`
	Squash    SquashConfig    `yaml:"squash"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig holds the admin HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig holds archive database settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// TransportConfig holds the NATS bridge settings.
type TransportConfig struct {
	URL           string   `yaml:"url"`
	SubjectPrefix string   `yaml:"subject_prefix"`
	RPCTimeout    Duration `yaml:"rpc_timeout"`
	RateLimit     struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// SquashConfig holds the chain/merge tunables.
type SquashConfig struct {
	// MaxMessageLen is the transport-imposed message length ceiling.
	MaxMessageLen int `yaml:"max_message_len"`
	// MarkerWindow is how many recent self messages are scanned when
	// closing a chain.
	MarkerWindow int `yaml:"marker_window"`
	// SmartWindow bounds the history walk of smart-mode squash.
	SmartWindow int `yaml:"smart_window"`
	// Autosquash enables real-time merging at startup.
	Autosquash bool `yaml:"autosquash"`
	// DryRun reports would-be mutations without performing them.
	DryRun bool `yaml:"dry_run"`
	// ToggleCleanupDelay is how long the toggle confirmation stays
	// visible before it is self-deleted.
	ToggleCleanupDelay Duration `yaml:"toggle_cleanup_delay"`
}

// EventsConfig holds the inbound event queue tunables.
type EventsConfig struct {
	QueueCapacity        int       `yaml:"queue_capacity"`
	Workers              int       `yaml:"workers"`
	MaxPooledBufferBytes SizeBytes `yaml:"max_pooled_buffer_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

// RetentionConfig holds configuration for the archive purge runner.
type RetentionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Period  string `yaml:"period"`
}

// Addr returns the admin listen address in host:port form.
func (c *Config) Addr() string {
	if c.Server.Address == "" && c.Server.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration wraps time.Duration with YAML parsing from strings like "100ms"
// or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

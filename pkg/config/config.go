package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied after merging file and env sources. The squash constants
// mirror the transport limits of the chat network the bridge talks to.
const (
	DefaultMaxMessageLen = 4096
	DefaultMarkerWindow  = 10
	DefaultSmartWindow   = 100
)

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveConfigPath picks the config path: an explicitly set flag wins,
// then the SQUASHD_CONFIG env var, then the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := os.Getenv("SQUASHD_CONFIG"); v != "" {
		return v
	}
	return flagVal
}

// LoadEffective merges the config file (when present) with environment
// overrides and fills in defaults. Env values win over file values; flags
// are applied by the caller on top. The returned bool reports whether any
// env override was used.
func LoadEffective(path string) (*Config, bool, error) {
	cfg := &Config{}
	if path != "" {
		if fc, err := Load(path); err == nil {
			cfg = fc
		} else if !os.IsNotExist(err) {
			return nil, false, err
		}
	}
	envUsed := applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, envUsed, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" && cfg.Server.Port == 0 {
		cfg.Server.Address = ""
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "./.database"
	}
	if cfg.Transport.URL == "" {
		cfg.Transport.URL = "nats://localhost:4222"
	}
	if cfg.Transport.SubjectPrefix == "" {
		cfg.Transport.SubjectPrefix = "chat"
	}
	if cfg.Transport.RPCTimeout.Duration() == 0 {
		cfg.Transport.RPCTimeout = Duration(10 * time.Second)
	}
	if cfg.Squash.MaxMessageLen == 0 {
		cfg.Squash.MaxMessageLen = DefaultMaxMessageLen
	}
	if cfg.Squash.MarkerWindow == 0 {
		cfg.Squash.MarkerWindow = DefaultMarkerWindow
	}
	if cfg.Squash.SmartWindow == 0 {
		cfg.Squash.SmartWindow = DefaultSmartWindow
	}
	if cfg.Squash.ToggleCleanupDelay.Duration() == 0 {
		cfg.Squash.ToggleCleanupDelay = Duration(3 * time.Second)
	}
	if cfg.Events.QueueCapacity == 0 {
		cfg.Events.QueueCapacity = 4096
	}
	if cfg.Events.Workers == 0 {
		cfg.Events.Workers = 8
	}
	if cfg.Events.MaxPooledBufferBytes == 0 {
		cfg.Events.MaxPooledBufferBytes = 256 * 1024
	}
}

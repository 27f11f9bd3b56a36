package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	NATS   string
	DryRun bool
	Set    map[string]bool
}

// ParseConfigFlags parses command-line flags and returns them as a Flags
// struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "admin HTTP listen address")
	dbPtr := flag.String("db", "./.database", "archive DB path")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	natsPtr := flag.String("nats", "", "NATS bridge URL")
	dryPtr := flag.Bool("dry-run", false, "report actions without executing them")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, NATS: *natsPtr, DryRun: *dryPtr, Set: setFlags}
}

// Apply overlays explicitly-set flags onto cfg. Flags win over env and file.
func (f Flags) Apply(cfg *Config) {
	if f.Set["addr"] {
		if h, p, err := net.SplitHostPort(f.Addr); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = f.Addr
		}
	}
	if f.Set["db"] {
		cfg.Storage.DBPath = f.DB
	}
	if f.Set["nats"] {
		cfg.Transport.URL = f.NATS
	}
	if f.Set["dry-run"] {
		cfg.Squash.DryRun = f.DryRun
	}
}

// applyEnv reads SQUASHD_* environment overrides into cfg and reports
// whether any override was present.
func applyEnv(cfg *Config) bool {
	used := false

	if v := os.Getenv("SQUASHD_SERVER_ADDR"); v != "" {
		used = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("SQUASHD_DB_PATH"); v != "" {
		used = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("SQUASHD_NATS_URL"); v != "" {
		used = true
		cfg.Transport.URL = v
	}
	if v := os.Getenv("SQUASHD_SUBJECT_PREFIX"); v != "" {
		used = true
		cfg.Transport.SubjectPrefix = v
	}
	if v := os.Getenv("SQUASHD_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			used = true
			cfg.Transport.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("SQUASHD_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			used = true
			cfg.Transport.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("SQUASHD_MAX_MESSAGE_LEN"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			used = true
			cfg.Squash.MaxMessageLen = n
		}
	}
	if v := os.Getenv("SQUASHD_AUTOSQUASH"); v != "" {
		used = true
		cfg.Squash.Autosquash = parseBool(v)
	}
	if v := os.Getenv("SQUASHD_DRY_RUN"); v != "" {
		used = true
		cfg.Squash.DryRun = parseBool(v)
	}
	if v := os.Getenv("SQUASHD_LOG_LEVEL"); v != "" {
		used = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SQUASHD_LOG_FORMAT"); v != "" {
		used = true
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SQUASHD_RETENTION_ENABLED"); v != "" {
		used = true
		cfg.Retention.Enabled = parseBool(v)
	}
	if v := os.Getenv("SQUASHD_RETENTION_CRON"); v != "" {
		used = true
		cfg.Retention.Cron = v
	}
	if v := os.Getenv("SQUASHD_RETENTION_PERIOD"); v != "" {
		used = true
		cfg.Retention.Period = v
	}
	return used
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

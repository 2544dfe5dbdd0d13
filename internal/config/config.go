// Package config loads runtime settings for the TutorLink client.
//
// Precedence: defaults, then a JSON file (-c/-config), then command-line
// flags. Later sources override earlier ones.
package config

import "time"

// Config holds runtime settings for the TutorLink CLI.
//
// Fields:
//   - ServerEndpointURL: base URL of the tutor backend.
//   - DatabasePath / KeyPath: secure store database and key file locations.
//   - MetricsAddr: listen address for the Prometheus endpoint; empty disables it.
//   - OnlineCheckInterval / ProbeTimeout: reachability probe cadence and per-probe timeout.
//   - MaxOfflineWindow: grace window for offline authentication.
//   - SyncInterval: staleness threshold after which a background resync is due.
//   - ExpiryWarnThreshold: remaining-validity level at which status warns the user.
type Config struct {
	ServerEndpointURL   string
	DatabasePath        string
	KeyPath             string
	MetricsAddr         string
	OnlineCheckInterval time.Duration
	ProbeTimeout        time.Duration
	MaxOfflineWindow    time.Duration
	SyncInterval        time.Duration
	ExpiryWarnThreshold time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointURL = "http://127.0.0.1:8000"
	c.DatabasePath = "tutorlink.db"
	c.KeyPath = "tutorlink.key"
	c.MetricsAddr = ""
	c.OnlineCheckInterval = 30 * time.Second
	c.ProbeTimeout = 10 * time.Second
	c.MaxOfflineWindow = 7 * 24 * time.Hour
	c.SyncInterval = time.Hour
	c.ExpiryWarnThreshold = 24 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

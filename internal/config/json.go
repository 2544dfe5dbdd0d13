package config

import (
	"encoding/json"
	"os"

	"github.com/sciqlabs/tutorlink/internal/flagx"
	"github.com/sciqlabs/tutorlink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds. Zero-valued fields are left at their previous
// (default) values.
type JsonConfig struct {
	ServerEndpointURL   string         `json:"server_endpoint_url"`
	DatabasePath        string         `json:"database_path"`
	KeyPath             string         `json:"key_path"`
	MetricsAddr         string         `json:"metrics_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ProbeTimeout        timex.Duration `json:"probe_timeout"`
	MaxOfflineWindow    timex.Duration `json:"max_offline_window"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	ExpiryWarnThreshold timex.Duration `json:"expiry_warn_threshold"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Absent file path means no JSON stage. Panics on read or
// unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointURL != "" {
		cfg.ServerEndpointURL = jc.ServerEndpointURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.KeyPath != "" {
		cfg.KeyPath = jc.KeyPath
	}
	if jc.MetricsAddr != "" {
		cfg.MetricsAddr = jc.MetricsAddr
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.ProbeTimeout.Duration != 0 {
		cfg.ProbeTimeout = jc.ProbeTimeout.Duration
	}
	if jc.MaxOfflineWindow.Duration != 0 {
		cfg.MaxOfflineWindow = jc.MaxOfflineWindow.Duration
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.ExpiryWarnThreshold.Duration != 0 {
		cfg.ExpiryWarnThreshold = jc.ExpiryWarnThreshold.Duration
	}
}

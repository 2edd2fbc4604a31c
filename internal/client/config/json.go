package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/flagx"
	"github.com/dmitrijs2005/quotesync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds. After parsing, set values
// are copied into the runtime Config.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	DeviceIDPath       string         `json:"device_id_path"`
	StatusAddr         string         `json:"status_addr"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	ProbeInterval      timex.Duration `json:"probe_interval"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	Fanout             int            `json:"fanout"`
	RetryBase          timex.Duration `json:"retry_base"`
	RetryMaxDelay      timex.Duration `json:"retry_max_delay"`
	RetryJitter        timex.Duration `json:"retry_jitter"`
	MaxRetries         int            `json:"max_retries"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only fields present (non-zero) in the JSON overlay the config, so a
// partial file keeps the defaults for everything it omits. Panics on read
// or unmarshal errors.
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

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.DeviceIDPath, jc.DeviceIDPath)
	setString(&cfg.StatusAddr, jc.StatusAddr)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)
	setDuration(&cfg.ProbeInterval, jc.ProbeInterval)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.RetryBase, jc.RetryBase)
	setDuration(&cfg.RetryMaxDelay, jc.RetryMaxDelay)
	setDuration(&cfg.RetryJitter, jc.RetryJitter)
	if jc.Fanout > 0 {
		cfg.Fanout = jc.Fanout
	}
	if jc.MaxRetries > 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

package config

import "time"

// Config holds runtime settings for the quote sync engine.
//
// Units: all intervals are time.Duration values.
type Config struct {
	// ServerEndpointAddr is the base URL of the quote REST API.
	ServerEndpointAddr string
	// DatabaseDSN is the SQLite file path of the local store.
	DatabaseDSN string
	// DeviceIDPath is where the persistent device identity file lives.
	DeviceIDPath string
	// StatusAddr is the listen address of the local status API.
	StatusAddr string

	// SyncInterval is the periodic drain cadence while online.
	SyncInterval time.Duration
	// ProbeInterval is how often reachability is probed when no platform
	// events are available.
	ProbeInterval time.Duration
	// RequestTimeout bounds each HTTP request to the server.
	RequestTimeout time.Duration
	// Fanout caps concurrent in-flight queue items during a drain.
	Fanout int

	// Retry schedule for failed queue items.
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	RetryJitter   time.Duration
	MaxRetries    int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "quotes.db"
	c.DeviceIDPath = "device_id"
	c.StatusAddr = "127.0.0.1:8990"
	c.SyncInterval = 30 * time.Second
	c.ProbeInterval = 3 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.Fanout = 4
	c.RetryBase = 2 * time.Second
	c.RetryMaxDelay = 5 * time.Minute
	c.RetryJitter = 500 * time.Millisecond
	c.MaxRetries = 8
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BrokerURL is the MQTT broker endpoint, e.g. "tcp://localhost:1883".
	BrokerURL string `koanf:"broker_url"`

	// BrokerClientID identifies this process to the broker.
	BrokerClientID string `koanf:"broker_client_id"`

	// PublishTimeoutMS bounds how long a frame publish may wait for a
	// broker acknowledgement.
	PublishTimeoutMS int `koanf:"publish_timeout_ms"`

	// ResultQueueSize bounds each per-topic result queue.
	ResultQueueSize int `koanf:"result_queue_size"`

	// StoreDSN selects the SQLite database file. Empty keeps results in
	// memory only.
	StoreDSN string `koanf:"store_dsn"`

	// SparseMax, ModerateMax and CrowdedMax are the occupancy-ratio
	// boundaries for crowd status classification.
	SparseMax   float64 `koanf:"sparse_max"`
	ModerateMax float64 `koanf:"moderate_max"`
	CrowdedMax  float64 `koanf:"crowded_max"`

	// FatigueLabels is the set of labels accepted from fatigue workers.
	FatigueLabels []string `koanf:"fatigue_labels"`

	// WSReadLimit caps the size of a single inbound WebSocket message.
	WSReadLimit int64 `koanf:"ws_read_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		BrokerURL:        "tcp://localhost:1883",
		BrokerClientID:   "vigil-router",
		PublishTimeoutMS: 5000,
		ResultQueueSize:  1024,
		StoreDSN:         "vigil.db",
		SparseMax:        0.33,
		ModerateMax:      0.66,
		CrowdedMax:       1.0,
		FatigueLabels:    []string{"active", "tired", "exhausted"},
		WSReadLimit:      8 << 20,
	}
}

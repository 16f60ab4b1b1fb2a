package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if VIGIL_CONFIG is set
//  3. env (prefix VIGIL_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VIGIL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VIGIL_ADDR, VIGIL_BROKER_URL, ...
	// Map env keys like VIGIL_BROKER_URL -> broker_url (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VIGIL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vigil_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot start with. A bad
// threshold ordering is fatal rather than silently reordered.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.BrokerURL == "" {
		return fmt.Errorf("%w: broker_url must not be empty", ErrInvalidConfig)
	}
	if c.PublishTimeoutMS <= 0 {
		return fmt.Errorf("%w: publish_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.ResultQueueSize <= 0 {
		return fmt.Errorf("%w: result_queue_size must be positive", ErrInvalidConfig)
	}
	if c.SparseMax <= 0 || c.SparseMax >= c.ModerateMax || c.ModerateMax >= c.CrowdedMax {
		return fmt.Errorf("%w: thresholds must satisfy 0 < sparse_max < moderate_max < crowded_max", ErrInvalidConfig)
	}
	if len(c.FatigueLabels) == 0 {
		return fmt.Errorf("%w: fatigue_labels must not be empty", ErrInvalidConfig)
	}
	if c.WSReadLimit <= 0 {
		return fmt.Errorf("%w: ws_read_limit must be positive", ErrInvalidConfig)
	}
	return nil
}

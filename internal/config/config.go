// Package config loads the worker configuration from YAML and validates
// it against an embedded CUE schema before use.
package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// schema is the CUE constraint every config file must satisfy.
const schema = `
{
	database: {
		path: string & !=""
	}
	bus: {
		backend: "memory" | "nats"
		if backend == "nats" {
			nats: {
				url:     string & !=""
				stream:  *"PREDICTOR" | string
				subject: *"predictor.rebuild" | string
				durable: *"predictor-worker" | string
			}
		}
	}
}
`

// NATSConfig locates the JetStream work queue.
type NATSConfig struct {
	URL     string `yaml:"url" json:"url"`
	Stream  string `yaml:"stream" json:"stream"`
	Subject string `yaml:"subject" json:"subject"`
	Durable string `yaml:"durable" json:"durable"`
}

// BusConfig selects the Job Bus backend.
type BusConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	NATS    *NATSConfig `yaml:"nats,omitempty" json:"nats,omitempty"`
}

// DatabaseConfig locates the SQLite entity store.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Config is the full worker configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Bus      BusConfig      `yaml:"bus" json:"bus"`
}

// Load reads, decodes and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks a decoded config against the CUE schema.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()

	constraint := ctx.CompileString(schema)
	if err := constraint.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := constraint.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

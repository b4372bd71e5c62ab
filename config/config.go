package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/asynckit/asynckit/errors"
)

// Duration is a time.Duration that decodes from TOML strings like "5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the runtime configuration, loaded from a TOML file such as
// asynckit.toml.
type Config struct {
	Pool      PoolConfig      `toml:"pool"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	Workers      int      `toml:"workers"`
	QueueDepth   int      `toml:"queue_depth"`
	DrainTimeout Duration `toml:"drain_timeout"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Protocol string `toml:"protocol"` // "grpc", "http", or "none"
	Insecure bool   `toml:"insecure"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Pool: PoolConfig{
			Workers:      0, // pool falls back to GOMAXPROCS
			QueueDepth:   0, // pool falls back to workers*2
			DrainTimeout: Duration(30 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Protocol: "none",
		},
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.WrapWithCode(err, errors.CodeInvalidConfig,
			fmt.Sprintf("parsing %s", path))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration, reporting every problem at once.
func (c Config) Validate() error {
	var problems *multierror.Error

	if c.Pool.Workers < 0 {
		problems = multierror.Append(problems,
			fmt.Errorf("pool.workers must not be negative, got %d", c.Pool.Workers))
	}
	if c.Pool.QueueDepth < 0 {
		problems = multierror.Append(problems,
			fmt.Errorf("pool.queue_depth must not be negative, got %d", c.Pool.QueueDepth))
	}
	if c.Pool.DrainTimeout < 0 {
		problems = multierror.Append(problems,
			fmt.Errorf("pool.drain_timeout must not be negative"))
	}

	switch c.Telemetry.Protocol {
	case "", "grpc", "http", "none":
	default:
		problems = multierror.Append(problems,
			fmt.Errorf("telemetry.protocol must be grpc, http, or none, got %q", c.Telemetry.Protocol))
	}
	if c.Telemetry.Enabled && c.Telemetry.Protocol == "none" {
		problems = multierror.Append(problems,
			fmt.Errorf("telemetry.enabled requires a protocol"))
	}

	if err := problems.ErrorOrNil(); err != nil {
		return errors.WrapWithCode(err, errors.CodeInvalidConfig, "invalid configuration")
	}
	return nil
}

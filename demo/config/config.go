// Package config loads the demo server configuration.
//
// Configuration comes from defaults, an optional YAML file, and environment
// variables, in that order of precedence (environment wins).
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tkrause/scopekit/internal/errors"
)

// Environment variables recognized by Load.
const (
	envAddr     = "SCOPEDEMO_ADDR"
	envLogLevel = "SCOPEDEMO_LOG_LEVEL"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Duration is a [time.Duration] that unmarshals from YAML duration strings
// such as "10s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level"`

	// Development enables the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the YAML file at path, if path is not empty,
// and applies environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "config: read file")
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(err, "config: parse file")
		}
	}

	if addr := os.Getenv(envAddr); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv(envLogLevel); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config captures defaults read from a test-runner config file. Command-line
// flags given explicitly take precedence over every field.
type Config struct {
	Retry      int    `toml:"retry" yaml:"retry"`
	Exact      bool   `toml:"exact" yaml:"exact"`
	CanFail    bool   `toml:"can_fail" yaml:"can_fail"`
	RawTimeout string `toml:"timeout" yaml:"timeout"` // e.g. "30s"; empty waits forever
	MaxOutput  int    `toml:"max_output" yaml:"max_output"`
	Color      string `toml:"color" yaml:"color"`
	Width      int    `toml:"width" yaml:"width"`
	Verbose    bool   `toml:"verbose" yaml:"verbose"`
}

var (
	// ErrNegativeRetry indicates a retry count below zero.
	ErrNegativeRetry = errors.New("config.retry must not be negative")
	// ErrInvalidColor indicates the color mode is not recognized.
	ErrInvalidColor = errors.New("config.color must be auto, always, or never")
	// ErrInvalidTimeout indicates the timeout is not a non-negative duration.
	ErrInvalidTimeout = errors.New("config.timeout must be a non-negative duration such as 30s")
	// ErrNegativeWidth indicates a negative diagnostic width.
	ErrNegativeWidth = errors.New("config.width must not be negative")
	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("config file must end in .toml, .yaml, or .yml")
)

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Retry <= 0 {
		c.Retry = 1
	}
	c.Color = strings.ToLower(strings.TrimSpace(c.Color))
	if c.Color == "" {
		c.Color = "auto"
	}
}

// Timeout returns the parsed per-attempt timeout, or zero for none.
func (c Config) Timeout() time.Duration {
	if c.RawTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RawTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Validate ensures the configuration can drive a run.
func (c Config) Validate() error {
	switch c.Color {
	case "auto", "always", "never":
	default:
		return ErrInvalidColor
	}
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil || d < 0 {
			return ErrInvalidTimeout
		}
	}
	if c.Width < 0 {
		return ErrNegativeWidth
	}
	return nil
}

// Load reads a TOML or YAML configuration, chosen by file extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Retry < 0 {
		return Config{}, ErrNegativeRetry
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Package config defines the configuration of the arcseq pass.
//
// A configuration is a YAML document, for example:
//
//	retain: [retain, Obj.Retain]
//	release: [release, Obj.Release]
//	freeze_owned_arg_epilogue_releases: true
//	max_iterations: 4
//	workers: 4
//	log:
//	  level: debug
//	  development: true
//	  output: [stderr]
//
// Missing fields take their values from Default.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the pass configuration.
type Config struct {
	// Retain lists the functions (name or Type.method) that increment the
	// reference count of their first argument.
	Retain []string `yaml:"retain"`
	// Release lists the functions that decrement the reference count of
	// their first argument.
	Release []string `yaml:"release"`

	FreezeOwnedArgEpilogueReleases bool `yaml:"freeze_owned_arg_epilogue_releases"`

	MaxIterations int `yaml:"max_iterations"` // Bound of RunOnLoop rounds per function.
	Workers       int `yaml:"workers"`        // Functions analysed in parallel.

	Log Log `yaml:"log"`
}

// Log is the logging section of Config.
type Log struct {
	Level       string   `yaml:"level"`
	Development bool     `yaml:"development"`
	Output      []string `yaml:"output"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Retain:                         []string{"retain"},
		Release:                        []string{"release"},
		FreezeOwnedArgEpilogueReleases: true,
		MaxIterations:                  4,
		Workers:                        4,
		Log: Log{
			Level:  "info",
			Output: []string{"stderr"},
		},
	}
}

// Parse reads a configuration from YAML b on top of the defaults.
func Parse(b []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %s", path)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return c, nil
}

// Validate checks that c is usable.
func (c *Config) Validate() error {
	if c.MaxIterations < 1 {
		return errors.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	seen := make(map[string]bool)
	for _, name := range c.Retain {
		seen[name] = true
	}
	for _, name := range c.Release {
		if seen[name] {
			return errors.Errorf("%s is both a retain and a release function", name)
		}
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	return nil
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal config")
	}
	return b, nil
}

// Logger builds the zap logger described by the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Log.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}
	cfg.Level = level
	if len(c.Log.Output) > 0 {
		cfg.OutputPaths = c.Log.Output
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create logger")
	}
	return l, nil
}

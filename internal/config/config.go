// Package config loads mvtfilter's configuration from CLI flags, an
// optional config file, and environment variables, via viper.
package config

import (
	"mvtfilter/internal"

	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one run.
type Config struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`

	Filter string `mapstructure:"filter"`

	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Attribution string `mapstructure:"attribution"`

	Concurrency int  `mapstructure:"concurrency"`
	Lenient     bool `mapstructure:"lenient"`
	DryRun      bool `mapstructure:"dry_run"`
	Progress    bool `mapstructure:"progress"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls the logrus-backed logger.
type LoggingConfig struct {
	Verbose bool   `mapstructure:"verbose"`
	Format  string `mapstructure:"format"` // "text" or "json"
}

// SetDefaults installs every default value a fresh viper instance needs
// before binding CLI flags on top of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("concurrency", 0) // 0 means runtime.NumCPU()
	v.SetDefault("lenient", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("progress", false)
	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.format", "text")
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "unmarshal configuration", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

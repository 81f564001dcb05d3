package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix for environment overrides (CLONK_VERBOSE, CLONK_TIMEOUT, ...)
	EnvPrefix = "CLONK"

	configDir  = ".clonk"
	configFile = "config.yaml"
)

// Config holds CLI settings resolved from flags, environment and the config file
type Config struct {
	Verbose   bool          `mapstructure:"verbose"`
	JSON      bool          `mapstructure:"json"`
	Timeout   time.Duration `mapstructure:"timeout"`    // 0 means no client timeout
	LogLevel  string        `mapstructure:"log_level"`  // debug | info | warn | error
	LogFormat string        `mapstructure:"log_format"` // json | text
}

// NewViper creates a new viper instance with defaults and environment binding.
// If configPath names an existing file it is read as YAML.
func NewViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("verbose", false)
	v.SetDefault("json", false)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")

	// Bind environment variables with CLONK_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		return v, nil
	}
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return v, nil
}

// DefaultConfigPath returns <home>/.clonk/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir, configFile), nil
}

// LoadWithViper loads configuration using a pre-configured viper instance.
// CLI flags are bound to v before this is called.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be debug, info, warn, or error")
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format must be json or text")
	}

	return nil
}

// EffectiveLogLevel returns the log level, raised to debug when verbose is set
func (c *Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the config reads.
const EnvPrefix = "CHANGE_SCORER"

// Defaults for settings that have one.
const (
	DefaultPort               = 8080
	DefaultLogFormat          = "text"
	DefaultLogLevel           = "info"
	DefaultBatchWorkers       = 4
	DefaultRateLimit          = 10.0
	DefaultRateBurst          = 20
	DefaultJWTExpirationHours = 24
	DefaultBcryptCost         = 12
)

// Config is the resolved runtime configuration. Values come from, in order of
// precedence: flags bound to the viper instance, CHANGE_SCORER_* environment
// variables, an optional YAML config file, then the defaults above.
type Config struct {
	Port         int     `mapstructure:"port"`
	DatabaseURL  string  `mapstructure:"database-url"`
	LogFormat    string  `mapstructure:"log-format"`
	LogLevel     string  `mapstructure:"log-level"`
	BatchWorkers int     `mapstructure:"batch-workers"`
	RateLimit    float64 `mapstructure:"rate-limit"` // requests per second per client
	RateBurst    int     `mapstructure:"rate-burst"`

	JWTSecret          string `mapstructure:"jwt-secret"`
	JWTExpirationHours int    `mapstructure:"jwt-expiration-hours"`
	BcryptCost         int    `mapstructure:"bcrypt-cost"`
	PasswordPepper     string `mapstructure:"password-pepper"`

	// Weights holds per-calculator overrides, e.g. weights.risk.impactScope: 2.
	Weights map[string]map[string]float64 `mapstructure:"weights"`
}

// NewViper returns a viper instance with defaults and environment binding set
// up. Callers bind their flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", DefaultPort)
	v.SetDefault("database-url", "")
	v.SetDefault("log-format", DefaultLogFormat)
	v.SetDefault("log-level", DefaultLogLevel)
	v.SetDefault("batch-workers", DefaultBatchWorkers)
	v.SetDefault("rate-limit", DefaultRateLimit)
	v.SetDefault("rate-burst", DefaultRateBurst)
	v.SetDefault("jwt-secret", "")
	v.SetDefault("jwt-expiration-hours", DefaultJWTExpirationHours)
	v.SetDefault("bcrypt-cost", DefaultBcryptCost)
	v.SetDefault("password-pepper", "")

	// Unprefixed names kept for compatibility with existing deployments.
	_ = v.BindEnv("database-url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("jwt-secret", EnvPrefix+"_JWT_SECRET", "JWT_SECRET")

	return v
}

// Load reads the optional config file and resolves all values into a Config.
// An empty configFile searches for .change-scorer.yaml in the working
// directory and $HOME; a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".change-scorer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Secrets are not required here; the commands that need them check.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("config error: 'batch-workers' must be at least 1")
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("config error: 'rate-limit' and 'rate-burst' must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config error: 'log-format' must be text or json, got %q", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config error: 'log-level' must be debug, info, warn or error, got %q", c.LogLevel)
	}

	for kind := range c.Weights {
		if _, err := c.WeightTable(scoring.Kind(strings.ToLower(kind))); err != nil {
			return err
		}
	}
	return nil
}

// WeightTable returns the configured override for a calculator, or nil when
// none is set. Factor names match case-insensitively, since viper folds keys
// to lower case. The override is meant to be merged over the defaults.
func (c *Config) WeightTable(kind scoring.Kind) (scoring.WeightTable, error) {
	var raw map[string]float64
	for k, table := range c.Weights {
		if strings.EqualFold(k, string(kind)) {
			raw = table
			break
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	if scoring.FactorsFor(kind) == nil {
		return nil, fmt.Errorf("config error: unknown calculator %q under 'weights'", kind)
	}

	out := make(scoring.WeightTable, len(raw))
	for name, w := range raw {
		factor, ok := scoring.MatchFactor(kind, name)
		if !ok {
			return nil, fmt.Errorf("config error: unknown %s factor %q", kind, name)
		}
		if w <= 0 {
			return nil, fmt.Errorf("config error: weight for %s.%s must be positive, got %v", kind, factor, w)
		}
		out[factor] = w
	}
	return out, nil
}

// JWT returns the token settings, failing when no secret is configured.
func (c *Config) JWT() (*JWTConfig, error) {
	return NewJWTConfig(c.JWTSecret, c.JWTExpirationHours)
}

// Password returns the hashing settings.
func (c *Config) Password() (*PasswordConfig, error) {
	return NewPasswordConfig(c.BcryptCost, c.PasswordPepper)
}

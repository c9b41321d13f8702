package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/change-scorer/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBatchWorkers, cfg.BatchWorkers)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultBcryptCost, cfg.BcryptCost)
	assert.Empty(t, cfg.Weights)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
port: 9090
log-format: json
batch-workers: 8
weights:
  risk:
    impactScope: 2.5
  priority:
    urgency: 3
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8, cfg.BatchWorkers)

	risk, err := cfg.WeightTable(scoring.KindRisk)
	require.NoError(t, err)
	assert.Equal(t, scoring.WeightTable{scoring.FactorImpactScope: 2.5}, risk)

	priority, err := cfg.WeightTable(scoring.KindPriority)
	require.NoError(t, err)
	assert.Equal(t, 3.0, priority[scoring.FactorUrgency])

	effort, err := cfg.WeightTable(scoring.KindEffort)
	require.NoError(t, err)
	assert.Nil(t, effort)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "port: 9090\n")
	t.Setenv("CHANGE_SCORER_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://localhost/scorer")
	t.Setenv("CHANGE_SCORER_JWT_SECRET", "from-env")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "postgres://localhost/scorer", cfg.DatabaseURL)
	assert.Equal(t, "from-env", cfg.JWTSecret)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	cfg, err := Load(NewViper(), "/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidWeights(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown factor", "weights:\n  risk:\n    velocity: 1\n", "unknown risk factor"},
		{"non-positive weight", "weights:\n  effort:\n    teamSize: 0\n", "must be positive"},
		{"unknown calculator", "weights:\n  speed:\n    urgency: 1\n", "unknown calculator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(NewViper(), writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{Port: 8080, BatchWorkers: 1, RateLimit: 1, RateBurst: 1, LogFormat: "text", LogLevel: "info"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"port", func(c *Config) { c.Port = 0 }, "port"},
		{"workers", func(c *Config) { c.BatchWorkers = 0 }, "batch-workers"},
		{"rate", func(c *Config) { c.RateLimit = 0 }, "rate-limit"},
		{"format", func(c *Config) { c.LogFormat = "xml" }, "log-format"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log-level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_JWTAndPassword(t *testing.T) {
	cfg := &Config{JWTExpirationHours: 2, BcryptCost: 11}

	_, err := cfg.JWT()
	assert.Error(t, err)

	cfg.JWTSecret = "secret"
	jwtCfg, err := cfg.JWT()
	require.NoError(t, err)
	assert.Equal(t, 2, jwtCfg.ExpirationHours)

	pw, err := cfg.Password()
	require.NoError(t, err)
	assert.Equal(t, 11, pw.BcryptCost)
}

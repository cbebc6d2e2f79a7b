package config

import (
	"math"
	"testing"

	"robustbai/domain/bandit"
	"robustbai/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	keys := []string{
		"BAI_ALGORITHM", "BAI_C", "BAI_ETA", "BAI_THEORETICAL", "BAI_MAX_ITERATIONS",
		"BAI_SEED", "BAI_TRIALS", "BAI_WORKERS", "BAI_CONFIDENCE_C", "BAI_DELTA",
		"BAI_REWARD", "BAI_CONCENTRATION", "LOG_LEVEL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("BAI_ALGORITHM", "stable_opt")
	t.Setenv("BAI_C", "0.5")
	t.Setenv("BAI_ETA", "0.01")
	t.Setenv("BAI_THEORETICAL", "true")
	t.Setenv("BAI_MAX_ITERATIONS", "5000")
	t.Setenv("BAI_SEED", "99")
	t.Setenv("BAI_TRIALS", "8")
	t.Setenv("BAI_WORKERS", "2")
	t.Setenv("BAI_DELTA", "0.1")
	t.Setenv("BAI_REWARD", "Beta")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "stable_opt", cfg.Algorithm.Name)
	assert.Equal(t, 0.5, cfg.Algorithm.C)
	assert.Equal(t, 0.01, cfg.Algorithm.Eta)
	assert.True(t, cfg.Algorithm.Theoretical)
	assert.Equal(t, 5000, cfg.Algorithm.MaxIterations)
	assert.Equal(t, int64(99), cfg.Experiment.Seed)
	assert.Equal(t, 8, cfg.Experiment.Trials)
	assert.Equal(t, 2, cfg.Experiment.Workers)
	assert.Equal(t, 0.1, cfg.Environment.Delta)
	assert.Equal(t, bandit.RewardBeta, cfg.Environment.Reward)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoad_UnknownReward(t *testing.T) {
	t.Setenv("BAI_REWARD", "gaussian")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero c", func(c *Config) { c.Algorithm.C = 0 }},
		{"negative eta", func(c *Config) { c.Algorithm.Eta = -0.1 }},
		{"infinite c", func(c *Config) { c.Algorithm.C = math.Inf(1) }},
		{"nan eta", func(c *Config) { c.Algorithm.Eta = math.NaN() }},
		{"missing algorithm", func(c *Config) { c.Algorithm.Name = "" }},
		{"negative ceiling", func(c *Config) { c.Algorithm.MaxIterations = -1 }},
		{"delta one", func(c *Config) { c.Environment.Delta = 1 }},
		{"zero trials", func(c *Config) { c.Experiment.Trials = 0 }},
		{"zero workers", func(c *Config) { c.Experiment.Workers = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "VERBOSE" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}

	assert.NoError(t, Default().Validate())
}

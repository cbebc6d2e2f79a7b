package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"

	"robustbai/domain/bandit"
	"robustbai/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration
type Config struct {
	Algorithm   AlgorithmConfig
	Environment EnvironmentConfig
	Experiment  ExperimentConfig
	LogLevel    string `validate:"oneof=ERROR WARN INFO DEBUG TRACE"`
}

// AlgorithmConfig selects the identification strategy and its parameters
type AlgorithmConfig struct {
	Name          string  `validate:"required"`
	C             float64 `validate:"finite,gt=0"`
	Eta           float64 `validate:"finite,gt=0"`
	Theoretical   bool
	MaxIterations int `validate:"gte=0"`
}

// EnvironmentConfig holds the simulated bandit settings
type EnvironmentConfig struct {
	ConfidenceC   float64            `validate:"finite,gt=0"`
	Delta         float64            `validate:"gt=0,lt=1"`
	Reward        bandit.RewardModel `validate:"oneof=bernoulli beta"`
	Concentration float64            `validate:"finite,gt=0"`
}

// ExperimentConfig holds repeated-trial settings
type ExperimentConfig struct {
	Trials  int `validate:"gte=1"`
	Workers int `validate:"gte=1,lte=256"`
	Seed    int64
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("finite", validateFinite)
}

// validateFinite rejects NaN and ±Inf, which gt=0 alone lets through for +Inf
func validateFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return true
	}
}

// Default returns the configuration used when no environment variable is set
func Default() *Config {
	return &Config{
		Algorithm: AlgorithmConfig{
			Name: string(bandit.AlgorithmSuccessiveElimination),
			C:    1.0,
			Eta:  0.05,
		},
		Environment: EnvironmentConfig{
			ConfidenceC:   1.0,
			Delta:         0.05,
			Reward:        bandit.RewardBernoulli,
			Concentration: 20,
		},
		Experiment: ExperimentConfig{
			Trials:  20,
			Workers: 4,
			Seed:    1,
		},
		LogLevel: "INFO",
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := Default()

	// Load algorithm configuration
	config.Algorithm = *loadAlgorithmConfig(config.Algorithm)

	// Load environment configuration
	envConfig, err := loadEnvironmentConfig(config.Environment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load environment configuration")
	}
	config.Environment = *envConfig

	// Load experiment configuration
	config.Experiment = *loadExperimentConfig(config.Experiment)

	config.LogLevel = strings.ToUpper(getEnvOrDefault("LOG_LEVEL", config.LogLevel))

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &errors.AppError{
			Code:    errors.CodeConfigInvalid,
			Message: describe(err),
			Cause:   err,
		}
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid configuration"
	}
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fmt.Sprintf("%s (%s=%v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return "invalid configuration: " + strings.Join(fields, ", ")
}

func loadAlgorithmConfig(def AlgorithmConfig) *AlgorithmConfig {
	return &AlgorithmConfig{
		Name:          getEnvOrDefault("BAI_ALGORITHM", def.Name),
		C:             getEnvFloatOrDefault("BAI_C", def.C),
		Eta:           getEnvFloatOrDefault("BAI_ETA", def.Eta),
		Theoretical:   getEnvBoolOrDefault("BAI_THEORETICAL", def.Theoretical),
		MaxIterations: getEnvIntOrDefault("BAI_MAX_ITERATIONS", def.MaxIterations),
	}
}

func loadEnvironmentConfig(def EnvironmentConfig) (*EnvironmentConfig, error) {
	reward := def.Reward
	if raw := os.Getenv("BAI_REWARD"); raw != "" {
		parsed, err := bandit.ParseRewardModel(strings.ToLower(raw))
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("BAI_REWARD: %v", err))
		}
		reward = parsed
	}

	return &EnvironmentConfig{
		ConfidenceC:   getEnvFloatOrDefault("BAI_CONFIDENCE_C", def.ConfidenceC),
		Delta:         getEnvFloatOrDefault("BAI_DELTA", def.Delta),
		Reward:        reward,
		Concentration: getEnvFloatOrDefault("BAI_CONCENTRATION", def.Concentration),
	}, nil
}

func loadExperimentConfig(def ExperimentConfig) *ExperimentConfig {
	return &ExperimentConfig{
		Trials:  getEnvIntOrDefault("BAI_TRIALS", def.Trials),
		Workers: getEnvIntOrDefault("BAI_WORKERS", def.Workers),
		Seed:    getEnvInt64OrDefault("BAI_SEED", def.Seed),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

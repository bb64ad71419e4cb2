package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gocausal/internal/ccm"
	"gocausal/internal/errors"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file
const ConfigFileEnv = "CCM_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Log       LogConfig       `yaml:"log"`
	Profiling ProfilingConfig `yaml:"profiling"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

// AnalysisConfig holds the default cross-mapping settings applied to every run
type AnalysisConfig struct {
	EmbeddingDim      int           `yaml:"embedding_dim"`
	Tau               int           `yaml:"tau"`
	LibSizes          []int         `yaml:"lib_sizes"`
	NumSamples        int           `yaml:"num_samples"`
	Seed              int64         `yaml:"seed"`
	Workers           int           `yaml:"workers"`
	ExcludeDegenerate bool          `yaml:"exclude_degenerate"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string `yaml:"port"`
	Enabled bool   `yaml:"enabled"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	opts := ccm.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "debug",
		},
		Analysis: AnalysisConfig{
			EmbeddingDim:   opts.EmbeddingDim,
			Tau:            opts.Tau,
			NumSamples:     opts.NumSamples,
			Workers:        opts.Workers,
			RequestTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level: "INFO",
		},
		Profiling: ProfilingConfig{
			Port:    "6060",
			Enabled: false,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CCM_CONFIG_FILE, and then environment variables, and validates it
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := config.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, errors.Wrap(err, "failed to read environment configuration")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// LoadFile reads a YAML file on top of the defaults, without environment overrides
func LoadFile(path string) (*Config, error) {
	config := Default()
	if err := config.mergeFile(path); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "failed to read config file "+path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "failed to parse config file "+path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.GinMode = getEnvOrDefault("GIN_MODE", c.Server.GinMode)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)

	c.Analysis.EmbeddingDim = getEnvIntOrDefault("CCM_EMBEDDING_DIM", c.Analysis.EmbeddingDim)
	c.Analysis.Tau = getEnvIntOrDefault("CCM_TAU", c.Analysis.Tau)
	c.Analysis.NumSamples = getEnvIntOrDefault("CCM_NUM_SAMPLES", c.Analysis.NumSamples)
	c.Analysis.Seed = getEnvInt64OrDefault("CCM_SEED", c.Analysis.Seed)
	c.Analysis.Workers = getEnvIntOrDefault("CCM_WORKERS", c.Analysis.Workers)
	c.Analysis.ExcludeDegenerate = getEnvBoolOrDefault("CCM_EXCLUDE_DEGENERATE", c.Analysis.ExcludeDegenerate)
	c.Analysis.RequestTimeout = getEnvDurationOrDefault("CCM_REQUEST_TIMEOUT", c.Analysis.RequestTimeout)

	if value := os.Getenv("CCM_LIB_SIZES"); value != "" {
		sizes, err := ParseIntList(value)
		if err != nil {
			return errors.Newf(errors.CodeConfigInvalid, "CCM_LIB_SIZES: %v", err)
		}
		c.Analysis.LibSizes = sizes
	}

	c.Profiling.Port = getEnvOrDefault("PPROF_PORT", c.Profiling.Port)
	c.Profiling.Enabled = getEnvBoolOrDefault("PPROF_ENABLED", c.Profiling.Enabled)
	return nil
}

// Validate rejects settings the analysis cannot run with
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	a := c.Analysis
	if a.EmbeddingDim < 1 || a.EmbeddingDim > ccm.MaxEmbeddingDim {
		return errors.Newf(errors.CodeConfigInvalid, "embedding_dim must be in [1, %d], got %d", ccm.MaxEmbeddingDim, a.EmbeddingDim)
	}
	if a.Tau < 1 {
		return errors.Newf(errors.CodeConfigInvalid, "tau must be >= 1, got %d", a.Tau)
	}
	if a.NumSamples < 1 {
		return errors.Newf(errors.CodeConfigInvalid, "num_samples must be >= 1, got %d", a.NumSamples)
	}
	if a.Workers < 0 {
		return errors.Newf(errors.CodeConfigInvalid, "workers must be >= 0, got %d", a.Workers)
	}
	for i, size := range a.LibSizes {
		if size < 1 {
			return errors.Newf(errors.CodeConfigInvalid, "lib_sizes must be >= 1, got %d", size)
		}
		if i > 0 && size <= a.LibSizes[i-1] {
			return errors.Newf(errors.CodeConfigInvalid, "lib_sizes must be strictly ascending, got %d after %d", size, a.LibSizes[i-1])
		}
	}
	if a.RequestTimeout < 0 {
		return errors.ConfigInvalid("request_timeout must not be negative")
	}
	return nil
}

// CCMOptions converts the analysis settings into options for ccm.New
func (c *Config) CCMOptions() ccm.Options {
	a := c.Analysis
	var libSizes []int
	if len(a.LibSizes) > 0 {
		libSizes = append([]int(nil), a.LibSizes...)
	}
	return ccm.Options{
		EmbeddingDim:      a.EmbeddingDim,
		Tau:               a.Tau,
		LibSizes:          libSizes,
		NumSamples:        a.NumSamples,
		Seed:              a.Seed,
		Workers:           a.Workers,
		ExcludeDegenerate: a.ExcludeDegenerate,
	}
}

// ParseIntList parses a comma separated list such as "10,20,40"
func ParseIntList(value string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, n)
	}
	return out, nil
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

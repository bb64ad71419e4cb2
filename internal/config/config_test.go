package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocausal/internal/ccm"
	"gocausal/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigFileEnv, "PORT", "GIN_MODE", "LOG_LEVEL",
		"CCM_EMBEDDING_DIM", "CCM_TAU", "CCM_NUM_SAMPLES", "CCM_SEED", "CCM_WORKERS",
		"CCM_EXCLUDE_DEGENERATE", "CCM_REQUEST_TIMEOUT", "CCM_LIB_SIZES",
		"PPROF_PORT", "PPROF_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gocausal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ccm.DefaultEmbeddingDim, cfg.Analysis.EmbeddingDim)
	assert.Equal(t, ccm.DefaultTau, cfg.Analysis.Tau)
	assert.Equal(t, ccm.DefaultNumSamples, cfg.Analysis.NumSamples)
	assert.Equal(t, 60*time.Second, cfg.Analysis.RequestTimeout)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.False(t, cfg.Profiling.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, `
server:
  port: "9090"
analysis:
  embedding_dim: 2
  lib_sizes: [10, 20, 40]
  num_samples: 25
  seed: 42
  request_timeout: 5s
log:
  level: DEBUG
`)
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("CCM_NUM_SAMPLES", "50")
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port, "env overrides file")
	assert.Equal(t, 2, cfg.Analysis.EmbeddingDim)
	assert.Equal(t, []int{10, 20, 40}, cfg.Analysis.LibSizes)
	assert.Equal(t, 50, cfg.Analysis.NumSamples)
	assert.Equal(t, int64(42), cfg.Analysis.Seed)
	assert.Equal(t, 5*time.Second, cfg.Analysis.RequestTimeout)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, ccm.DefaultTau, cfg.Analysis.Tau, "unset keys keep defaults")
}

func TestLoad_EnvLibSizes(t *testing.T) {
	clearEnv(t)
	t.Setenv("CCM_LIB_SIZES", "5, 10,20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10, 20}, cfg.Analysis.LibSizes)

	t.Setenv("CCM_LIB_SIZES", "5,ten")
	_, err = Load()
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	t.Setenv("CCM_LIB_SIZES", "20,10")
	_, err = Load()
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), "strictly ascending")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CCM_EMBEDDING_DIM", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), "embedding_dim")
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.Contains(t, err.Error(), "failed to read config file")

	_, err = LoadFile(writeYAML(t, "analysis: [not, a, map"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = LoadFile(writeYAML(t, "analysis:\n  tau: -2\n"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestCCMOptions(t *testing.T) {
	cfg := Default()
	cfg.Analysis.LibSizes = []int{10, 20}
	cfg.Analysis.Seed = 9
	cfg.Analysis.ExcludeDegenerate = true

	opts := cfg.CCMOptions()
	assert.Equal(t, []int{10, 20}, opts.LibSizes)
	assert.Equal(t, int64(9), opts.Seed)
	assert.True(t, opts.ExcludeDegenerate)

	opts.LibSizes[0] = 99
	assert.Equal(t, 10, cfg.Analysis.LibSizes[0])

	assert.Nil(t, Default().CCMOptions().LibSizes)
}

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList("1,2, 3,")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, err = ParseIntList("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseIntList("1,x")
	assert.Error(t, err)
}

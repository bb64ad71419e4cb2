package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocausal/internal/config"
	"gocausal/internal/errors"
	"gocausal/internal/testkit"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.ConfigFileEnv, "")
	t.Setenv("LOG_LEVEL", "ERROR")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writePairCSV(t *testing.T, n int) string {
	t.Helper()
	cfg := testkit.DefaultLogisticConfig()
	cfg.Length = n
	series, err := testkit.GenerateCoupledLogistic(cfg)
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString("t,prey,predator\n")
	for i := range series.X {
		fmt.Fprintf(&b, "%d,%g,%g\n", i, series.X[i], series.Y[i])
	}
	path := filepath.Join(t.TempDir(), "pair.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestDemoCmd_JSON(t *testing.T) {
	out, err := execute(t, "demo", "--length", "120", "-E", "2", "--lib-sizes", "10,40,100", "--samples", "3", "--seed", "1", "--format", "json")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.NotEmpty(t, decoded["run_id"])
	assert.Equal(t, float64(1), decoded["seed"])
	assert.Equal(t, float64(120), decoded["length"])

	result := decoded["result"].(map[string]interface{})
	assert.NotNil(t, result["x_causes_y"])
	assert.NotNil(t, result["y_causes_x"])
}

func TestRunCmd_CSVSingleDirection(t *testing.T) {
	path := writePairCSV(t, 100)

	out, err := execute(t, "run", "--file", path, "--x", "prey", "--y", "predator",
		"-E", "2", "--lib-sizes", "10,30,60", "--samples", "2", "--seed", "3", "--direction", "x_causes_y")
	require.NoError(t, err)

	assert.Contains(t, out, "Source:  "+path)
	assert.Contains(t, out, "prey -> predator (x_causes_y)")
	assert.NotContains(t, out, "(y_causes_x)")
	assert.Contains(t, out, "Verdict:")
}

func TestRunCmd_Errors(t *testing.T) {
	path := writePairCSV(t, 30)

	_, err := execute(t, "run", "--file", path, "--x", "prey", "--y", "nope")
	assert.Error(t, err)

	_, err = execute(t, "run", "--file", path, "--x", "prey", "--y", "predator", "--format", "pdf")
	assert.Error(t, err)

	_, err = execute(t, "run", "--file", path, "--x", "prey", "--y", "predator", "--lib-sizes", "10,x")
	assert.Error(t, err)

	_, err = execute(t, "run", "--file", path, "--x", "prey", "--y", "predator", "--direction", "sideways", "--samples", "1")
	assert.Error(t, err)

	_, err = execute(t, "run", "--x", "prey", "--y", "predator")
	assert.Error(t, err, "--file is required")
}

func TestRefereeCmd_UnknownGate(t *testing.T) {
	path := writePairCSV(t, 30)

	out, err := execute(t, "referee", "--file", path, "--x", "prey", "--y", "predator", "--gates", "bogus", "--seed", "1")
	require.Error(t, err)
	assert.Contains(t, out, "bogus")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "Referee creation failed")
}

func TestScanCmd(t *testing.T) {
	path := writePairCSV(t, 40)

	out, err := execute(t, "scan", "--file", path, "--columns", "prey,predator", "--seed", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "prey -> predator:")
	assert.Contains(t, out, "predator -> prey:")
	assert.Contains(t, out, "Convergent_Cross_Mapping")

	_, err = execute(t, "scan", "--file", path, "--columns", "prey")
	assert.Error(t, err)

	_, err = execute(t, "scan", "--file", path, "--columns", "prey,missing")
	assert.Error(t, err)
}

func TestRefereeCmd_UsesConfig(t *testing.T) {
	path := writePairCSV(t, 30)
	t.Setenv("CCM_LIB_SIZES", "20,10")

	_, err := execute(t, "referee", "--file", path, "--x", "prey", "--y", "predator", "--seed", "1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = execute(t, "scan", "--file", path, "--seed", "1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestGatesCmd(t *testing.T) {
	out, err := execute(t, "gates")
	require.NoError(t, err)
	assert.Contains(t, out, "Convergent_Cross_Mapping")
	assert.Contains(t, out, "Reverse_Convergent_Cross_Mapping")
	assert.NotContains(t, out, "CCM_CONVERGENCE_RHO")

	out, err = execute(t, "gates", "--thresholds")
	require.NoError(t, err)
	assert.Contains(t, out, "CCM_CONVERGENCE_RHO")
	assert.Contains(t, out, "0.75")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 130, exitCode(errors.Canceled(context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.InvalidInput("bad flag")))
}

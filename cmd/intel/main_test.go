package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/intel-pipeline/internal/pipeline"
	"github.com/yegors/intel-pipeline/internal/telemetry"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error", "--log-format", "json"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "intel.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q

[generator]
num_flights = 3
points_per_flight = 20

[model]
contamination = 0.05
n_estimators = 25
`, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStagesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := runCLI(t, "--config", cfgPath, "generate")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "data", "raw_telemetry.csv"))

	_, err = runCLI(t, "--config", cfgPath, "process")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "data", "processed_telemetry.parquet"))

	_, err = runCLI(t, "--config", cfgPath, "score")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "data", "intel.db"))

	out, err := runCLI(t, "--config", cfgPath, "anomalies", "--json")
	require.NoError(t, err)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Greater(t, list.Count, 0)

	out, err = runCLI(t, "--config", cfgPath, "anomalies", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "FLIGHT_")
	assert.Contains(t, out, "2 anomalies")
}

func TestStageFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	raw := filepath.Join(dir, "custom", "raw.csv")

	_, err := runCLI(t, "--config", cfgPath, "generate", "-o", raw, "-n", "1", "-p", "4")
	require.NoError(t, err)

	data, err := os.ReadFile(raw)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 5)
	assert.Equal(t, strings.Join(telemetry.RawColumns, ","), lines[0])
}

func TestProcessWithoutRawData(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := runCLI(t, "--config", cfgPath, "process")
	require.Error(t, err)
	assert.ErrorIs(t, err, telemetry.ErrMissingInput)
	assert.Contains(t, err.Error(), "run generate first")
	assert.Equal(t, 1, exitCode(err))
}

func TestScoreRejectsBadContamination(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := runCLI(t, "--config", cfgPath, "score", "-c", "0.7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contamination")
}

func TestAnomaliesWithoutStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	out, err := runCLI(t, "--config", cfgPath, "anomalies")
	require.NoError(t, err)
	assert.Contains(t, out, "No anomalies found")
	assert.NoFileExists(t, filepath.Join(dir, "data", "intel.db"))
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "conf", "intel.toml")

	out, err := runCLI(t, "--config", "/does/not/exist.toml", "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)
	assert.FileExists(t, target)

	_, err = runCLI(t, "config", "init", "--path", target)
	require.Error(t, err)

	_, err = runCLI(t, "--config", target, "anomalies")
	require.NoError(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "generate")
	require.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 1, exitCode(context.Canceled))
	assert.Equal(t, 4, exitCode(fmt.Errorf("pipeline: %w", &pipeline.StageError{Stage: "score", ExitCode: 4})))
}

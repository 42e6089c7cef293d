package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// TestHelperProcess stands in for the intel binary when the runner
// re-executes the test executable.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	stage := args[0]

	f, err := os.OpenFile(os.Getenv("HELPER_LOG"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		os.Exit(99)
	}
	fmt.Fprintf(f, "%s %s %s\n", stage, os.Getenv(logger.RunIDEnv), strings.Join(args[1:], " "))
	f.Close()

	if stage == os.Getenv("HELPER_FAIL_STAGE") {
		os.Exit(3)
	}
	os.Exit(0)
}

func newTestRunner(t *testing.T, failStage string) (*Runner, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		DataDir:          "data",
		RawCSV:           "data/raw.csv",
		ProcessedParquet: "data/processed.parquet",
		DBPath:           "data/intel.db",
	}

	logPath := filepath.Join(t.TempDir(), "calls.log")
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_LOG", logPath)
	t.Setenv("HELPER_FAIL_STAGE", failStage)

	r, err := NewRunner(&cfg, "intel.toml", logger.NewNop())
	require.NoError(t, err)
	r.Executable = os.Args[0]
	r.ArgsPrefix = []string{"-test.run=TestHelperProcess", "--"}
	r.Stdout = io.Discard
	r.Stderr = io.Discard
	return r, logPath
}

func readCalls(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)

	var calls [][]string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		calls = append(calls, strings.Fields(line))
	}
	return calls
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	r, logPath := newTestRunner(t, "")

	err := r.Run(context.Background(), Options{NumFlights: 3, PointsPerFlight: 5, Contamination: 0.05})
	require.NoError(t, err)

	calls := readCalls(t, logPath)
	require.Len(t, calls, 3)
	assert.Equal(t, StageGenerate, calls[0][0])
	assert.Equal(t, StageProcess, calls[1][0])
	assert.Equal(t, StageScore, calls[2][0])

	runID := calls[0][1]
	assert.Len(t, runID, 36)
	for _, c := range calls {
		assert.Equal(t, runID, c[1], "every stage sees the same run id")
	}

	gen := strings.Join(calls[0][2:], " ")
	assert.Contains(t, gen, "--output data/raw.csv")
	assert.Contains(t, gen, "--num-flights 3")
	assert.Contains(t, gen, "--points-per-flight 5")
	assert.Contains(t, gen, "--config intel.toml")

	assert.Contains(t, strings.Join(calls[1][2:], " "), "--input data/raw.csv --output data/processed.parquet")

	score := strings.Join(calls[2][2:], " ")
	assert.Contains(t, score, "--input data/processed.parquet --db data/intel.db --table telemetry_anomalies")
	assert.Contains(t, score, "--contamination 0.05")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	r, logPath := newTestRunner(t, StageProcess)

	err := r.Run(context.Background(), Options{NumFlights: 1, PointsPerFlight: 5, Contamination: 0.02})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageProcess, stageErr.Stage)
	assert.Equal(t, 3, stageErr.ExitCode)
	assert.Equal(t, "stage process failed with exit code 3", err.Error())

	calls := readCalls(t, logPath)
	require.Len(t, calls, 2, "score must not run after process fails")
}

func TestRunRejectsBadOptions(t *testing.T) {
	r, logPath := newTestRunner(t, "")

	require.Error(t, r.Run(context.Background(), Options{NumFlights: 1, PointsPerFlight: 1, Contamination: 0}))
	require.Error(t, r.Run(context.Background(), Options{NumFlights: -1, PointsPerFlight: 1, Contamination: 0.1}))
	assert.Empty(t, readCalls(t, logPath))
}

func TestRunMissingExecutable(t *testing.T) {
	r, _ := newTestRunner(t, "")
	r.Executable = filepath.Join(t.TempDir(), "missing")

	err := r.Run(context.Background(), Options{NumFlights: 1, PointsPerFlight: 1, Contamination: 0.1})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageGenerate, stageErr.Stage)
	assert.Equal(t, 1, stageErr.ExitCode)
}

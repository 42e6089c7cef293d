// Package pipeline runs generate, process and score as child processes of
// the current binary, stopping at the first failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// Stage names, in execution order
const (
	StageGenerate = "generate"
	StageProcess  = "process"
	StageScore    = "score"
)

// StageError reports the stage that failed and its exit status
type StageError struct {
	Stage    string
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed with exit code %d", e.Stage, e.ExitCode)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options override the generator and model settings for one run
type Options struct {
	NumFlights      int
	PointsPerFlight int
	Contamination   float64
}

// Stage is one child invocation
type Stage struct {
	Name string
	Args []string
}

// Runner executes the stages
type Runner struct {
	cfg        *config.Config
	configPath string
	logger     *logger.Logger

	// Executable is re-invoked for each stage; ArgsPrefix goes before the
	// stage arguments.
	Executable string
	ArgsPrefix []string
	Stdout     io.Writer
	Stderr     io.Writer
}

// NewRunner creates a runner that re-executes the current binary
func NewRunner(cfg *config.Config, configPath string, logger *logger.Logger) (*Runner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return &Runner{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger.Named("pipeline"),
		Executable: exe,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}, nil
}

// Stages returns the three stage invocations for opts. Each stage gets
// the previous stage's output path explicitly.
func (r *Runner) Stages(opts Options) []Stage {
	common := r.commonArgs()
	paths := r.cfg.Paths

	with := func(args ...string) []string {
		return append(append([]string{}, args...), common...)
	}

	return []Stage{
		{Name: StageGenerate, Args: with(StageGenerate,
			"--output", paths.RawCSV,
			"--num-flights", strconv.Itoa(opts.NumFlights),
			"--points-per-flight", strconv.Itoa(opts.PointsPerFlight),
		)},
		{Name: StageProcess, Args: with(StageProcess,
			"--input", paths.RawCSV,
			"--output", paths.ProcessedParquet,
		)},
		{Name: StageScore, Args: with(StageScore,
			"--input", paths.ProcessedParquet,
			"--db", paths.DBPath,
			"--table", r.cfg.Model.TableName,
			"--contamination", strconv.FormatFloat(opts.Contamination, 'g', -1, 64),
		)},
	}
}

func (r *Runner) commonArgs() []string {
	var args []string
	if r.configPath != "" {
		args = append(args, "--config", r.configPath)
	}
	if r.cfg.Logging.Level != "" {
		args = append(args, "--log-level", r.cfg.Logging.Level)
	}
	if r.cfg.Logging.Format != "" {
		args = append(args, "--log-format", r.cfg.Logging.Format)
	}
	return args
}

// Run executes every stage in order. The first failing stage aborts the
// run with a *StageError. Nothing is retried or rolled back.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	if err := config.ValidateContamination(opts.Contamination); err != nil {
		return err
	}
	if opts.NumFlights < 0 || opts.PointsPerFlight < 0 {
		return fmt.Errorf("flight and point counts must not be negative")
	}

	runID := uuid.NewString()
	log := r.logger.WithRunID(runID)
	started := time.Now()

	log.Info("Starting pipeline",
		logger.Int("num_flights", opts.NumFlights),
		logger.Int("points_per_flight", opts.PointsPerFlight),
		logger.Float64("contamination", opts.Contamination),
	)

	for _, stage := range r.Stages(opts) {
		stageStart := time.Now()
		log.Info("Running stage", logger.String("stage", stage.Name), logger.Strings("args", stage.Args))

		if err := r.runStage(ctx, runID, stage); err != nil {
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				log.Error("Stage failed",
					logger.String("stage", stageErr.Stage),
					logger.Int("exit_code", stageErr.ExitCode),
				)
			}
			return err
		}

		log.Info("Stage complete",
			logger.String("stage", stage.Name),
			logger.Duration("duration", time.Since(stageStart)),
		)
	}

	log.Info("Pipeline complete", logger.Duration("duration", time.Since(started)))
	return nil
}

func (r *Runner) runStage(ctx context.Context, runID string, stage Stage) error {
	args := append(append([]string{}, r.ArgsPrefix...), stage.Args...)
	cmd := exec.CommandContext(ctx, r.Executable, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = append(os.Environ(), logger.RunIDEnv+"="+runID)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return &StageError{Stage: stage.Name, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &StageError{Stage: stage.Name, ExitCode: 1, Err: err}
}

// Package features turns the raw telemetry CSV into the processed Parquet
// table used for scoring.
package features

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/yegors/intel-pipeline/internal/telemetry"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// Config is the input of a process run
type Config struct {
	Input  string
	Output string
}

// Service runs the feature processing stage
type Service struct {
	logger *logger.Logger
}

// NewService creates a new feature processing service
func NewService(logger *logger.Logger) *Service {
	return &Service{
		logger: logger.Named("features"),
	}
}

// Run reads the raw CSV, engineers features and writes the Parquet table
func (s *Service) Run(ctx context.Context, cfg Config) error {
	file, err := os.Open(cfg.Input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &telemetry.MissingInputError{Path: cfg.Input, Stage: "generate"}
		}
		return fmt.Errorf("open raw telemetry: %w", err)
	}
	defer file.Close()

	s.logger.Info("Reading raw telemetry", logger.String("path", cfg.Input))

	points, stats, err := ReadRaw(file)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if stats.InvalidTimestamp > 0 {
		s.logger.Warn("Dropping rows with invalid timestamp", logger.Int("count", stats.InvalidTimestamp))
	}
	if stats.CoercedNumeric > 0 {
		s.logger.Warn("Coerced non-numeric values to missing", logger.Int("count", stats.CoercedNumeric))
	}

	rows := Engineer(points)

	if err := WriteParquet(cfg.Output, rows); err != nil {
		return err
	}

	fields := []logger.Field{
		logger.String("path", cfg.Output),
		logger.Int("rows_in", stats.Rows),
		logger.Int("rows_out", len(rows)),
	}
	if info, err := os.Stat(cfg.Output); err == nil {
		fields = append(fields, logger.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	s.logger.Info("Wrote processed telemetry", fields...)
	return nil
}

package generator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yegors/intel-pipeline/pkg/logger"
)

// Config is the input of a generate run
type Config struct {
	Output          string
	NumFlights      int
	PointsPerFlight int
	BaseSeed        int64
	// Now anchors the first flight; zero means the current time
	Now time.Time
}

// Service runs the generate stage
type Service struct {
	logger *logger.Logger
}

// NewService creates a new generator service
func NewService(logger *logger.Logger) *Service {
	return &Service{
		logger: logger.Named("generator"),
	}
}

// Run generates the configured flights and writes the raw CSV
func (s *Service) Run(ctx context.Context, cfg Config) error {
	if cfg.NumFlights < 0 || cfg.PointsPerFlight < 0 {
		return fmt.Errorf("flight and point counts must not be negative")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.logger.Info("Generating synthetic telemetry",
		logger.Int("flights", cfg.NumFlights),
		logger.Int("points_per_flight", cfg.PointsPerFlight),
		logger.Int64("base_seed", cfg.BaseSeed),
	)

	points := Generate(Options{
		NumFlights:      cfg.NumFlights,
		PointsPerFlight: cfg.PointsPerFlight,
		BaseSeed:        cfg.BaseSeed,
		Now:             now,
	})

	injected := 0
	for _, p := range points {
		if p.IsAnomaly {
			injected++
		}
	}

	if err := WriteCSV(cfg.Output, points); err != nil {
		return err
	}

	fields := []logger.Field{
		logger.String("path", cfg.Output),
		logger.Int("rows", len(points)),
		logger.Int("injected_anomalies", injected),
	}
	if info, err := os.Stat(cfg.Output); err == nil {
		fields = append(fields, logger.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	s.logger.Info("Wrote raw telemetry", fields...)
	return nil
}

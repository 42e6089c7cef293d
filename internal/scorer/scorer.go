// Package scorer fits an outlier model on the processed telemetry and
// writes the scored table to SQLite.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/yegors/intel-pipeline/internal/features"
	"github.com/yegors/intel-pipeline/internal/model"
	"github.com/yegors/intel-pipeline/internal/storage/sqlite"
	"github.com/yegors/intel-pipeline/internal/telemetry"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// Config is the input of a score run
type Config struct {
	Input         string
	DBPath        string
	Table         string
	Contamination float64
	Estimators    int
	Seed          int64
}

// Service runs the scoring stage
type Service struct {
	logger *logger.Logger

	// newDetector is swapped in tests
	newDetector func(cfg Config) (model.Detector, error)
}

// NewService creates a new scoring service
func NewService(logger *logger.Logger) *Service {
	return &Service{
		logger:      logger.Named("scorer"),
		newDetector: isolationForest,
	}
}

func isolationForest(cfg Config) (model.Detector, error) {
	return model.NewIsolationForest(model.IsolationForestConfig{
		Estimators:    cfg.Estimators,
		Contamination: cfg.Contamination,
		Seed:          uint64(cfg.Seed),
	})
}

// Run loads the processed table, scores every row and replaces the table
func (s *Service) Run(ctx context.Context, cfg Config) error {
	if _, err := os.Stat(cfg.Input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &telemetry.MissingInputError{Path: cfg.Input, Stage: "process"}
		}
		return fmt.Errorf("stat processed telemetry: %w", err)
	}

	detector, err := s.newDetector(cfg)
	if err != nil {
		return fmt.Errorf("invalid model configuration: %w", err)
	}

	columns, err := features.Columns(cfg.Input)
	if err != nil {
		return err
	}
	featureCols := SelectFeatures(columns)
	if len(featureCols) == 0 {
		return telemetry.ErrNoFeatures
	}

	rows, err := features.ReadParquet(cfg.Input)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("processed telemetry %s has no rows", cfg.Input)
	}

	s.logger.Info("Scoring processed telemetry",
		logger.String("path", cfg.Input),
		logger.Int("rows", len(rows)),
		logger.Strings("features", featureCols),
		logger.Float64("contamination", cfg.Contamination),
	)

	x := Matrix(rows, featureCols)
	medians := model.ImputeMedian(x)
	s.logger.Debug("Imputed missing values", logger.Any("medians", medians))

	if err := ctx.Err(); err != nil {
		return err
	}

	fitted, err := detector.Fit(x)
	if err != nil {
		return fmt.Errorf("failed to fit model: %w", err)
	}
	labels, scores, err := fitted.Predict(x)
	if err != nil {
		return fmt.Errorf("failed to score rows: %w", err)
	}

	scored := make([]telemetry.ScoredPoint, len(rows))
	flagged := 0
	for i := range rows {
		scored[i] = telemetry.ScoredPoint{
			ProcessedPoint: rows[i],
			ModelLabel:     labels[i],
			AnomalyScore:   scores[i],
			ModelIsAnomaly: labels[i] == model.Outlier,
		}
		if scored[i].ModelIsAnomaly {
			flagged++
		}
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.NewAnomalyStorage(db, s.logger).ReplaceAll(ctx, cfg.Table, scored); err != nil {
		return err
	}

	s.logger.Info("Wrote scored telemetry",
		logger.String("db", cfg.DBPath),
		logger.String("table", cfg.Table),
		logger.Int("rows", len(scored)),
		logger.Int("model_anomalies", flagged),
	)
	return nil
}

// SelectFeatures keeps the feature candidates present in columns, in
// candidate order.
func SelectFeatures(columns []string) []string {
	var out []string
	for _, c := range telemetry.FeatureCandidates {
		if slices.Contains(columns, c) {
			out = append(out, c)
		}
	}
	return out
}

// Matrix extracts the named feature columns from rows
func Matrix(rows []telemetry.ProcessedPoint, columns []string) [][]float64 {
	x := make([][]float64, len(rows))
	for i := range rows {
		row := make([]float64, len(columns))
		for j, c := range columns {
			row[j], _ = rows[i].Feature(c)
		}
		x[i] = row
	}
	return x
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/internal/features"
	"github.com/yegors/intel-pipeline/internal/generator"
	"github.com/yegors/intel-pipeline/internal/scorer"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var output string
	var numFlights int
	var pointsPerFlight int
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic flight telemetry as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(cfg *config.Config, log *logger.Logger) error {
				run := generator.Config{
					Output:          stringOr(output, cfg.Paths.RawCSV),
					NumFlights:      cfg.Generator.NumFlights,
					PointsPerFlight: cfg.Generator.PointsPerFlight,
					BaseSeed:        cfg.Generator.BaseSeed,
				}
				if cmd.Flags().Changed("num-flights") {
					run.NumFlights = numFlights
				}
				if cmd.Flags().Changed("points-per-flight") {
					run.PointsPerFlight = pointsPerFlight
				}
				if cmd.Flags().Changed("seed") {
					run.BaseSeed = seed
				}
				return generator.NewService(log).Run(cmd.Context(), run)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Raw CSV path (default from config)")
	cmd.Flags().IntVarP(&numFlights, "num-flights", "n", 0, "Number of flights (default from config)")
	cmd.Flags().IntVarP(&pointsPerFlight, "points-per-flight", "p", 0, "Points per flight (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Base random seed (default from config)")
	return cmd
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var input string
	var output string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Clean raw telemetry and engineer features into Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(cfg *config.Config, log *logger.Logger) error {
				return features.NewService(log).Run(cmd.Context(), features.Config{
					Input:  stringOr(input, cfg.Paths.RawCSV),
					Output: stringOr(output, cfg.Paths.ProcessedParquet),
				})
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Raw CSV path (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Processed Parquet path (default from config)")
	return cmd
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var input string
	var dbPath string
	var table string
	var contamination float64
	var estimators int
	var seed int64

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score processed telemetry with an isolation forest and store the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(cfg *config.Config, log *logger.Logger) error {
				run := scorer.Config{
					Input:         stringOr(input, cfg.Paths.ProcessedParquet),
					DBPath:        stringOr(dbPath, cfg.Paths.DBPath),
					Table:         stringOr(table, cfg.Model.TableName),
					Contamination: cfg.Model.Contamination,
					Estimators:    cfg.Model.NEstimators,
					Seed:          cfg.Model.Seed,
				}
				if cmd.Flags().Changed("contamination") {
					run.Contamination = contamination
				}
				if cmd.Flags().Changed("estimators") {
					run.Estimators = estimators
				}
				if cmd.Flags().Changed("seed") {
					run.Seed = seed
				}
				if err := config.ValidateTableName(run.Table); err != nil {
					return err
				}
				if err := config.ValidateContamination(run.Contamination); err != nil {
					return err
				}
				return scorer.NewService(log).Run(cmd.Context(), run)
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Processed Parquet path (default from config)")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default from config)")
	cmd.Flags().StringVar(&table, "table", "", "Result table name (default from config)")
	cmd.Flags().Float64VarP(&contamination, "contamination", "c", 0, "Expected outlier proportion in (0, 0.5]")
	cmd.Flags().IntVar(&estimators, "estimators", 0, "Number of trees")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Model random seed")
	return cmd
}

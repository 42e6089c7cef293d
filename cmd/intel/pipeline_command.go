package main

import (
	"github.com/spf13/cobra"

	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/internal/pipeline"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	var numFlights int
	var pointsPerFlight int
	var contamination float64

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run generate, process and score in sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(cfg *config.Config, log *logger.Logger) error {
				opts := pipeline.Options{
					NumFlights:      cfg.Generator.NumFlights,
					PointsPerFlight: cfg.Generator.PointsPerFlight,
					Contamination:   cfg.Model.Contamination,
				}
				if cmd.Flags().Changed("num-flights") {
					opts.NumFlights = numFlights
				}
				if cmd.Flags().Changed("points-per-flight") {
					opts.PointsPerFlight = pointsPerFlight
				}
				if cmd.Flags().Changed("contamination") {
					opts.Contamination = contamination
				}

				runner, err := pipeline.NewRunner(cfg, ctx.configPath(), log)
				if err != nil {
					return err
				}
				runner.Stdout = cmd.OutOrStdout()
				runner.Stderr = cmd.ErrOrStderr()
				return runner.Run(cmd.Context(), opts)
			})
		},
	}

	cmd.Flags().IntVarP(&numFlights, "num-flights", "n", 0, "Number of flights (default from config)")
	cmd.Flags().IntVarP(&pointsPerFlight, "points-per-flight", "p", 0, "Points per flight (default from config)")
	cmd.Flags().Float64VarP(&contamination, "contamination", "c", 0, "Expected outlier proportion in (0, 0.5]")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/internal/query"
	"github.com/yegors/intel-pipeline/internal/storage/sqlite"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

func newAnomaliesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var dbPath string
	var table string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "List model-flagged telemetry, most anomalous first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("invalid limit %d: must not be negative", limit)
			}
			return ctx.withRuntime(func(cfg *config.Config, log *logger.Logger) error {
				tableName := stringOr(table, cfg.Model.TableName)
				if err := config.ValidateTableName(tableName); err != nil {
					return err
				}

				svc := query.NewService(stringOr(dbPath, cfg.Paths.DBPath), tableName, log)
				list, err := svc.Anomalies(cmd.Context(), limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}
				if list.Count == 0 {
					fmt.Fprintln(out, "No anomalies found")
					return nil
				}
				fmt.Fprintln(out, renderAnomalies(list.Anomalies))
				fmt.Fprintf(out, "%d anomalies\n", list.Count)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", query.DefaultAnomalyLimit, "Maximum rows to show")
	cmd.Flags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (default from config)")
	cmd.Flags().StringVar(&table, "table", "", "Result table name (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	return cmd
}

func renderAnomalies(records []sqlite.AnomalyRecord) string {
	headers := []string{"Timestamp", "Flight", "Status", "Altitude", "Speed", "Speed Δ", "Altitude Δ", "Score"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(records))
	for i := range records {
		rec := &records[i]
		rows = append(rows, []string{
			deref(rec.Timestamp),
			deref(rec.FlightID),
			deref(rec.Status),
			formatFloat(rec.Altitude, 1),
			formatFloat(rec.Speed, 1),
			formatFloat(rec.SpeedDiff, 1),
			formatFloat(rec.AltitudeDiff, 1),
			formatFloat(rec.AnomalyScore, 4),
		})
	}
	return renderTable(headers, rows, aligns)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

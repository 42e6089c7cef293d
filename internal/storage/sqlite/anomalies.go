package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/yegors/intel-pipeline/internal/telemetry"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// AnomalyStorage reads and replaces the scored telemetry table
type AnomalyStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAnomalyStorage creates a new SQLite anomaly storage
func NewAnomalyStorage(db *sql.DB, logger *logger.Logger) *AnomalyStorage {
	return &AnomalyStorage{
		db:     db,
		logger: logger.Named("sqlite-anomalies"),
	}
}

// ReplaceAll drops table, recreates it and inserts rows in one transaction
func (s *AnomalyStorage) ReplaceAll(ctx context.Context, table string, rows []telemetry.ScoredPoint) (err error) {
	quoted, err := quoteIdent(table)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("Failed to roll back replace", logger.Error(rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	defs := make([]string, len(telemetry.ScoredColumns))
	for i, col := range telemetry.ScoredColumns {
		defs[i] = col + " " + columnSQLTypes[col]
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(telemetry.ScoredColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoted, strings.Join(telemetry.ScoredColumns, ", "), placeholders,
	))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		if _, err = stmt.ExecContext(ctx,
			telemetry.FormatTimestamp(r.Timestamp),
			r.FlightID,
			nullFloat(r.Lat),
			nullFloat(r.Lon),
			nullFloat(r.Altitude),
			nullFloat(r.Speed),
			nullFloat(r.Heading),
			r.Status,
			int64(r.IsAnomaly),
			nullFloat(r.SpeedDiff),
			nullFloat(r.AltitudeDiff),
			int64(r.ModelLabel),
			nullFloat(r.AnomalyScore),
			boolInt(r.ModelIsAnomaly),
		); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}

	s.logger.Info("Replaced scored table", logger.String("table", table), logger.Int("rows", len(rows)))
	return nil
}

// TableExists reports whether table is present
func (s *AnomalyStorage) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return n > 0, nil
}

// Columns returns the column names of table in schema order
func (s *AnomalyStorage) Columns(ctx context.Context, table string) ([]string, error) {
	quoted, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   sql.NullString
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate column info: %w", err)
	}
	return columns, nil
}

// List returns rows of table sorted by anomaly_score ascending when that
// column exists. A missing table yields no rows. A limit of zero or less
// means no limit.
func (s *AnomalyStorage) List(ctx context.Context, table string, opts ListOptions) ([]AnomalyRecord, error) {
	quoted, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}

	exists, err := s.TableExists(ctx, table)
	if err != nil || !exists {
		return []AnomalyRecord{}, err
	}

	columns, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	if opts.OnlyAnomalies && !present[telemetry.ColModelIsAnomaly] {
		return []AnomalyRecord{}, nil
	}

	selects := make([]string, len(telemetry.ScoredColumns))
	for i, col := range telemetry.ScoredColumns {
		if present[col] {
			selects[i] = col
		} else {
			selects[i] = "NULL AS " + col
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(selects, ", "), quoted)
	if opts.OnlyAnomalies {
		b.WriteString(" WHERE " + telemetry.ColModelIsAnomaly + " = 1")
	}
	if present[telemetry.ColAnomalyScore] {
		b.WriteString(" ORDER BY " + telemetry.ColAnomalyScore + " ASC")
	}
	var args []any
	if opts.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	records := []AnomalyRecord{}
	for rows.Next() {
		var rec AnomalyRecord
		if err := rows.Scan(rec.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anomaly rows: %w", err)
	}
	return records, nil
}

// Stats counts rows and model anomalies in table. A missing table, or one
// without model_is_anomaly, reports zero anomalies.
func (s *AnomalyStorage) Stats(ctx context.Context, table string) (Stats, error) {
	quoted, err := quoteIdent(table)
	if err != nil {
		return Stats{}, err
	}

	exists, err := s.TableExists(ctx, table)
	if err != nil || !exists {
		return Stats{}, err
	}

	columns, err := s.Columns(ctx, table)
	if err != nil {
		return Stats{}, err
	}
	hasFlag := false
	for _, c := range columns {
		if c == telemetry.ColModelIsAnomaly {
			hasFlag = true
			break
		}
	}

	anomalies := "0"
	if hasFlag {
		anomalies = "COALESCE(SUM(CASE WHEN " + telemetry.ColModelIsAnomaly + " = 1 THEN 1 ELSE 0 END), 0)"
	}

	var stats Stats
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*), %s FROM %s", anomalies, quoted),
	).Scan(&stats.Total, &stats.NAnomalies)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats for %s: %w", table, err)
	}

	if stats.Total > 0 {
		pct := float64(stats.NAnomalies) / float64(stats.Total) * 100
		stats.AnomalyPct = math.Round(pct*1000) / 1000
	}
	return stats, nil
}

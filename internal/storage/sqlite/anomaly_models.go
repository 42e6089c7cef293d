package sqlite

import (
	"database/sql"
	"math"

	"github.com/yegors/intel-pipeline/internal/telemetry"
)

// AnomalyRecord is one row read back from the scored table.
// Columns missing from the table are nil.
type AnomalyRecord struct {
	Timestamp      *string  `json:"timestamp"`
	FlightID       *string  `json:"flight_id"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
	Altitude       *float64 `json:"altitude"`
	Speed          *float64 `json:"speed"`
	Heading        *float64 `json:"heading"`
	Status         *string  `json:"status"`
	IsAnomaly      *int64   `json:"is_anomaly"`
	SpeedDiff      *float64 `json:"speed_diff"`
	AltitudeDiff   *float64 `json:"altitude_diff"`
	ModelLabel     *int64   `json:"model_label"`
	AnomalyScore   *float64 `json:"anomaly_score"`
	ModelIsAnomaly *int64   `json:"model_is_anomaly"`
}

// Stats summarises the scored table
type Stats struct {
	Total      int64   `json:"total"`
	NAnomalies int64   `json:"n_anomalies"`
	AnomalyPct float64 `json:"anomaly_pct"`
}

// ListOptions filters List
type ListOptions struct {
	OnlyAnomalies bool
	Limit         int
}

// columnSQLTypes is the schema written by ReplaceAll
var columnSQLTypes = map[string]string{
	telemetry.ColTimestamp:      "TEXT",
	telemetry.ColFlightID:       "TEXT",
	telemetry.ColLat:            "REAL",
	telemetry.ColLon:            "REAL",
	telemetry.ColAltitude:       "REAL",
	telemetry.ColSpeed:          "REAL",
	telemetry.ColHeading:        "REAL",
	telemetry.ColStatus:         "TEXT",
	telemetry.ColIsAnomaly:      "INTEGER",
	telemetry.ColSpeedDiff:      "REAL",
	telemetry.ColAltitudeDiff:   "REAL",
	telemetry.ColModelLabel:     "INTEGER",
	telemetry.ColAnomalyScore:   "REAL",
	telemetry.ColModelIsAnomaly: "INTEGER",
}

// nullFloat stores NaN as NULL
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// scanTargets returns pointers into rec in ScoredColumns order
func (rec *AnomalyRecord) scanTargets() []any {
	return []any{
		&rec.Timestamp, &rec.FlightID, &rec.Lat, &rec.Lon, &rec.Altitude,
		&rec.Speed, &rec.Heading, &rec.Status, &rec.IsAnomaly,
		&rec.SpeedDiff, &rec.AltitudeDiff,
		&rec.ModelLabel, &rec.AnomalyScore, &rec.ModelIsAnomaly,
	}
}

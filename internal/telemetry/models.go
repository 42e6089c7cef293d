package telemetry

import (
	"time"
)

// Status values written by the generator
const (
	StatusOK         = "OK"
	StatusSpeedSpike = "SPEED_SPIKE"
	StatusAltDrop    = "ALT_DROP"
)

// Column names shared by the raw CSV, the processed Parquet file and the scored table
const (
	ColTimestamp      = "timestamp"
	ColFlightID       = "flight_id"
	ColLat            = "lat"
	ColLon            = "lon"
	ColAltitude       = "altitude"
	ColSpeed          = "speed"
	ColHeading        = "heading"
	ColStatus         = "status"
	ColIsAnomaly      = "is_anomaly"
	ColSpeedDiff      = "speed_diff"
	ColAltitudeDiff   = "altitude_diff"
	ColModelLabel     = "model_label"
	ColAnomalyScore   = "anomaly_score"
	ColModelIsAnomaly = "model_is_anomaly"
)

// RawColumns is the header of the raw telemetry CSV, in order
var RawColumns = []string{
	ColTimestamp, ColFlightID, ColLat, ColLon, ColAltitude,
	ColSpeed, ColHeading, ColStatus, ColIsAnomaly,
}

// ProcessedColumns is RawColumns plus the engineered features
var ProcessedColumns = append(append([]string{}, RawColumns...), ColSpeedDiff, ColAltitudeDiff)

// ScoredColumns is ProcessedColumns plus the model output
var ScoredColumns = append(append([]string{}, ProcessedColumns...), ColModelLabel, ColAnomalyScore, ColModelIsAnomaly)

// FeatureCandidates are the numeric columns the scorer may train on
var FeatureCandidates = []string{
	ColLat, ColLon, ColAltitude, ColSpeed, ColHeading, ColSpeedDiff, ColAltitudeDiff,
}

// Point is one row of the raw telemetry table.
// Missing numeric values are NaN.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	FlightID  string    `json:"flight_id"`
	Lat       float64   `json:"lat"`        // degrees
	Lon       float64   `json:"lon"`        // degrees
	Altitude  float64   `json:"altitude"`   // feet
	Speed     float64   `json:"speed"`      // knots
	Heading   float64   `json:"heading"`    // degrees, 0-360
	Status    string    `json:"status"`     // OK, SPEED_SPIKE, ALT_DROP
	IsAnomaly bool      `json:"is_anomaly"` // ground truth injected by the generator
}

// ProcessedPoint is a Point with per-flight first differences.
// Parquet tags define the processed table schema.
type ProcessedPoint struct {
	Timestamp    time.Time `parquet:"timestamp,timestamp(microsecond)"`
	FlightID     string    `parquet:"flight_id"`
	Lat          float64   `parquet:"lat"`
	Lon          float64   `parquet:"lon"`
	Altitude     float64   `parquet:"altitude"`
	Speed        float64   `parquet:"speed"`
	Heading      float64   `parquet:"heading"`
	Status       string    `parquet:"status"`
	IsAnomaly    int32     `parquet:"is_anomaly"`
	SpeedDiff    float64   `parquet:"speed_diff"`
	AltitudeDiff float64   `parquet:"altitude_diff"`
}

// Feature returns the value of a numeric feature column
func (p *ProcessedPoint) Feature(column string) (float64, bool) {
	switch column {
	case ColLat:
		return p.Lat, true
	case ColLon:
		return p.Lon, true
	case ColAltitude:
		return p.Altitude, true
	case ColSpeed:
		return p.Speed, true
	case ColHeading:
		return p.Heading, true
	case ColSpeedDiff:
		return p.SpeedDiff, true
	case ColAltitudeDiff:
		return p.AltitudeDiff, true
	default:
		return 0, false
	}
}

// ScoredPoint is a ProcessedPoint with the outlier model's verdict
type ScoredPoint struct {
	ProcessedPoint
	ModelLabel     int     // +1 inlier, -1 outlier
	AnomalyScore   float64 // lower is more anomalous
	ModelIsAnomaly bool
}

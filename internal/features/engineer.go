package features

import (
	"math"
	"sort"

	"github.com/yegors/intel-pipeline/internal/telemetry"
)

// Engineer sorts points by flight and time and computes per-flight first
// differences of speed and altitude. The first row of a flight and any
// difference involving a missing value are 0.
func Engineer(points []telemetry.Point) []telemetry.ProcessedPoint {
	sorted := make([]telemetry.Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].FlightID != sorted[b].FlightID {
			return sorted[a].FlightID < sorted[b].FlightID
		}
		return sorted[a].Timestamp.Before(sorted[b].Timestamp)
	})

	out := make([]telemetry.ProcessedPoint, len(sorted))
	for i, p := range sorted {
		row := telemetry.ProcessedPoint{
			Timestamp: p.Timestamp,
			FlightID:  p.FlightID,
			Lat:       p.Lat,
			Lon:       p.Lon,
			Altitude:  p.Altitude,
			Speed:     p.Speed,
			Heading:   p.Heading,
			Status:    p.Status,
		}
		if p.IsAnomaly {
			row.IsAnomaly = 1
		}
		if i > 0 && sorted[i-1].FlightID == p.FlightID {
			row.SpeedDiff = diff(p.Speed, sorted[i-1].Speed)
			row.AltitudeDiff = diff(p.Altitude, sorted[i-1].Altitude)
		}
		out[i] = row
	}
	return out
}

func diff(cur, prev float64) float64 {
	d := cur - prev
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/yegors/intel-pipeline/internal/telemetry"
)

// ReadStats counts rows that were dropped or coerced while reading raw telemetry
type ReadStats struct {
	Rows             int
	InvalidTimestamp int
	CoercedNumeric   int
}

var numericColumns = []string{
	telemetry.ColLat, telemetry.ColLon, telemetry.ColAltitude, telemetry.ColSpeed, telemetry.ColHeading,
}

// ReadRaw parses the raw telemetry CSV. Rows with an unparseable timestamp
// are dropped; non-numeric values become NaN.
func ReadRaw(r io.Reader) ([]telemetry.Point, ReadStats, error) {
	var stats ReadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("raw telemetry has no header")
		}
		return nil, stats, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{telemetry.ColTimestamp, telemetry.ColFlightID} {
		if _, ok := index[required]; !ok {
			return nil, stats, fmt.Errorf("raw telemetry is missing column %q", required)
		}
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var points []telemetry.Point
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		ts, err := telemetry.ParseTimestamp(field(record, telemetry.ColTimestamp))
		if err != nil {
			stats.InvalidTimestamp++
			continue
		}

		values := make(map[string]float64, len(numericColumns))
		for _, col := range numericColumns {
			v, ok := parseNumeric(field(record, col))
			if !ok {
				stats.CoercedNumeric++
			}
			values[col] = v
		}

		points = append(points, telemetry.Point{
			Timestamp: ts,
			FlightID:  field(record, telemetry.ColFlightID),
			Lat:       values[telemetry.ColLat],
			Lon:       values[telemetry.ColLon],
			Altitude:  values[telemetry.ColAltitude],
			Speed:     values[telemetry.ColSpeed],
			Heading:   values[telemetry.ColHeading],
			Status:    field(record, telemetry.ColStatus),
			IsAnomaly: parseFlag(field(record, telemetry.ColIsAnomaly)),
		})
	}

	return points, stats, nil
}

// parseNumeric returns NaN and false for anything that is not a number.
// An empty cell is missing but not counted as coerced.
func parseNumeric(value string) (float64, bool) {
	if value == "" {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}

func parseFlag(value string) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v != 0
	}
	return false
}

package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yegors/intel-pipeline/internal/telemetry"
)

// WriteCSV writes points as the raw telemetry table, replacing any existing file
func WriteCSV(path string, points []telemetry.Point) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cErr := file.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cErr)
		}
	}()

	w := csv.NewWriter(file)
	if err := w.Write(telemetry.RawColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range points {
		if err := w.Write(recordOf(p)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func recordOf(p telemetry.Point) []string {
	isAnomaly := "0"
	if p.IsAnomaly {
		isAnomaly = "1"
	}
	return []string{
		telemetry.FormatTimestamp(p.Timestamp),
		p.FlightID,
		formatFloat(p.Lat),
		formatFloat(p.Lon),
		formatFloat(p.Altitude),
		formatFloat(p.Speed),
		formatFloat(p.Heading),
		p.Status,
		isAnomaly,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package sqlite

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/intel-pipeline/internal/telemetry"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

const testTable = "telemetry_anomalies"

func openTestStorage(t *testing.T) (*AnomalyStorage, *sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "intel.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAnomalyStorage(db, logger.NewNop()), db, path
}

func scored(flight string, i int, score float64, anomaly bool) telemetry.ScoredPoint {
	label := 1
	if anomaly {
		label = -1
	}
	return telemetry.ScoredPoint{
		ProcessedPoint: telemetry.ProcessedPoint{
			Timestamp: time.Date(2025, 3, 1, 10, 0, i*10, 0, time.UTC),
			FlightID:  flight,
			Lat:       40 + float64(i)/100,
			Lon:       -73,
			Altitude:  35000,
			Speed:     450,
			Heading:   90,
			Status:    telemetry.StatusOK,
		},
		ModelLabel:     label,
		AnomalyScore:   score,
		ModelIsAnomaly: anomaly,
	}
}

func TestReplaceAllAndList(t *testing.T) {
	ctx := context.Background()
	store, _, _ := openTestStorage(t)

	rows := []telemetry.ScoredPoint{
		scored("FLIGHT_001", 0, 0.10, false),
		scored("FLIGHT_001", 1, -0.20, true),
		scored("FLIGHT_002", 0, 0.05, false),
		scored("FLIGHT_002", 1, -0.01, true),
	}
	rows[0].Speed = math.NaN()
	require.NoError(t, store.ReplaceAll(ctx, testTable, rows))

	columns, err := store.Columns(ctx, testTable)
	require.NoError(t, err)
	assert.Equal(t, telemetry.ScoredColumns, columns)

	all, err := store.List(ctx, testTable, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, *all[i-1].AnomalyScore, *all[i].AnomalyScore)
	}
	assert.Equal(t, "2025-03-01 10:00:10.000000+00:00", *all[0].Timestamp)

	var nanRow *AnomalyRecord
	for i := range all {
		if *all[i].AnomalyScore == 0.10 {
			nanRow = &all[i]
		}
	}
	require.NotNil(t, nanRow)
	assert.Nil(t, nanRow.Speed, "NaN is stored as NULL")

	anomalies, err := store.List(ctx, testTable, ListOptions{OnlyAnomalies: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, int64(1), *anomalies[0].ModelIsAnomaly)
	assert.Equal(t, int64(-1), *anomalies[0].ModelLabel)
	assert.InDelta(t, -0.20, *anomalies[0].AnomalyScore, 1e-12)

	stats, err := store.Stats(ctx, testTable)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, NAnomalies: 2, AnomalyPct: 50}, stats)
}

func TestReplaceAllTwiceKeepsOnlySecondRun(t *testing.T) {
	ctx := context.Background()
	store, _, _ := openTestStorage(t)

	first := make([]telemetry.ScoredPoint, 10)
	for i := range first {
		first[i] = scored("FLIGHT_001", i, float64(i), false)
	}
	require.NoError(t, store.ReplaceAll(ctx, testTable, first))

	second := []telemetry.ScoredPoint{scored("FLIGHT_009", 0, -1, true), scored("FLIGHT_009", 1, 1, false)}
	require.NoError(t, store.ReplaceAll(ctx, testTable, second))

	all, err := store.List(ctx, testTable, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, rec := range all {
		assert.Equal(t, "FLIGHT_009", *rec.FlightID)
	}
}

func TestReplaceAllRejectsBadTableName(t *testing.T) {
	store, _, _ := openTestStorage(t)
	err := store.ReplaceAll(context.Background(), "anomalies; DROP TABLE x", nil)
	require.Error(t, err)
}

func TestMissingTableIsEmpty(t *testing.T) {
	ctx := context.Background()
	store, _, _ := openTestStorage(t)

	exists, err := store.TableExists(ctx, testTable)
	require.NoError(t, err)
	assert.False(t, exists)

	rows, err := store.List(ctx, testTable, ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)

	stats, err := store.Stats(ctx, testTable)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestListToleratesMissingColumns(t *testing.T) {
	ctx := context.Background()
	store, db, _ := openTestStorage(t)

	_, err := db.Exec(`CREATE TABLE partial (flight_id TEXT, speed REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO partial VALUES ('FLIGHT_001', 450), ('FLIGHT_002', 460)`)
	require.NoError(t, err)

	rows, err := store.List(ctx, "partial", ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].AnomalyScore)
	assert.Nil(t, rows[0].Timestamp)
	assert.NotNil(t, rows[0].Speed)

	anomalies, err := store.List(ctx, "partial", ListOptions{OnlyAnomalies: true})
	require.NoError(t, err)
	assert.Empty(t, anomalies)

	stats, err := store.Stats(ctx, "partial")
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2}, stats)
}

func TestStatsRoundsPercentage(t *testing.T) {
	ctx := context.Background()
	store, _, _ := openTestStorage(t)

	rows := []telemetry.ScoredPoint{
		scored("A", 0, -1, true),
		scored("A", 1, 1, false),
		scored("A", 2, 1, false),
	}
	require.NoError(t, store.ReplaceAll(ctx, testTable, rows))

	stats, err := store.Stats(ctx, testTable)
	require.NoError(t, err)
	assert.Equal(t, 33.333, stats.AnomalyPct)
}

func TestOpenExistingNeverCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, err := OpenExisting(path)
	require.ErrorIs(t, err, ErrNoDatabase)
	assert.NoFileExists(t, path)

	_, _, created := openTestStorage(t)
	db, err := OpenExisting(created)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

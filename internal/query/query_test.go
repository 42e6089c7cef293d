package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yegors/intel-pipeline/internal/storage/sqlite"
	"github.com/yegors/intel-pipeline/internal/telemetry"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

const table = "telemetry_anomalies"

func seedStore(t *testing.T, path string, n, anomalies int) {
	t.Helper()
	db, err := sqlite.Open(path)
	require.NoError(t, err)
	defer db.Close()

	rows := make([]telemetry.ScoredPoint, n)
	for i := range rows {
		rows[i] = telemetry.ScoredPoint{
			ProcessedPoint: telemetry.ProcessedPoint{
				Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * 10 * time.Second),
				FlightID:  "FLIGHT_001",
				Status:    telemetry.StatusOK,
			},
			ModelLabel:   1,
			AnomalyScore: float64(n - i),
		}
		if i < anomalies {
			rows[i].ModelLabel = -1
			rows[i].ModelIsAnomaly = true
			rows[i].AnomalyScore = -float64(i + 1)
		}
	}
	require.NoError(t, sqlite.NewAnomalyStorage(db, logger.NewNop()).ReplaceAll(context.Background(), table, rows))
}

func TestMissingStoreIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.db")
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewService(path, table, logger.FromCore(core))

	list, err := svc.Anomalies(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Anomalies)

	dash, err := svc.Dashboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, dash.Rows)
	assert.Equal(t, sqlite.Stats{}, dash.Stats)

	assert.NoFileExists(t, path, "query layer must not create the store")
	assert.Equal(t, 2, logs.FilterMessage("Store not found").Len())
}

func TestAnomaliesSortedAndLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.db")
	seedStore(t, path, 20, 5)
	svc := NewService(path, table, logger.NewNop())

	list, err := svc.Anomalies(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 5, list.Count)
	for i, rec := range list.Anomalies {
		assert.Equal(t, int64(1), *rec.ModelIsAnomaly)
		if i > 0 {
			assert.LessOrEqual(t, *list.Anomalies[i-1].AnomalyScore, *rec.AnomalyScore)
		}
	}
	assert.Equal(t, -5.0, *list.Anomalies[0].AnomalyScore)

	limited, err := svc.Anomalies(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, limited.Count)
}

func TestDashboardStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.db")
	seedStore(t, path, 30, 4)
	svc := NewService(path, table, logger.NewNop())

	dash, err := svc.Dashboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, dash.Rows, 10)
	assert.Equal(t, int64(30), dash.Stats.Total)
	assert.Equal(t, int64(4), dash.Stats.NAnomalies)
	assert.Equal(t, 13.333, dash.Stats.AnomalyPct)

	full, err := svc.Dashboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, full.Rows, 30)
}

func TestMissingTableIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.db")
	seedStore(t, path, 3, 1)
	svc := NewService(path, "other_table", logger.NewNop())

	list, err := svc.Anomalies(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Count)
}

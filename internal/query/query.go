// Package query serves read-only views of the scored table. The store is
// opened per call and is never created here.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/yegors/intel-pipeline/internal/storage/sqlite"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// Default limits for Anomalies and Dashboard
const (
	DefaultAnomalyLimit   = 100
	DefaultDashboardLimit = 200
)

// AnomalyList is the payload of the anomalies endpoint
type AnomalyList struct {
	Anomalies []sqlite.AnomalyRecord `json:"anomalies"`
	Count     int                    `json:"count"`
}

// Dashboard is the data behind the HTML dashboard
type Dashboard struct {
	Rows  []sqlite.AnomalyRecord `json:"rows"`
	Stats sqlite.Stats           `json:"stats"`
}

// Service reads the scored table
type Service struct {
	dbPath string
	table  string
	logger *logger.Logger
}

// NewService creates a query service for table in the database at dbPath
func NewService(dbPath, table string, logger *logger.Logger) *Service {
	return &Service{
		dbPath: dbPath,
		table:  table,
		logger: logger.Named("query"),
	}
}

// Table returns the name of the table being served
func (s *Service) Table() string {
	return s.table
}

// withStorage runs fn against the store. A missing store is not an error
// and fn is not called.
func (s *Service) withStorage(fn func(*sqlite.AnomalyStorage) error) error {
	db, err := sqlite.OpenExisting(s.dbPath)
	if err != nil {
		if errors.Is(err, sqlite.ErrNoDatabase) {
			s.logger.Debug("Store not found", logger.String("path", s.dbPath))
			return nil
		}
		return err
	}
	defer db.Close()

	return fn(sqlite.NewAnomalyStorage(db, s.logger))
}

// Anomalies returns rows the model flagged, most anomalous first.
// limit <= 0 selects DefaultAnomalyLimit.
func (s *Service) Anomalies(ctx context.Context, limit int) (*AnomalyList, error) {
	if limit <= 0 {
		limit = DefaultAnomalyLimit
	}

	list := &AnomalyList{Anomalies: []sqlite.AnomalyRecord{}}
	err := s.withStorage(func(store *sqlite.AnomalyStorage) error {
		rows, err := store.List(ctx, s.table, sqlite.ListOptions{OnlyAnomalies: true, Limit: limit})
		if err != nil {
			return err
		}
		list.Anomalies = rows
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}

	list.Count = len(list.Anomalies)
	return list, nil
}

// Dashboard returns unfiltered rows in the same order plus table stats.
// limit <= 0 selects DefaultDashboardLimit.
func (s *Service) Dashboard(ctx context.Context, limit int) (*Dashboard, error) {
	if limit <= 0 {
		limit = DefaultDashboardLimit
	}

	dash := &Dashboard{Rows: []sqlite.AnomalyRecord{}}
	err := s.withStorage(func(store *sqlite.AnomalyStorage) error {
		rows, err := store.List(ctx, s.table, sqlite.ListOptions{Limit: limit})
		if err != nil {
			return err
		}
		stats, err := store.Stats(ctx, s.table)
		if err != nil {
			return err
		}
		dash.Rows = rows
		dash.Stats = stats
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return dash, nil
}

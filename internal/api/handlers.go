package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/internal/query"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// Querier is the read side the handlers need
type Querier interface {
	Anomalies(ctx context.Context, limit int) (*query.AnomalyList, error)
	Dashboard(ctx context.Context, limit int) (*query.Dashboard, error)
}

// Handler serves the read-only endpoints
type Handler struct {
	queries   Querier
	config    config.ServerConfig
	dashboard *dashboardRenderer
	logger    *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(queries Querier, cfg config.ServerConfig, logger *logger.Logger) *Handler {
	return &Handler{
		queries:   queries,
		config:    cfg,
		dashboard: newDashboardRenderer(),
		logger:    logger.Named("api-handler"),
	}
}

// GetAnomalies returns model-flagged rows as JSON
func (h *Handler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, h.config.APILimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.queries.Anomalies(r.Context(), limit)
	if err != nil {
		h.requestLogger(r).Error("Failed to list anomalies", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read anomalies")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetDashboard renders the HTML dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, h.config.DashboardLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dash, err := h.queries.Dashboard(r.Context(), limit)
	if err != nil {
		h.requestLogger(r).Error("Failed to build dashboard", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read dashboard")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.dashboard.render(w, dash); err != nil {
		h.requestLogger(r).Error("Failed to render dashboard", logger.Error(err))
	}
}

// GetHealth reports liveness
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestLogger(r *http.Request) *logger.Logger {
	return h.logger.WithRequestID(middleware.GetReqID(r.Context()))
}

type limitError struct {
	value string
}

func (e *limitError) Error() string {
	return "invalid limit " + strconv.Quote(e.value) + ": must be a non-negative integer"
}

// parseLimit reads ?limit=. Absent or zero selects def.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &limitError{value: raw}
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package api

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/yegors/intel-pipeline/internal/query"
	"github.com/yegors/intel-pipeline/internal/telemetry"
)

//go:embed web/templates/index.html
var templateFS embed.FS

// dashboardView is the flattened data the template renders
type dashboardView struct {
	Title      string
	Total      string
	NAnomalies string
	AnomalyPct string
	Columns    []string
	Rows       []dashboardRow
}

type dashboardRow struct {
	Anomaly bool
	Cells   []string
}

type dashboardRenderer struct {
	tmpl *template.Template
}

func newDashboardRenderer() *dashboardRenderer {
	return &dashboardRenderer{
		tmpl: template.Must(template.ParseFS(templateFS, "web/templates/index.html")),
	}
}

func (d *dashboardRenderer) render(w io.Writer, dash *query.Dashboard) error {
	return d.tmpl.Execute(w, buildDashboardView(dash))
}

func buildDashboardView(dash *query.Dashboard) dashboardView {
	view := dashboardView{
		Title:      "Telemetry Anomalies",
		Total:      humanize.Comma(dash.Stats.Total),
		NAnomalies: humanize.Comma(dash.Stats.NAnomalies),
		AnomalyPct: strconv.FormatFloat(dash.Stats.AnomalyPct, 'f', -1, 64),
		Columns:    telemetry.ScoredColumns,
		Rows:       make([]dashboardRow, 0, len(dash.Rows)),
	}
	for i := range dash.Rows {
		rec := &dash.Rows[i]
		view.Rows = append(view.Rows, dashboardRow{
			Anomaly: rec.ModelIsAnomaly != nil && *rec.ModelIsAnomaly == 1,
			Cells: []string{
				str(rec.Timestamp), str(rec.FlightID),
				decimal(rec.Lat, 5), decimal(rec.Lon, 5), decimal(rec.Altitude, 1),
				decimal(rec.Speed, 1), decimal(rec.Heading, 1), str(rec.Status),
				integer(rec.IsAnomaly), decimal(rec.SpeedDiff, 2), decimal(rec.AltitudeDiff, 2),
				integer(rec.ModelLabel), decimal(rec.AnomalyScore, 4), integer(rec.ModelIsAnomaly),
			},
		})
	}
	return view
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func decimal(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func integer(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

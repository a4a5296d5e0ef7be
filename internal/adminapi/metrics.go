package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/bbluechip/catalogadmin/internal/webserver"
	"github.com/bbluechip/catalogadmin/pkg/metrics"
)

var knownMetrics = map[string]bool{
	metrics.CatalogStockedRows: true,
	metrics.CatalogBulkActions: true,
	metrics.ReviewImportedRows: true,
	metrics.ReviewExportedRows: true,
	metrics.ProcessCpuUse:      true,
	metrics.ProcessMemUse:      true,
}

func registerMetricsRoutes() {
	webserver.ApiGET("/system/metrics/:name", getMetricSeries)
}

// getMetricSeries returns the samples of one metric over the last hours
// (default 24, at most one week) plus its current value.
func getMetricSeries(c echo.Context) error {
	name := c.Param("name")
	if !knownMetrics[name] {
		return fail(c, http.StatusNotFound, "METRIC_NOT_FOUND", "Unknown metric", nil)
	}
	hours := 24
	if v := c.QueryParam("hours"); v != "" {
		h, err := cast.ToIntE(v)
		if err != nil || h <= 0 || h > 168 {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "hours must be between 1 and 168", nil)
		}
		hours = h
	}

	end := time.Now()
	points, err := metrics.Query(name, end.Add(-time.Duration(hours)*time.Hour), end)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metric", err.Error())
	}

	current := metrics.GetCounter(name)
	if name == metrics.ProcessCpuUse || name == metrics.ProcessMemUse {
		current = metrics.GetGauge(name)
	}
	return ok(c, map[string]interface{}{
		"name":    name,
		"current": current,
		"summary": metrics.Summarize(points),
		"points":  points,
	})
}

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalytics "github.com/MikeL71221ibpm/iBPM-sub012/internal/application/analytics"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/prometheus"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/interfaces/http/handlers"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/interfaces/http/middleware"
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

type noopAnalytics struct{}

func (noopAnalytics) Pivot(context.Context, appanalytics.PivotRequest) (atypes.PivotResponse, error) {
	return atypes.PivotResponse{Dimension: atypes.DimensionDiagnosis}, nil
}

func (noopAnalytics) Heatmap(context.Context, appanalytics.PivotRequest) ([]atypes.HeatmapSeries, error) {
	return nil, nil
}

func (noopAnalytics) Bubble(context.Context, appanalytics.PivotRequest) ([]atypes.BubblePoint, error) {
	return nil, nil
}

func (noopAnalytics) Legend() []atypes.LegendEntry { return atypes.Legend() }

func newTestRouter(t *testing.T, checkers ...handlers.HealthChecker) http.Handler {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "ibpm_test"}, logging.NewNopLogger())
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		AnalyticsHandler: handlers.NewAnalyticsHandler(noopAnalytics{}),
		HealthHandler:    handlers.NewHealthHandler("test", checkers...),
		Logger:           logging.NewNopLogger(),
		Metrics:          prometheus.NewAppMetrics(collector),
		Collector:        collector,
		Mode:             "test",
	})
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouterProbes(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")

	w = get(r, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterReadinessFailsOnUnhealthyComponent(t *testing.T) {
	bad := handlers.CheckerFunc{
		ComponentName: "postgres",
		Fn: func(context.Context) error {
			return context.DeadlineExceeded
		},
	}
	r := newTestRouter(t, bad)

	w := get(r, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "postgres")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	// A prior request gives the HTTP counters a series to expose.
	get(r, "/api/v1/analytics/legend")

	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ibpm_test_http_requests_total")
}

func TestRouterAnalyticsRoutesWired(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/api/v1/patients/P1/pivot")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/api/v1/analytics/legend")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/api/v1/nothing/here")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterEchoesRequestID(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/legend", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

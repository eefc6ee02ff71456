package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/hubcrm/backend/internal/infrastructure/telemetry"
)

func TestHTTPMetrics(t *testing.T) {
	reader := metric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zap.NewNop())

	router := gin.New()
	router.Use(HTTPMetrics(mp))
	router.GET("/api/v1/deals/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/deals/1", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/deals/2", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Aggregation{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m.Data
	}

	total, ok := byName["http_server_request_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range total.DataPoints {
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
		counts[route.AsString()] += dp.Value
		if route.AsString() == "unknown" {
			assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())
		}
	}
	assert.Equal(t, map[string]int64{"/api/v1/deals/:id": 2, "unknown": 1}, counts)

	active, ok := byName["http_server_active_requests"].(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		assert.Equal(t, int64(0), dp.Value)
	}

	_, ok = byName["http_server_request_duration_seconds"].(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(t.Context(), telemetry.MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)

	for _, handler := range []gin.HandlerFunc{HTTPMetrics(nil), HTTPMetrics(mp)} {
		router := gin.New()
		router.Use(handler)
		router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

		w := serve(router, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, "pong", w.Body.String())
	}
}

package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	f := setupTestServer(t)

	f.do(t, http.MethodGet, "/health", "")
	f.do(t, http.MethodGet, "/api/v1/owners/u1/goals", "")
	f.do(t, http.MethodGet, "/api/v1/owners/u1/goals/missing", "")

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	requests := map[string]int64{}
	var durations uint64
	foundSize := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "contextiq.http.requests_total":
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					endpoint, _ := dp.Attributes.Value(attribute.Key("endpoint"))
					status, _ := dp.Attributes.Value(attribute.Key("status"))
					requests[endpoint.AsString()+" "+status.Emit()] += dp.Value
				}
			case "contextiq.http.request_duration_seconds":
				hist, ok := m.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				for _, dp := range hist.DataPoints {
					durations += dp.Count
				}
			case "contextiq.http.response_size_bytes":
				foundSize = true
			}
		}
	}

	assert.Equal(t, map[string]int64{
		"/health 200":                         1,
		"/api/v1/owners/:owner/goals 200":     1,
		"/api/v1/owners/:owner/goals/:id 404": 1,
	}, requests)
	assert.Equal(t, uint64(3), durations)
	assert.True(t, foundSize, "response size histogram not found")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/health", "/health"},
		{"/api/v1/owners/:owner/decisions/:id", "/api/v1/owners/:owner/decisions/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input))
	}
}

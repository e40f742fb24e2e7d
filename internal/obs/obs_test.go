package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewMetrics("retailstore", reg)
	second := NewMetrics("retailstore", reg)

	first.SalesTotal.WithLabelValues("sell").Inc()
	second.SalesTotal.WithLabelValues("sell").Inc()
	second.Turnover.Set(12.5)

	assert.Equal(t, float64(2), testutil.ToFloat64(first.SalesTotal.WithLabelValues("sell")))
	assert.Equal(t, 12.5, testutil.ToFloat64(first.Turnover))
}

func TestLoggerLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "nonsense")
	logger.Debug().Msg("hidden")
	logger.Info().Str("k", "v").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &payload))
	assert.Equal(t, "shown", payload["message"])
	assert.Equal(t, "v", payload["k"])
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Get("/receipts/{number}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/7", nil))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload))
	assert.Equal(t, "/receipts/{number}", payload["route"])
	assert.Equal(t, float64(http.StatusTeapot), payload["status"])
}

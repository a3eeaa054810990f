package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.Sent("threshold")
	m.Sent("threshold")
	m.Suppressed("offline")
	m.Failed("channel")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `slackproc_alerts_sent_total{kind="threshold"} 2`)
	assert.Contains(t, string(body), `slackproc_alerts_suppressed_total{kind="offline"} 1`)
	assert.Contains(t, string(body), `slackproc_delivery_failures_total{kind="channel"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics
	m.Sent("channel")
	m.Suppressed("channel")
	m.Failed("channel")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, cv.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}

func TestMetrics_RecordAuthOutcome(t *testing.T) {
	m := NewMetrics()

	m.RecordAuthOutcome("login", "success")
	m.RecordAuthOutcome("login", "success")
	m.RecordAuthOutcome("login", "invalid_credentials")

	assert.Equal(t, 2.0, counterValue(t, m.authOutcomes, "login", "success"))
	assert.Equal(t, 1.0, counterValue(t, m.authOutcomes, "login", "invalid_credentials"))
}

func TestMetrics_RecordRequestAndError(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/auth/login", http.MethodPost, 200, 15*time.Millisecond)
	m.RecordError("/auth/login", http.MethodPost, "UNAUTHORIZED")

	assert.Equal(t, 1.0, counterValue(t, m.requestsTotal, "/auth/login", http.MethodPost, "200"))
	assert.Equal(t, 1.0, counterValue(t, m.errorsTotal, "/auth/login", http.MethodPost, "UNAUTHORIZED"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", http.MethodGet, 200, time.Millisecond)
		m.RecordError("/", http.MethodGet, "X")
		m.RecordAuthOutcome("login", "success")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordAuthOutcome("impersonate", "permission_denied")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `backbone_auth_outcomes_total{operation="impersonate",outcome="permission_denied"} 1`)
}

func TestRequestLogger_RecordsRoutePath(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/users/:name", func(c *fiber.Ctx) error { return c.SendString(c.Params("name")) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/alice", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "alice", string(body))

	assert.Equal(t, 1.0, counterValue(t, m.requestsTotal, "/users/:name", http.MethodGet, "200"))
}

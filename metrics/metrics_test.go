package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/me", "4xx"))
	ObserveRequest("GET", "/api/me", 401, 0.01)
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/me", "4xx"))
	assert.Equal(t, before+1, after)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(200))
	assert.Equal(t, "3xx", statusLabel(302))
	assert.Equal(t, "4xx", statusLabel(401))
	assert.Equal(t, "5xx", statusLabel(503))
}

func TestHandler_Exposition(t *testing.T) {
	DBConnectAttempts.WithLabelValues("success").Inc()

	app := fiber.New()
	app.Get("/metrics", Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "equiherds_db_connect_attempts_total"))
}

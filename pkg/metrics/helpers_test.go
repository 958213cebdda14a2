package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHandler_ServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", prometheusHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/topup", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	size := computeApproximateRequestSize(req)
	// method + path + proto + header + host + body, roughly
	require.Greater(t, size, len("/api/v1/topup"))
}

func TestMillisecondsSince(t *testing.T) {
	start := time.Now().Add(-250 * time.Millisecond)
	elapsed := MillisecondsSince(start)
	require.GreaterOrEqual(t, elapsed, 250.0)
	require.Less(t, elapsed, 5000.0)
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddleware_ObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/tree", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", Handler())

	before := testutil.CollectAndCount(HTTPRequestDuration)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/tree", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, testutil.CollectAndCount(HTTPRequestDuration), before)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "eqtrack_http_request_duration_seconds")
}

func TestUploadsCounter(t *testing.T) {
	before := testutil.ToFloat64(Uploads.WithLabelValues("logs", OutcomeInvalid))
	Uploads.WithLabelValues("logs", OutcomeInvalid).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Uploads.WithLabelValues("logs", OutcomeInvalid)))
}

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureCounter struct {
	records [][]Label
}

func (c *captureCounter) Inc(_ context.Context, labels ...Label) {
	c.records = append(c.records, append([]Label(nil), labels...))
}

func (c *captureCounter) Add(ctx context.Context, _ float64, labels ...Label) {
	c.Inc(ctx, labels...)
}

type captureHistogram struct {
	values []float64
}

func (h *captureHistogram) Record(_ context.Context, val float64, _ ...Label) {
	h.values = append(h.values, val)
}

func labelValue(labels []Label, key string) string {
	for _, label := range labels {
		if label.Key == key {
			return label.Value
		}
	}
	return ""
}

func newCaptureRouter(skipRoutes ...string) (*gin.Engine, *captureCounter, *captureHistogram) {
	gin.SetMode(gin.TestMode)
	counter := &captureCounter{}
	histogram := &captureHistogram{}
	httpMetrics := &HTTPServerMetrics{
		service:      "flaked",
		requestTotal: counter,
		duration:     histogram,
	}

	router := gin.New()
	router.Use(GinMiddleware(httpMetrics, skipRoutes...))
	router.GET("/v1/ids/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/v1/ids", func(c *gin.Context) {
		c.Set(GinErrorCodeKey, "clock_moved_backwards")
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "clock_moved_backwards"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "# scrape")
	})
	return router, counter, histogram
}

func TestGinMiddleware_UnknownRoute_Unit(t *testing.T) {
	router, counter, histogram := newCaptureRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/random-scan-value", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.Len(t, counter.records, 1)
	assert.Equal(t, UnknownRoute, labelValue(counter.records[0], LabelRoute))
	assert.Len(t, histogram.values, 1)
}

func TestGinMiddleware_RouteTemplate_Unit(t *testing.T) {
	router, counter, _ := newCaptureRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ids/123", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, counter.records, 1)
	labels := counter.records[0]
	assert.Equal(t, "/v1/ids/:id", labelValue(labels, LabelRoute))
	assert.Equal(t, "2xx", labelValue(labels, LabelStatusClass))
	assert.Equal(t, OutcomeSuccess, labelValue(labels, LabelOutcome))
	assert.Equal(t, "flaked", labelValue(labels, LabelService))
	assert.Equal(t, CodeNone, labelValue(labels, LabelCode))
}

func TestGinMiddleware_ErrorOutcome_Unit(t *testing.T) {
	router, counter, _ := newCaptureRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ids", nil))

	require.Len(t, counter.records, 1)
	assert.Equal(t, "5xx", labelValue(counter.records[0], LabelStatusClass))
	assert.Equal(t, OutcomeError, labelValue(counter.records[0], LabelOutcome))
	assert.Equal(t, "clock_moved_backwards", labelValue(counter.records[0], LabelCode))
}

func TestGinMiddleware_SkipRoutes_Unit(t *testing.T) {
	router, counter, histogram := newCaptureRouter("/metrics")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, counter.records)
	assert.Empty(t, histogram.values)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ids/1", nil))
	require.Len(t, counter.records, 1)
	assert.Equal(t, "/v1/ids/:id", labelValue(counter.records[0], LabelRoute))
}

func TestGinMiddleware_NilMetrics_Unit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware(nil))
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

package handlers

import (
	"strconv"
	"time"

	"monetization-ledger/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusHandler serves the default registry. Collection errors are
// reported in the response body instead of failing the scrape.
func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	}))
}

// observe records the request latency for endpoint once the returned func runs.
func (s *Server) observe(c *gin.Context, endpoint string) func() {
	start := time.Now()
	return func() {
		status := strconv.Itoa(c.Writer.Status())
		metrics.ResponseTime.WithLabelValues(c.Request.Method, endpoint, status).Observe(time.Since(start).Seconds())
	}
}

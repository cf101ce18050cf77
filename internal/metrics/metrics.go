package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bucketlist",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bucketlist",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	itemOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bucketlist",
		Name:      "item_operations_total",
		Help:      "Item store operations by operation and result.",
	}, []string{"op", "result"})

	imageResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bucketlist",
		Name:      "image_url_resolutions_total",
		Help:      "Presigned image URL resolutions by result.",
	}, []string{"result"})
)

// InitMetrics registers collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, itemOperations, imageResolutions)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequests.WithLabelValues(route, c.Request.Method, status).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// ObserveItemOp counts one item store operation.
func ObserveItemOp(op string, err error) {
	itemOperations.WithLabelValues(op, result(err)).Inc()
}

// ObserveImageResolution counts one presigned URL resolution.
func ObserveImageResolution(err error) {
	imageResolutions.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

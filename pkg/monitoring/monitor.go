package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// StructureOperations 章节/课时/课程写操作结果
	StructureOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_structure_operations_total",
			Help: "Total number of course structure operations by result",
		},
		[]string{"operation", "status"},
	)

	// RenumberedRows 删除后因补位而改写 position 的行数
	RenumberedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_structure_renumbered_rows_total",
			Help: "Rows whose position was rewritten to close a gap",
		},
		[]string{"kind"},
	)

	registerOnce sync.Once
)

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(StructureOperations)
		prometheus.MustRegister(RenumberedRows)
	})
}

func ObserveOperation(operation, status string) {
	StructureOperations.WithLabelValues(operation, status).Inc()
}

func ObserveRenumber(kind string, rows int) {
	if rows <= 0 {
		return
	}
	RenumberedRows.WithLabelValues(kind).Add(float64(rows))
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

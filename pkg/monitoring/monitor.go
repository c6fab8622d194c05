package monitoring

import (
	"strconv"
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

	SubmissionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_rejections_total",
			Help: "Submissions rejected by integrity checks, by rejection code",
		},
		[]string{"code", "game"},
	)

	SubmissionsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_scored_total",
			Help: "Submissions re-scored server side, by game and strategy outcome",
		},
		[]string{"game"},
	)

	ScoreAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_adjustments_total",
			Help: "Submissions where the server score differed from the client report",
		},
		[]string{"game"},
	)

	ProctoringFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctoring_flags_total",
			Help: "Proctoring flags raised, by severity",
		},
		[]string{"severity", "flag_type"},
	)

	OracleRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Circuit verification calls, by outcome",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SubmissionRejections)
	prometheus.MustRegister(SubmissionsScored)
	prometheus.MustRegister(ScoreAdjustments)
	prometheus.MustRegister(ProctoringFlags)
	prometheus.MustRegister(OracleRequests)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

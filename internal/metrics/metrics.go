package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eqtrack_build_info",
		Help: "Build information of the equipment tracker",
	}, []string{"version", "commit"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqtrack_uploads_total", Help: "Uploads processed by category and outcome.",
	}, []string{"category", "outcome"})
	UploadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqtrack_upload_bytes_total", Help: "Bytes written to upload storage by category.",
	}, []string{"category"})
	OrphanFilesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eqtrack_orphan_files_removed_total", Help: "Stored files removed after a failed registration.",
	})

	EquipmentUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqtrack_equipment_upserts_total", Help: "Equipment rows written by inspection uploads.",
	}, []string{"action"})
	ManagementRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqtrack_management_records_total", Help: "Management records appended by source.",
	}, []string{"source"})

	SideIndexErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqtrack_side_index_errors_total", Help: "Failed side-index reads and writes.",
	}, []string{"op"})

	PushNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqtrack_push_notifications_total", Help: "Web push deliveries by result.",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eqtrack_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware records request latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

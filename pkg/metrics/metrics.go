package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	BuyersCreated   prometheus.Counter
	BuyersUpdated   prometheus.Counter
	UpdateConflicts prometheus.Counter
	ImportRows      *prometheus.CounterVec
	ExportsCreated  *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
}

// New creates a new Metrics instance registered on the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance on the given registry.
// Tests pass their own registry so instances never collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		BuyersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "buyers_created_total",
			Help: "Total number of buyer leads created",
		}),
		BuyersUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "buyers_updated_total",
			Help: "Total number of buyer lead updates applied",
		}),
		UpdateConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "buyer_update_conflicts_total",
			Help: "Total number of updates rejected with a stale version token",
		}),
		ImportRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_rows_total",
				Help: "Total number of CSV import rows processed",
			},
			[]string{"result"}, // success, failed
		),
		ExportsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exports_created_total",
				Help: "Total number of exports generated",
			},
			[]string{"format"}, // csv, xlsx
		),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"}, // success, failed
		),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			// Route pattern, not the raw path, to keep cardinality down.
			path := c.Path()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// RecordBuyerCreated increments the created leads counter
func (m *Metrics) RecordBuyerCreated() {
	m.BuyersCreated.Inc()
}

// RecordBuyerUpdated increments the applied updates counter
func (m *Metrics) RecordBuyerUpdated() {
	m.BuyersUpdated.Inc()
}

// RecordUpdateConflict increments the stale update counter
func (m *Metrics) RecordUpdateConflict() {
	m.UpdateConflicts.Inc()
}

// RecordImportRows adds to the import rows counters
func (m *Metrics) RecordImportRows(success, failed int) {
	m.ImportRows.WithLabelValues("success").Add(float64(success))
	m.ImportRows.WithLabelValues("failed").Add(float64(failed))
}

// RecordExportCreated increments the exports counter for a format
func (m *Metrics) RecordExportCreated(format string) {
	m.ExportsCreated.WithLabelValues(format).Inc()
}

// RecordLoginAttempt increments login attempts counter
func (m *Metrics) RecordLoginAttempt(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

// Package metrics defines the Prometheus collectors for minicrm: HTTP
// request metrics recorded by an echo middleware and domain counters for
// lead operations. Collectors live on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "minicrm"

// Metrics holds the registry and all collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	companiesCreated   prometheus.Counter
	duplicatesDetected *prometheus.CounterVec
	importedRecords    *prometheus.CounterVec
	deletedRecords     prometheus.Counter
	statusChanges      *prometheus.CounterVec
	loginAttempts      *prometheus.CounterVec
}

// New creates the collectors and registers them, with the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		companiesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "companies_created_total",
			Help:      "Total number of companies created",
		}),
		duplicatesDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "duplicates_detected_total",
				Help:      "Total number of duplicate matches by matched field",
			},
			[]string{"field"},
		),
		importedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "import_records_total",
				Help:      "Total number of import rows by outcome",
			},
			[]string{"outcome"},
		),
		deletedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "companies_deleted_total",
			Help:      "Total number of companies deleted",
		}),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "status_changes_total",
				Help:      "Total number of status changes by target status",
			},
			[]string{"status"},
		),
		loginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "login_attempts_total",
				Help:      "Total number of login attempts by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.companiesCreated,
		m.duplicatesDetected,
		m.importedRecords,
		m.deletedRecords,
		m.statusChanges,
		m.loginAttempts,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and duration labelled by method, route
// path, and status code.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			method := c.Request().Method
			path := c.Path()
			status := strconv.Itoa(c.Response().Status)
			m.httpRequests.WithLabelValues(method, path, status).Inc()
			m.httpDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// CompanyCreated counts a successful create.
func (m *Metrics) CompanyCreated() {
	if m == nil {
		return
	}
	m.companiesCreated.Inc()
}

// DuplicateDetected counts a duplicate match on field.
func (m *Metrics) DuplicateDetected(field string) {
	if m == nil {
		return
	}
	m.duplicatesDetected.WithLabelValues(field).Inc()
}

// Imported counts import rows that were added and skipped.
func (m *Metrics) Imported(added, skipped int) {
	if m == nil {
		return
	}
	m.importedRecords.WithLabelValues("added").Add(float64(added))
	m.importedRecords.WithLabelValues("skipped").Add(float64(skipped))
}

// Deleted counts removed companies.
func (m *Metrics) Deleted(n int) {
	if m == nil {
		return
	}
	m.deletedRecords.Add(float64(n))
}

// StatusChanged counts a status update to status.
func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// LoginAttempt counts a login by result ("success" or "failure").
func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

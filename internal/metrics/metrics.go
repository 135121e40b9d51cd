// Package metrics exposes Prometheus collectors for calendar requests.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/iwvelando/mortgage-calendar/pkg/loans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error type labels.
const (
	ErrorMissingField = "missing_field"
	ErrorInvalidType  = "invalid_type"
	ErrorDomain       = "domain"
	ErrorInternal     = "internal"
)

// Metrics holds the collectors of one server instance on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Requests counts handled HTTP requests by route, method and status.
	Requests *prometheus.CounterVec
	// RequestDuration observes request latency by route.
	RequestDuration *prometheus.HistogramVec
	// Calendars counts successfully built calendars by variant.
	Calendars *prometheus.CounterVec
	// CalendarMonths observes the number of rows per built calendar.
	CalendarMonths prometheus.Histogram
	// CalculationErrors counts failed builds by error type.
	CalculationErrors *prometheus.CounterVec
}

// New registers the collectors on a fresh registry along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		Calendars: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calendars_built_total",
				Help: "Number of amortization calendars built",
			},
			[]string{"variant"},
		),
		CalendarMonths: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "calendar_months",
				Help:    "Number of months in built calendars",
				Buckets: []float64{12, 60, 120, 180, 240, 300, 360, 480},
			},
		),
		CalculationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calculation_errors_total",
				Help: "Number of failed calendar builds",
			},
			[]string{"error_type"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(route, method, status string, elapsed time.Duration) {
	m.Requests.WithLabelValues(route, method, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveCalendar records a successfully built calendar.
func (m *Metrics) ObserveCalendar(calendar *loans.Calendar) {
	m.Calendars.WithLabelValues(calendar.Variant.String()).Inc()
	m.CalendarMonths.Observe(float64(len(calendar.Rows)))
}

// ObserveError records a failed build.
func (m *Metrics) ObserveError(err error) {
	m.CalculationErrors.WithLabelValues(ErrorType(err)).Inc()
}

// ErrorType classifies err into one of the error type labels.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, loans.ErrMissingField):
		return ErrorMissingField
	case errors.Is(err, loans.ErrInvalidType):
		return ErrorInvalidType
	case errors.Is(err, loans.ErrDomain):
		return ErrorDomain
	default:
		return ErrorInternal
	}
}

package performance

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/chipzone/server/internal/zones"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors of the zone service. It
// implements zones.Observer and analytics.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	ZoneMutations     *prometheus.CounterVec
	AnalyticsDuration *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDurations     *prometheus.HistogramVec
}

// NewMetrics registers the collectors against reg, defaulting to the global
// Prometheus registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	mutations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zone_mutations_total",
		Help: "Zone create, update and delete attempts, labeled by operation and outcome.",
	}, []string{"operation", "outcome"}), "zone_mutations_total")
	if err != nil {
		return nil, err
	}

	analytics, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zone_analytics_duration_seconds",
		Help:    "Zone analytics query latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"outcome"}), "zone_analytics_duration_seconds")
	if err != nil {
		return nil, err
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests, labeled by route, method and status code.",
	}, []string{"route", "method", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:          gatherer,
		ZoneMutations:     mutations,
		AnalyticsDuration: analytics,
		HTTPRequests:      requests,
		HTTPDurations:     durations,
	}, nil
}

// ObserveMutation counts a zone mutation attempt.
func (m *Metrics) ObserveMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.ZoneMutations.WithLabelValues(operation, zones.Kind(err)).Inc()
}

// ObserveAnalytics records the latency of an analytics query.
func (m *Metrics) ObserveAnalytics(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.AnalyticsDuration.WithLabelValues(zones.Kind(err)).Observe(elapsed.Seconds())
}

// RegisterGaugeFunc exposes a value sampled at scrape time, such as the
// number of connected feed clients.
func (m *Metrics) RegisterGaugeFunc(reg prometheus.Registerer, name, help string, fn func() float64) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
	if err := reg.Register(gauge); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}

// Instrument wraps next with request counting and latency tracking under
// the given route label.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.HTTPDurations.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return c, nil
}

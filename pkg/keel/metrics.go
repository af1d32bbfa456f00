package keel

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the Prometheus request metrics
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge
	AuthFailuresTotal   prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers the request metrics on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPRequestsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "keel_http_requests_active",
				Help: "Number of requests being served",
			},
		),
		AuthFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keel_auth_failures_total",
				Help: "Total number of requests rejected with 401",
			},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsActive,
		m.AuthFailuresTotal,
	)
	return m
}

// Middleware records every request. It must run outside ErrorHandling so the
// status code of rendered errors is seen.
func (m *Metrics) Middleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(rc RequestContext) error {
			m.HTTPRequestsActive.Inc()
			defer m.HTTPRequestsActive.Dec()

			start := time.Now()
			err := next(rc)

			route, _ := rc.Get(routeKey).(string)
			if route == "" {
				route = "unmatched"
			}
			status := rc.Response().Status()
			if he, ok := AsHTTPError(err); ok {
				status = he.StatusCode
			}
			if status == http.StatusUnauthorized {
				m.AuthFailuresTotal.Inc()
			}

			m.HTTPRequestsTotal.WithLabelValues(rc.Method(), route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(rc.Method(), route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the gathered metrics in the Prometheus text format
func (m *Metrics) Handler() HandlerFunc {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return func(rc RequestContext) error {
		families, err := m.gatherer.Gather()
		if err != nil {
			return InternalServerError(err)
		}
		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, family := range families {
			if err := enc.Encode(family); err != nil {
				return InternalServerError(err)
			}
		}
		return rc.Response().Blob(http.StatusOK, string(format), buf.Bytes())
	}
}

// Package metrics exposes Prometheus collectors for the authentication
// filter, authorization decisions, credential activity and HTTP traffic.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/middleware/authz"
	"github.com/goliatone/go-civic-auth/middleware/jwtware"
)

const namespace = "civic"

type Metrics struct {
	registry *prometheus.Registry

	filterOutcomes      *prometheus.CounterVec
	authzDecisions      *prometheus.CounterVec
	activityEvents      *prometheus.CounterVec
	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New builds the collectors on a private registry. Go runtime and process
// collectors are registered alongside.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filterOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_filter_outcomes_total",
			Help:      "Requests processed by the authentication filter, by outcome.",
		}, []string{"outcome"}),
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Authorization decisions, by result and matched rule.",
		}, []string{"result", "rule"}),
		activityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_activity_events_total",
			Help:      "Credential activity events, by type.",
		}, []string{"event"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filterOutcomes,
		m.authzDecisions,
		m.activityEvents,
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	// expose every outcome at zero so dashboards do not have gaps
	for _, outcome := range jwtware.Outcomes() {
		m.filterOutcomes.WithLabelValues(string(outcome))
	}

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FilterListener counts authentication filter outcomes
func (m *Metrics) FilterListener() jwtware.OutcomeListener {
	return func(_ router.Context, outcome jwtware.Outcome) {
		m.filterOutcomes.WithLabelValues(string(outcome)).Inc()
	}
}

// DecisionListener counts authorization decisions
func (m *Metrics) DecisionListener() authz.DecisionListener {
	return func(_ router.Context, decision auth.Decision) {
		result := "allow"
		if !decision.Allowed {
			result = string(decision.Reason)
		}

		rule := "default"
		if decision.Rule != nil {
			rule = decision.Rule.Pattern
		}

		m.authzDecisions.WithLabelValues(result, rule).Inc()
	}
}

// ActivitySink counts credential activity events
func (m *Metrics) ActivitySink() auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		m.activityEvents.WithLabelValues(string(event.EventType)).Inc()
		return nil
	})
}

// FiberMiddleware records RPS, latency and in-flight requests. The route
// label uses the matched pattern, not the raw path.
func (m *Metrics) FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}

		labels := []string{c.Method(), route, strconv.Itoa(status)}
		m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(labels...).Inc()

		return err
	}
}

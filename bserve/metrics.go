package bserve

import (
	"strconv"
	"time"

	"github.com/advdv/bcycle"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RequestMetrics records a counter and a latency histogram for every finished request.
type RequestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRequestMetrics creates the collectors and registers them with reg.
func NewRequestMetrics(reg prometheus.Registerer) (*RequestMetrics, error) {
	m := &RequestMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bcycle",
			Name:      "requests_total",
			Help:      "Number of finished requests by method, matched path and status.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bcycle",
			Name:      "request_duration_seconds",
			Help:      "Time from accepting a request to writing its response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register request metrics")
		}
	}

	return m, nil
}

// Observe implements [bcycle.RequestLogger]. Requests without a matched endpoint share one path
// label, methods the engine does not route share one method label.
func (m *RequestMetrics) Observe(c *bcycle.Context, elapsed time.Duration) {
	path := c.Route()
	if path == "" {
		path = "unmatched"
	}

	method := c.Method()
	if !bcycle.HandlerType(method).IsHTTPMethod() {
		method = "other"
	}

	m.requests.WithLabelValues(method, path, strconv.Itoa(c.StatusCode())).Inc()
	m.duration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// NewRegistry returns a registry with the process and go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// requestLoggers fans one finished request out to every logger.
func requestLoggers(rls ...bcycle.RequestLogger) bcycle.RequestLogger {
	return func(c *bcycle.Context, elapsed time.Duration) {
		for _, rl := range rls {
			rl(c, elapsed)
		}
	}
}

package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CrazyForks/subconverter-go/internal/ruleset"
)

type metrics struct {
	reg       *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	appErrors *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry, cache *ruleset.Cache) *metrics {
	m := &metrics{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subconverter_http_requests_total",
			Help: "HTTP requests by route pattern and status.",
		}, []string{"pattern", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subconverter_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pattern"}),
		appErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subconverter_app_errors_total",
			Help: "Application errors returned to clients.",
		}, []string{"stage", "code"}),
	}
	reg.MustRegister(m.requests, m.duration, m.appErrors)
	if cache != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "subconverter_ruleset_fresh_parses_total",
			Help: "Ruleset loads that missed the cache.",
		}, func() float64 { return float64(cache.FreshParses()) }))
	}
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		pattern := r.Method + " " + routePattern(r)
		m.requests.WithLabelValues(pattern, strconv.Itoa(sw.code())).Inc()
		m.duration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}

func (m *metrics) incAppError(stage, code string) {
	stage = strings.TrimSpace(stage)
	code = strings.TrimSpace(code)
	if stage == "" {
		stage = "(unknown)"
	}
	if code == "" {
		code = "(unknown)"
	}
	m.appErrors.WithLabelValues(stage, code).Inc()
}

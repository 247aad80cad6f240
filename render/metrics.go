package render

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the help menu collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec
	ConfigReloads  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpmenu",
			Name:      "renders_total",
			Help:      "Total number of help menu renders",
		}, []string{"view", "status"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "helpmenu",
			Name:      "render_duration_seconds",
			Help:      "Duration of browser renders in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
		}, []string{"view"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpmenu",
			Name:      "render_cache_total",
			Help:      "Rendered image cache lookups",
		}, []string{"result"}),
		ConfigReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpmenu",
			Name:      "config_reloads_total",
			Help:      "Settings file reloads",
		}, []string{"status"}),
	}
	reg.MustRegister(m.Renders, m.RenderDuration, m.CacheLookups, m.ConfigReloads)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) recordRender(view string, err error, took time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = KindOf(err).String()
	}
	m.Renders.WithLabelValues(view, status).Inc()
	if err == nil {
		m.RenderDuration.WithLabelValues(view).Observe(took.Seconds())
	}
}

func (m *Metrics) recordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) recordDiskHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("disk").Inc()
}

// RecordReload counts a settings reload.
func (m *Metrics) RecordReload(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ConfigReloads.WithLabelValues("error").Inc()
		return
	}
	m.ConfigReloads.WithLabelValues("ok").Inc()
}

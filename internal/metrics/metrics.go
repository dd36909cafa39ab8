package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the hub.
type Metrics struct {
	registry *prometheus.Registry

	// Plugin metrics
	PluginsLoadedTotal            *prometheus.CounterVec
	PluginsActive                 prometheus.Gauge
	PluginChecksumMismatchesTotal prometheus.Counter
	CommandInvocationsTotal       *prometheus.CounterVec

	// Plan metrics
	PlanStepsTotal   *prometheus.CounterVec
	PlanReviewsTotal *prometheus.CounterVec

	// Settings metrics
	SettingsMigrationsTotal prometheus.Counter

	// Gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		PluginsLoadedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugins_loaded_total",
				Help: "Total number of plugin load attempts by outcome",
			},
			[]string{"source", "status"},
		),
		PluginsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "plugins_active",
				Help: "Number of currently enabled plugins",
			},
		),
		PluginChecksumMismatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plugin_checksum_mismatches_total",
				Help: "Total number of manifests whose checksum drifted from the approved one",
			},
		),
		CommandInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plugin_command_invocations_total",
				Help: "Total number of plugin command invocations",
			},
			[]string{"plugin_id", "status"},
		),

		PlanStepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_steps_total",
				Help: "Total number of executed plan steps by outcome",
			},
			[]string{"status"},
		),
		PlanReviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_reviews_total",
				Help: "Total number of plan review decisions",
			},
			[]string{"decision"},
		),

		SettingsMigrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "settings_migrations_total",
				Help: "Total number of settings schema migrations applied",
			},
		),

		GatewayRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of gateway HTTP requests",
			},
			[]string{"path", "status"},
		),
		GatewayRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Duration of gateway HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}

	m.registerMetrics()
	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.PluginsLoadedTotal)
	m.registry.MustRegister(m.PluginsActive)
	m.registry.MustRegister(m.PluginChecksumMismatchesTotal)
	m.registry.MustRegister(m.CommandInvocationsTotal)

	m.registry.MustRegister(m.PlanStepsTotal)
	m.registry.MustRegister(m.PlanReviewsTotal)

	m.registry.MustRegister(m.SettingsMigrationsTotal)

	m.registry.MustRegister(m.GatewayRequestsTotal)
	m.registry.MustRegister(m.GatewayRequestDuration)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Package metrics is the edge agent's Prometheus instrumentation: a small
// registry-backed struct of named metrics passed by pointer to the
// components that update them, in place of the teacher's pkg/metrics
// category-manager registry and internal/metrics per-concern globals
// (github.com/prometheus/client_golang/prometheus/promauto). There is no
// central collector here to warrant that weight - one process, one
// registry, one namespace.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scada_edge"

// Metrics is the set of Prometheus collectors the agent updates as it
// runs. Every field is safe for concurrent use (Prometheus collectors
// always are) and nil-safe accessors are unnecessary: callers always get
// a fully populated Metrics from New.
type Metrics struct {
	registry *prometheus.Registry

	TagStatus            *prometheus.GaugeVec
	ForwardBufferDepth   prometheus.Gauge
	PublishTotal         *prometheus.CounterVec
	AutomationFiresTotal *prometheus.CounterVec
	PrinterJobsTotal     *prometheus.CounterVec
	HeartbeatsTotal      prometheus.Counter
	ConfigReloadTotal    *prometheus.CounterVec
	ConfigReloadVersion  prometheus.Gauge
	ActiveDevices        prometheus.Gauge
}

// New builds a Metrics bound to its own prometheus.Registry, so the agent
// never pollutes or depends on prometheus.DefaultRegisterer.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TagStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tag_status",
			Help:      "Last reported quality of a tag value (1 = good, 0 = bad).",
		}, []string{"tag_id"}),

		ForwardBufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forward_buffer_depth",
			Help:      "Number of events currently queued in the store-and-forward buffer.",
		}),

		PublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Outbound MQTT publish attempts by outcome.",
		}, []string{"outcome"}),

		AutomationFiresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "automation_fires_total",
			Help:      "Automation rule evaluations that fired an action, by rule id.",
		}, []string{"rule_id"}),

		PrinterJobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "printer_jobs_total",
			Help:      "Printer job outcomes by status.",
		}, []string{"status"}),

		HeartbeatsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_total",
			Help:      "Total number of AgentHeartbeat events published.",
		}),

		ConfigReloadTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reload_total",
			Help:      "Remote configuration reloads applied by outcome.",
		}, []string{"outcome"}),

		ConfigReloadVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "config_reload_version",
			Help:      "Monotonic counter of applied configuration reloads.",
		}),

		ActiveDevices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_devices",
			Help:      "Number of device actors currently running.",
		}),
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a metrics-only HTTP server on addr until ctx is cancelled,
// then shuts it down gracefully. Mirrors the listen/signal/shutdown shape
// the teacher's cmd/server/main.go uses for its own HTTP server, adapted
// to take a context instead of an OS signal channel since the agent's
// main already owns that signal handling.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

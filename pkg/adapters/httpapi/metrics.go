package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// Metrics holds the bridge's prometheus collectors on a private registry,
// so tests can run many servers without collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls       *prometheus.CounterVec
	chatDuration    *prometheus.HistogramVec
	consoleCommands prometheus.Counter
	connected       prometheus.Gauge
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "factorio_llm",
			Name:      "tool_calls_total",
			Help:      "Dispatched tool calls by tool name and outcome.",
		}, []string{"tool", "status"}),
		chatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factorio_llm",
			Name:      "model_turn_seconds",
			Help:      "Latency of one model turn.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"model"}),
		consoleCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "factorio_llm",
			Name:      "console_commands_total",
			Help:      "Commands sent over the game console link.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "factorio_llm",
			Name:      "console_connected",
			Help:      "Whether the console link is up (1) or down (0).",
		}),
	}
	m.registry.MustRegister(m.toolCalls, m.chatDuration, m.consoleCommands, m.connected)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that feed the model and tool collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnModelTurn: func(_ context.Context, ev *domain.ModelEvent) {
			m.chatDuration.WithLabelValues(ev.Model).Observe(float64(ev.ElapsedMS) / 1000)
		},
		OnToolReturn: func(_ context.Context, ev *domain.ToolEvent) {
			status := "ok"
			if ev.IsError {
				status = "error"
			}
			m.toolCalls.WithLabelValues(ev.Tool, status).Inc()
		},
	}
}

// ConsoleObserver feeds the console collectors. Wire it into the transport
// with rcon.WithObserver.
func (m *Metrics) ConsoleObserver() func(command string, elapsed time.Duration, err error) {
	return func(_ string, _ time.Duration, err error) {
		m.consoleCommands.Inc()
		if err != nil {
			m.connected.Set(0)
		} else {
			m.connected.Set(1)
		}
	}
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics holds Prometheus metrics for the chat gateway.
type BotMetrics struct {
	Commands         *prometheus.CounterVec
	Interactions     *prometheus.CounterVec
	RESTRetries      *prometheus.CounterVec
	HeartbeatLatency prometheus.Gauge
}

// NewBotMetrics creates and registers chat gateway metrics on the given registry.
func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Total number of commands handled, by command and result.",
		}, []string{"command", "result"}),
		Interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "interactions_total",
			Help:      "Total number of component interactions handled, by kind and result.",
		}, []string{"kind", "result"}),
		RESTRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "rest_retries_total",
			Help:      "Total number of retried chat API calls, by operation.",
		}, []string{"op"}),
		HeartbeatLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "heartbeat_latency_seconds",
			Help:      "Latest gateway heartbeat round trip in seconds.",
		}),
	}

	reg.MustRegister(m.Commands, m.Interactions, m.RESTRetries, m.HeartbeatLatency)
	return m
}

func (m *BotMetrics) CommandHandled(command, result string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, result).Inc()
}

func (m *BotMetrics) InteractionHandled(kind, result string) {
	if m == nil {
		return
	}
	m.Interactions.WithLabelValues(kind, result).Inc()
}

func (m *BotMetrics) RESTRetried(op string) {
	if m == nil {
		return
	}
	m.RESTRetries.WithLabelValues(op).Inc()
}

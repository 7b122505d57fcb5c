package metrics

import "github.com/prometheus/client_golang/prometheus"

// PollMetrics holds Prometheus metrics for the poll lifecycle. It satisfies
// the recorder interface the poll manager reports to.
type PollMetrics struct {
	Created       prometheus.Counter
	Concluded     *prometheus.CounterVec
	Votes         *prometheus.CounterVec
	StoreFailures *prometheus.CounterVec
	Active        prometheus.Gauge
}

// NewPollMetrics creates and registers poll metrics on the given registry.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	m := &PollMetrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "polls",
			Name:      "created_total",
			Help:      "Total number of polls created.",
		}),
		Concluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "polls",
			Name:      "concluded_total",
			Help:      "Total number of polls concluded, by reason.",
		}, []string{"reason"}),
		Votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "polls",
			Name:      "votes_total",
			Help:      "Total number of vote attempts, by result.",
		}, []string{"result"}),
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "polls",
			Name:      "store_write_failures_total",
			Help:      "Total number of failed poll store writes, by operation.",
		}, []string{"op"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "polls",
			Name:      "active",
			Help:      "Number of polls currently accepting votes.",
		}),
	}

	reg.MustRegister(m.Created, m.Concluded, m.Votes, m.StoreFailures, m.Active)
	return m
}

func (m *PollMetrics) PollCreated() {
	m.Created.Inc()
}

func (m *PollMetrics) PollConcluded(reason string) {
	m.Concluded.WithLabelValues(reason).Inc()
}

func (m *PollMetrics) VoteProcessed(result string) {
	m.Votes.WithLabelValues(result).Inc()
}

func (m *PollMetrics) StoreWriteFailed(op string) {
	m.StoreFailures.WithLabelValues(op).Inc()
}

func (m *PollMetrics) SetActivePolls(n int) {
	m.Active.Set(float64(n))
}

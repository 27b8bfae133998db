package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder with collectors registered on reg.
type Prometheus struct {
	txRetries     *prometheus.CounterVec
	votes         *prometheus.CounterVec
	generations   *prometheus.HistogramVec
	externalCalls *prometheus.HistogramVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the service collectors on reg (the default
// registerer when nil) under namespace ("trip_poll" when empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "trip_poll"
	}

	p := &Prometheus{
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "tx_retries_total",
			Help:      "Optimistic transaction retries caused by concurrent writers.",
		}, []string{"op"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "voting",
			Name:      "votes_total",
			Help:      "Vote attempts by outcome.",
		}, []string{"outcome"}),
		generations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "generate_duration_seconds",
			Help:      "Option generation latency by outcome.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		externalCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "call_duration_seconds",
			Help:      "Candidate source and travel time provider latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"source", "outcome"}),
	}

	for _, c := range []prometheus.Collector{p.txRetries, p.votes, p.generations, p.externalCalls} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) TxRetry(op string) {
	p.txRetries.WithLabelValues(op).Inc()
}

func (p *Prometheus) VoteCast(outcome string) {
	p.votes.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) Generation(outcome string, d time.Duration) {
	p.generations.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *Prometheus) ExternalCall(source, outcome string, d time.Duration) {
	p.externalCalls.WithLabelValues(source, outcome).Observe(d.Seconds())
}

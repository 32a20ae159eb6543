package reducer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts reduced events. A nil *Metrics records nothing.
type Metrics struct {
	events    *prometheus.CounterVec
	lastBlock prometheus.Gauge
}

// NewMetrics registers the reducer collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launchpad",
			Name:      "events_total",
			Help:      "Events processed by the reducer, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launchpad",
			Name:      "last_block",
			Help:      "Block number of the last reduced event.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.events, m.lastBlock} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(kind string, outcome Outcome, block uint64) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, string(outcome)).Inc()
	m.lastBlock.Set(float64(block))
}

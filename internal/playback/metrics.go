package playback

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds operational counters for coordinators. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	probes      *prometheus.CounterVec
	probeTime   prometheus.Histogram
	transitions *prometheus.CounterVec
	faults      *prometheus.CounterVec
	advances    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_probes_total",
			Help: "Media probes by outcome",
		}, []string{"result"}),
		probeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "showroom_probe_duration_seconds",
			Help:    "Media probe latency",
			Buckets: prometheus.DefBuckets,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_unit_transitions_total",
			Help: "Playback unit state transitions by target state",
		}, []string{"state"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_unit_faults_total",
			Help: "Playback unit faults by kind",
		}, []string{"kind"}),
		advances: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "showroom_advance_requests_total",
			Help: "Auto-advance requests sent to hosts",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.probes, m.probeTime, m.transitions, m.faults, m.advances)
	}
	return m
}

func (m *Metrics) observeProbe(res ProbeResult) {
	if m == nil {
		return
	}
	result := "unreachable"
	if res.Reachable {
		result = "reachable"
	}
	m.probes.WithLabelValues(result).Inc()
	m.probeTime.Observe(res.Latency.Seconds())
}

func (m *Metrics) observeTransition(s State, detail *ErrorDetail) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(s.String()).Inc()
	if s == Error && detail != nil {
		m.faults.WithLabelValues(string(detail.Kind)).Inc()
	}
}

func (m *Metrics) observeAdvance() {
	if m == nil {
		return
	}
	m.advances.Inc()
}

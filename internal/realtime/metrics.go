package realtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts bridge activity. A nil *Metrics records nothing.
type Metrics struct {
	events        *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	reloads       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetrics registers the bridge counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backroom",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Push events received by mounted bridges.",
		}, []string{"channel", "event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backroom",
			Subsystem: "realtime",
			Name:      "dropped_total",
			Help:      "Push events dropped because a reload was already in flight.",
		}, []string{"channel", "event"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backroom",
			Subsystem: "realtime",
			Name:      "reloads_total",
			Help:      "Page reloads triggered by push events, by result.",
		}, []string{"channel", "result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backroom",
			Subsystem: "realtime",
			Name:      "invalidations_total",
			Help:      "Query invalidations triggered by push events.",
		}, []string{"channel"}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.dropped, m.reloads, m.invalidations)
	}
	return m
}

func (m *Metrics) event(channel, event string) {
	if m != nil {
		m.events.WithLabelValues(channel, event).Inc()
	}
}

func (m *Metrics) drop(channel, event string) {
	if m != nil {
		m.dropped.WithLabelValues(channel, event).Inc()
	}
}

func (m *Metrics) reload(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) invalidate(channel string) {
	if m != nil {
		m.invalidations.WithLabelValues(channel).Inc()
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	prefix = "serverstatus_"

	labelTarget = "target"
	labelMethod = "method"
	labelResult = "result"
	labelState  = "state"
)

// Metrics holds the collectors fed by the target monitors.
type Metrics struct {
	targetUp      *prometheus.GaugeVec
	probeDuration *prometheus.HistogramVec
	probesTotal   *prometheus.CounterVec
	stateChanges  *prometheus.CounterVec
	certExpiry    *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		targetUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "target_up",
			Help: "Last reported state of the target (1 = up, 0 = down).",
		}, []string{labelTarget, labelMethod}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "probe_duration_seconds",
			Help:    "Duration of liveness probes.",
			Buckets: prometheus.DefBuckets,
		}, []string{labelTarget, labelMethod}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "probes_total",
			Help: "Number of probes run, by result.",
		}, []string{labelTarget, labelMethod, labelResult}),
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "state_changes_total",
			Help: "Number of reported state changes, by new state.",
		}, []string{labelTarget, labelState}),
		certExpiry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "tls_cert_expiry_seconds",
			Help: "The duration (in second) until the TLS certificate of an https target expires.",
		}, []string{labelTarget}),
	}

	err := register(reg,
		m.targetUp,
		m.probeDuration,
		m.probesTotal,
		m.stateChanges,
		m.certExpiry,
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register(r prometheus.Registerer, cs ...prometheus.Collector) error {
	for i, c := range cs {
		if err := r.Register(c); err != nil {
			for _, c := range cs[:i] {
				r.Unregister(c)
			}

			return err
		}
	}

	return nil
}

// ObserveProbe records one probe run.
func (m *Metrics) ObserveProbe(target, method string, alive bool, latency time.Duration, certExpiry time.Time) {
	result := "down"
	if alive {
		result = "up"
	}

	m.probeDuration.WithLabelValues(target, method).Observe(latency.Seconds())
	m.probesTotal.WithLabelValues(target, method, result).Inc()

	if !certExpiry.IsZero() {
		m.certExpiry.WithLabelValues(target).Set(time.Until(certExpiry).Seconds())
	}
}

// ObserveChange records a reported state change.
func (m *Metrics) ObserveChange(target, method string, up bool) {
	value, state := 0.0, "down"
	if up {
		value, state = 1, "up"
	}

	m.targetUp.WithLabelValues(target, method).Set(value)
	m.stateChanges.WithLabelValues(target, state).Inc()
}

// Forget drops every series of target.
func (m *Metrics) Forget(target string) {
	labels := prometheus.Labels{labelTarget: target}

	m.targetUp.DeletePartialMatch(labels)
	m.probeDuration.DeletePartialMatch(labels)
	m.probesTotal.DeletePartialMatch(labels)
	m.stateChanges.DeletePartialMatch(labels)
	m.certExpiry.DeletePartialMatch(labels)
}

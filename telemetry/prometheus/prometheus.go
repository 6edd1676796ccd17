// Package prometheus exports state machine activity as Prometheus metrics.
//
// Exported metrics:
//   - statemech_transitions_total{machine,kind}
//   - statemech_transitions_not_found_total{machine}
//   - statemech_events_ignored_total{machine}
//   - statemech_faults_total{machine,component}
//   - statemech_transition_duration_seconds{machine,kind}
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atlekbai/statemech"
)

const namespace = "statemech"

// Metrics is a statemech.Observer updating Prometheus collectors. One Metrics
// may observe several machines.
type Metrics struct {
	// finished transitions
	Transitions *prometheus.CounterVec
	// strict and try fires no transition accepted
	NotFound *prometheus.CounterVec
	// events swallowed by an ignore rule
	Ignored *prometheus.CounterVec
	// handler failures that latched a machine
	Faults *prometheus.CounterVec
	// time from TransitionBegin to TransitionFinished
	Duration *prometheus.HistogramVec

	mx      sync.Mutex
	started map[*statemech.StateMachine]time.Time
	now     func() time.Time
}

var _ statemech.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Number of completed transitions",
		}, []string{"machine", "kind"}),
		NotFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_not_found_total",
			Help:      "Number of fired events no transition accepted",
		}, []string{"machine"}),
		Ignored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ignored_total",
			Help:      "Number of fired events ignored by the current state",
		}, []string{"machine"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Number of handler failures that faulted a machine",
		}, []string{"machine", "component"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Duration of completed transitions",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"machine", "kind"}),

		started: make(map[*statemech.StateMachine]time.Time),
		now:     time.Now,
	}

	if reg != nil {
		reg.MustRegister(m.Transitions, m.NotFound, m.Ignored, m.Faults, m.Duration)
	}
	return m
}

// Bind adds m as an observer of sm.
func (m *Metrics) Bind(sm *statemech.StateMachine) *Metrics {
	sm.AddObserver(m)
	return m
}

func (m *Metrics) TransitionBegin(n statemech.TransitionNotification) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.started[n.Machine.Root()] = m.now()
}

func (m *Metrics) TransitionFinished(n statemech.TransitionNotification) {
	kind := n.Kind.String()
	m.Transitions.WithLabelValues(n.Machine.Name(), kind).Inc()

	m.mx.Lock()
	start, ok := m.started[n.Machine.Root()]
	delete(m.started, n.Machine.Root())
	m.mx.Unlock()

	if ok {
		m.Duration.WithLabelValues(n.Machine.Name(), kind).Observe(m.now().Sub(start).Seconds())
	}
}

func (m *Metrics) TransitionNotFound(n statemech.NotFoundNotification) {
	m.NotFound.WithLabelValues(n.Machine.Name()).Inc()
}

func (m *Metrics) EventIgnored(n statemech.NotFoundNotification) {
	m.Ignored.WithLabelValues(n.Machine.Name()).Inc()
}

func (m *Metrics) Faulted(n statemech.FaultNotification) {
	machine := n.Fault.To.Machine()
	m.Faults.WithLabelValues(machine.Name(), n.Fault.Component.String()).Inc()

	m.mx.Lock()
	defer m.mx.Unlock()
	delete(m.started, machine.Root())
}

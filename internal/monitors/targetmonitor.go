package monitors

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aireone.xyz/serverstatus/internal/metrics"
	"aireone.xyz/serverstatus/internal/monitorconfig"
	"aireone.xyz/serverstatus/internal/probes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrStopped        = errors.New("monitor is stopped")
	ErrAlreadyStarted = errors.New("monitor is already started")
)

// TargetMonitor probes one target on a fixed interval and notifies its
// listener when the target goes up or down.
type TargetMonitor struct {
	target   monitorconfig.EffectiveConfig
	prober   Prober
	listener Listener
	metrics  *metrics.Metrics

	logger *zap.Logger

	// ctx is cancelled by Stop so an in-flight probe gives up early.
	ctx    context.Context
	cancel context.CancelFunc
	busy   atomic.Bool

	mu      sync.Mutex
	state   State
	stopped bool
	sched   Scheduler
	jobID   uuid.UUID
}

type Option func(*TargetMonitor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *TargetMonitor) {
		t.metrics = m
	}
}

func NewTargetMonitor(target monitorconfig.EffectiveConfig, prober Prober, listener Listener, logger *zap.Logger, opts ...Option) *TargetMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	m := &TargetMonitor{
		target:   target,
		prober:   prober,
		listener: listener,
		logger:   logger.With(zap.String("target", target.Name)),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ID implements scheduler.Job.
func (m *TargetMonitor) ID() string {
	return m.target.Name
}

func (m *TargetMonitor) Target() monitorconfig.EffectiveConfig {
	return m.target
}

// Start schedules the recurring probe. The first probe fires after settle.
func (m *TargetMonitor) Start(s Scheduler, settle time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	if m.sched != nil {
		return ErrAlreadyStarted
	}

	id, err := s.AddJob(m, m.target.Interval, settle)
	if err != nil {
		return errors.Wrapf(err, "error scheduling monitor %s", m.target.Name)
	}
	m.sched, m.jobID = s, id

	m.logger.Info("Started monitoring",
		zap.String("method", string(m.target.Method)),
		zap.String("address", m.target.Address),
		zap.Duration("interval", m.target.Interval),
		zap.Duration("timeout", m.target.Timeout),
	)

	return nil
}

// Stop cancels the schedule and any probe in flight. No notification is
// emitted once Stop has returned. Stop is idempotent.
func (m *TargetMonitor) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.cancel()
	sched, id := m.sched, m.jobID
	m.mu.Unlock()

	m.logger.Info("Stopped monitoring")

	if sched == nil {
		return nil
	}
	if err := sched.RemoveJob(id); err != nil {
		return errors.Wrapf(err, "error unscheduling monitor %s", m.target.Name)
	}

	return nil
}

// Run implements scheduler.Job.
func (m *TargetMonitor) Run(ctx context.Context) error {
	m.Tick(ctx)
	return nil
}

// Tick runs one probe and reports a state change if there is one. A tick
// arriving while another is still probing is dropped.
func (m *TargetMonitor) Tick(parent context.Context) {
	if !m.busy.CompareAndSwap(false, true) {
		m.logger.Debug("Previous probe still running, skipping tick")
		return
	}
	defer m.busy.Store(false)

	if m.isStopped() {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer context.AfterFunc(m.ctx, cancel)()

	traceID, _ := uuid.NewV7()
	logger := m.logger.With(zap.Stringer("trace_id", traceID))

	res := m.probe(ctx)
	if res.Err != nil {
		logger.Debug("Probe failed", zap.Duration("latency", res.Latency), zap.Error(res.Err))
	} else {
		logger.Debug("Probe finished",
			zap.Bool("alive", res.Alive),
			zap.Duration("latency", res.Latency),
			zap.Int("status_code", res.StatusCode),
		)
	}

	m.pushToPrometheus(res)
	m.report(stateOf(res.Alive), logger)
}

func (m *TargetMonitor) probe(ctx context.Context) (res probes.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = probes.Result{Err: errors.Errorf("probe panicked: %v", r)}
		}
	}()

	return m.prober.Probe(ctx, m.target)
}

func (m *TargetMonitor) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stopped
}

// report stores next and notifies the listener when it differs from the last
// reported state. Unknown always differs.
func (m *TargetMonitor) report(next State, logger *zap.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || next == m.state {
		return
	}
	m.state = next

	logger.Info("Status changed", zap.Stringer("status", next))

	if m.metrics != nil {
		m.metrics.ObserveChange(m.target.Name, string(m.target.Method), next == Up)
	}
	if m.listener != nil {
		m.listener.StateChanged(m.target.Name, next == Up)
	}
}

// pushToPrometheus holds the lock so a concurrent Stop, and the Forget that
// follows it, cannot be overtaken by a late observation.
func (m *TargetMonitor) pushToPrometheus(res probes.Result) {
	if m.metrics == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	m.metrics.ObserveProbe(m.target.Name, string(m.target.Method), res.Alive, res.Latency, res.CertExpiry)
}

package registry

import (
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"aireone.xyz/serverstatus/internal/metrics"
	"aireone.xyz/serverstatus/internal/monitorconfig"
	"aireone.xyz/serverstatus/internal/monitors"
	"aireone.xyz/serverstatus/internal/probes"
	"aireone.xyz/serverstatus/internal/scheduler"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultSettleDelay postpones the first probe of a new monitor.
const DefaultSettleDelay = 2 * time.Second

// Scheduler is the part of scheduler.Scheduler the registry drives.
type Scheduler interface {
	monitors.Scheduler
	Shutdown() error
}

// Registry owns the monitors, one per target name.
type Registry struct {
	mu       sync.Mutex
	monitors map[string]*monitors.TargetMonitor
	defaults monitorconfig.Defaults
	closed   bool

	prober    monitors.Prober
	listener  monitors.Listener
	scheduler Scheduler
	metrics   *metrics.Metrics
	settle    time.Duration

	logger *zap.Logger
}

type Option func(*Registry)

func WithProber(p monitors.Prober) Option {
	return func(r *Registry) {
		r.prober = p
	}
}

func WithScheduler(s Scheduler) Option {
	return func(r *Registry) {
		r.scheduler = s
	}
}

func WithSettleDelay(d time.Duration) Option {
	return func(r *Registry) {
		r.settle = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func WithDefaults(d monitorconfig.Defaults) Option {
	return func(r *Registry) {
		r.defaults = d
	}
}

// New returns a registry notifying listener. Without WithScheduler a gocron
// backed scheduler is created and started, and without WithProber the
// default probes.Prober is used.
func New(listener monitors.Listener, logger *zap.Logger, opts ...Option) (*Registry, error) {
	r := &Registry{
		monitors: make(map[string]*monitors.TargetMonitor),
		listener: listener,
		settle:   DefaultSettleDelay,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.defaults.Validate(); err != nil {
		return nil, err
	}

	if r.prober == nil {
		r.prober = probes.New(logger)
	}

	if r.scheduler == nil {
		s, err := scheduler.NewScheduler(logger)
		if err != nil {
			return nil, errors.Wrap(err, "error creating scheduler")
		}
		s.Start()
		r.scheduler = s
	}

	return r, nil
}

// Register starts monitoring cfg. A monitor already registered under the same
// name is stopped and replaced. Nothing changes when cfg is invalid.
func (r *Registry) Register(cfg monitorconfig.TargetConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.register(cfg)
}

func (r *Registry) register(cfg monitorconfig.TargetConfig) error {
	if r.closed {
		return errors.Wrapf(monitors.ErrStopped, "registry is shut down, cannot register %q", cfg.Name)
	}

	target, err := resolve(cfg, r.defaults)
	if err != nil {
		return err
	}

	if err := r.unregister(target.Name); err != nil {
		r.logger.Warn("Error stopping replaced monitor", zap.String("target", target.Name), zap.Error(err))
	}

	var opts []monitors.Option
	if r.metrics != nil {
		opts = append(opts, monitors.WithMetrics(r.metrics))
	}
	m := monitors.NewTargetMonitor(target, r.prober, r.listener, r.logger, opts...)

	if err := m.Start(r.scheduler, r.settle); err != nil {
		return errors.Wrapf(err, "error starting monitor %q", target.Name)
	}
	r.monitors[target.Name] = m

	return nil
}

// resolve applies the fallback chain and checks that the address can be
// probed with the resolved method.
func resolve(cfg monitorconfig.TargetConfig, d monitorconfig.Defaults) (monitorconfig.EffectiveConfig, error) {
	target, err := monitorconfig.Resolve(cfg, d)
	if err != nil {
		return monitorconfig.EffectiveConfig{}, err
	}

	if target.Method == monitorconfig.MethodHTTP {
		if _, err := probes.ParseHTTPAddress(target.Address); err != nil {
			return monitorconfig.EffectiveConfig{}, errors.Wrapf(monitorconfig.ErrInvalidConfig, "target %q: %v", target.Name, err)
		}
	}

	return target, nil
}

// Unregister stops the monitor registered under name. Unknown names are ignored.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.unregister(strings.TrimSpace(name))
}

func (r *Registry) unregister(name string) error {
	m, ok := r.monitors[name]
	if !ok {
		return nil
	}
	delete(r.monitors, name)

	err := m.Stop()
	r.forget(name)

	return err
}

// forget drops per-target state kept outside the monitor.
func (r *Registry) forget(name string) {
	if f, ok := r.listener.(monitors.Forgetter); ok {
		f.Forget(name)
	}
	if r.metrics != nil {
		r.metrics.Forget(name)
	}
}

// Targets returns the effective configuration of every monitor, sorted by name.
func (r *Registry) Targets() []monitorconfig.EffectiveConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets := make([]monitorconfig.EffectiveConfig, 0, len(r.monitors))
	for _, m := range r.monitors {
		targets = append(targets, m.Target())
	}
	slices.SortFunc(targets, func(a, b monitorconfig.EffectiveConfig) int {
		return strings.Compare(a.Name, b.Name)
	})

	return targets
}

// Target returns the effective configuration of the monitor registered under name.
func (r *Registry) Target(name string) (monitorconfig.EffectiveConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.monitors[name]
	if !ok {
		return monitorconfig.EffectiveConfig{}, false
	}
	return m.Target(), true
}

// SetDefaults replaces the platform defaults used by later registrations.
// Running monitors keep the configuration they were started with.
func (r *Registry) SetDefaults(d monitorconfig.Defaults) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = d

	return nil
}

// Reconcile makes the registry match configs: monitors missing from configs
// are stopped, new or changed targets are (re)started and unchanged ones keep
// running with their state. Invalid targets are skipped and reported in the
// returned error.
func (r *Registry) Reconcile(d monitorconfig.Defaults, configs []monitorconfig.TargetConfig) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaults = d

	var errs error
	wanted := make(map[string]monitorconfig.EffectiveConfig, len(configs))
	for _, cfg := range configs {
		target, err := resolve(cfg, d)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, dup := wanted[target.Name]; dup {
			errs = multierr.Append(errs, errors.Wrapf(monitorconfig.ErrInvalidConfig, "duplicate target %q", target.Name))
			continue
		}
		wanted[target.Name] = target
	}

	for name := range r.monitors {
		if _, ok := wanted[name]; !ok {
			r.logger.Info("Target removed from configuration", zap.String("target", name))
			errs = multierr.Append(errs, r.unregister(name))
		}
	}

	for _, cfg := range configs {
		target, ok := wanted[strings.TrimSpace(cfg.Name)]
		if !ok {
			continue
		}
		if m, running := r.monitors[target.Name]; running && m.Target() == target {
			continue
		}
		errs = multierr.Append(errs, r.register(cfg))
	}

	return errs
}

// Shutdown stops every monitor and then the scheduler. The registry cannot be
// reused afterwards.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs error
	for name := range r.monitors {
		errs = multierr.Append(errs, r.unregister(name))
	}

	if err := r.scheduler.Shutdown(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "error shutting down scheduler"))
	}

	if c, ok := r.prober.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "error closing prober"))
		}
	}

	return errs
}

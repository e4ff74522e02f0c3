package probes

import (
	"context"
	"io"
	"os"
	"time"

	"aireone.xyz/serverstatus/internal/monitorconfig"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrUnsupportedMethod = errors.New("unsupported probe method")

// Result is the outcome of a single liveness check. Only Alive drives the
// monitor; the other fields are kept for logs and metrics.
type Result struct {
	Alive      bool
	Latency    time.Duration
	StatusCode int
	CertExpiry time.Time
	Err        error
}

// Strategy checks a target with one transport.
type Strategy interface {
	Probe(ctx context.Context, target monitorconfig.EffectiveConfig) Result
}

// Prober picks the strategy matching the target method. It never panics and
// never returns an error: every failure is a dead Result.
type Prober struct {
	strategies map[monitorconfig.Method]Strategy
	sem        *semaphore.Weighted

	logger *zap.Logger
}

type Option func(*Prober)

// WithStrategy replaces the strategy used for method m.
func WithStrategy(m monitorconfig.Method, s Strategy) Option {
	return func(p *Prober) {
		p.strategies[m] = s
	}
}

// WithMaxConcurrent bounds the number of probes running at the same time.
// Waiting for a slot counts against the probe timeout.
func WithMaxConcurrent(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithPrivilegedPing makes ICMP probes use raw sockets instead of unprivileged
// datagram sockets. Raw sockets are the default when running as root.
func WithPrivilegedPing(privileged bool) Option {
	return func(p *Prober) {
		p.strategies[monitorconfig.MethodPing] = NewPingProber(p.logger, privileged)
	}
}

func New(logger *zap.Logger, opts ...Option) *Prober {
	p := &Prober{
		strategies: map[monitorconfig.Method]Strategy{
			monitorconfig.MethodPing:      NewPingProber(logger, os.Geteuid() == 0),
			monitorconfig.MethodHTTP:      NewHTTPProber(logger),
			monitorconfig.MethodContainer: NewContainerProber(logger),
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Prober) Probe(ctx context.Context, target monitorconfig.EffectiveConfig) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: errors.Errorf("probe panicked: %v", r)}
		}
	}()

	s, ok := p.strategies[target.Method]
	if !ok {
		return Result{Err: errors.Wrapf(ErrUnsupportedMethod, "method %q", target.Method)}
	}

	ctx, cancel := context.WithTimeout(ctx, target.Timeout)
	defer cancel()

	start := time.Now()

	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return Result{Latency: time.Since(start), Err: errors.Wrap(err, "error waiting for a probe slot")}
		}
		defer p.sem.Release(1)
	}

	res = s.Probe(ctx, target)
	if res.Latency == 0 {
		res.Latency = time.Since(start)
	}

	return res
}

// Close releases resources held by the strategies.
func (p *Prober) Close() error {
	var err error
	for _, s := range p.strategies {
		if c, ok := s.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

package probes

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"aireone.xyz/serverstatus/internal/monitorconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type strategyFunc func(ctx context.Context, target monitorconfig.EffectiveConfig) Result

func (f strategyFunc) Probe(ctx context.Context, target monitorconfig.EffectiveConfig) Result {
	return f(ctx, target)
}

func TestProber_DispatchesByMethod(t *testing.T) {
	var pingCalls, httpCalls int
	p := New(zap.NewNop(),
		WithStrategy(monitorconfig.MethodPing, strategyFunc(func(_ context.Context, _ monitorconfig.EffectiveConfig) Result {
			pingCalls++
			return Result{Alive: true}
		})),
		WithStrategy(monitorconfig.MethodHTTP, strategyFunc(func(_ context.Context, _ monitorconfig.EffectiveConfig) Result {
			httpCalls++
			return Result{Alive: false, StatusCode: 503}
		})),
	)

	ping := p.Probe(t.Context(), monitorconfig.EffectiveConfig{Method: monitorconfig.MethodPing, Timeout: time.Second})
	web := p.Probe(t.Context(), monitorconfig.EffectiveConfig{Method: monitorconfig.MethodHTTP, Timeout: time.Second})

	if !ping.Alive || pingCalls != 1 {
		t.Errorf("Expected ping strategy to run once and report alive, got %+v (%d calls)", ping, pingCalls)
	}
	if web.Alive || httpCalls != 1 || web.StatusCode != 503 {
		t.Errorf("Expected http strategy to run once and report dead, got %+v (%d calls)", web, httpCalls)
	}
	if ping.Latency == 0 {
		t.Error("Expected latency to be filled in")
	}
}

func TestProber_UnsupportedMethod(t *testing.T) {
	p := New(zap.NewNop())

	res := p.Probe(t.Context(), monitorconfig.EffectiveConfig{Method: "carrier-pigeon", Timeout: time.Second})
	if res.Alive || !errors.Is(res.Err, ErrUnsupportedMethod) {
		t.Errorf("Expected dead result with ErrUnsupportedMethod, got %+v", res)
	}
}

func TestProber_RecoversPanics(t *testing.T) {
	p := New(zap.NewNop(),
		WithStrategy(monitorconfig.MethodPing, strategyFunc(func(_ context.Context, _ monitorconfig.EffectiveConfig) Result {
			panic("boom")
		})),
	)

	res := p.Probe(t.Context(), monitorconfig.EffectiveConfig{Method: monitorconfig.MethodPing, Timeout: time.Second})
	if res.Alive {
		t.Error("Expected panicking probe to be dead")
	}
	if res.Err == nil {
		t.Error("Expected panic to be reported as error")
	}
}

func TestProber_AppliesTimeout(t *testing.T) {
	p := New(zap.NewNop(),
		WithStrategy(monitorconfig.MethodPing, strategyFunc(func(ctx context.Context, _ monitorconfig.EffectiveConfig) Result {
			<-ctx.Done()
			return Result{Err: ctx.Err()}
		})),
	)

	const timeout = 50 * time.Millisecond

	start := time.Now()
	res := p.Probe(t.Context(), monitorconfig.EffectiveConfig{Method: monitorconfig.MethodPing, Timeout: timeout})
	elapsed := time.Since(start)

	if res.Alive {
		t.Error("Expected timed out probe to be dead")
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", res.Err)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Errorf("Expected probe to stop shortly after %v, took %v", timeout, elapsed)
	}
}

func TestProber_MaxConcurrent(t *testing.T) {
	var running, peak atomic.Int32
	release := make(chan struct{})

	p := New(zap.NewNop(),
		WithMaxConcurrent(1),
		WithStrategy(monitorconfig.MethodPing, strategyFunc(func(ctx context.Context, _ monitorconfig.EffectiveConfig) Result {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			select {
			case <-release:
			case <-ctx.Done():
			}
			return Result{Alive: true}
		})),
	)

	target := monitorconfig.EffectiveConfig{Method: monitorconfig.MethodPing, Timeout: 2 * time.Second}

	done := make(chan Result, 2)
	for range 2 {
		go func() { done <- p.Probe(t.Context(), target) }()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)

	for range 2 {
		if res := <-done; !res.Alive {
			t.Errorf("Expected both probes to succeed, got %+v", res)
		}
	}
	if peak.Load() != 1 {
		t.Errorf("Expected at most 1 concurrent probe, saw %d", peak.Load())
	}
}

type closingStrategy struct {
	strategyFunc
	closed bool
}

func (c *closingStrategy) Close() error {
	c.closed = true
	return nil
}

var _ io.Closer = (*closingStrategy)(nil)

func TestProber_Close(t *testing.T) {
	s := &closingStrategy{strategyFunc: func(_ context.Context, _ monitorconfig.EffectiveConfig) Result { return Result{} }}
	p := New(zap.NewNop(), WithStrategy(monitorconfig.MethodContainer, s))

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.closed {
		t.Error("Expected strategy to be closed")
	}
}

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingJob struct {
	id       string
	runs     atomic.Int32
	running  atomic.Int32
	overlaps atomic.Int32
	block    time.Duration
}

func (c *countingJob) ID() string {
	return c.id
}

func (c *countingJob) Run(_ context.Context) error {
	if c.running.Add(1) > 1 {
		c.overlaps.Add(1)
	}
	defer c.running.Add(-1)

	c.runs.Add(1)
	time.Sleep(c.block)
	return nil
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()

	s, err := NewScheduler(zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	s.Start()
	t.Cleanup(func() {
		if err := s.Shutdown(); err != nil {
			t.Logf("Error shutting down scheduler: %v", err)
		}
	})

	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestScheduler_AddJob_RunsImmediatelyAndRepeats(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{id: "db1"}

	if _, err := s.AddJob(job, 20*time.Millisecond, 0); err != nil {
		t.Fatalf("AddJob() failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return job.runs.Load() >= 3 })
}

func TestScheduler_AddJob_StartDelay(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{id: "db1"}

	if _, err := s.AddJob(job, 20*time.Millisecond, 300*time.Millisecond); err != nil {
		t.Fatalf("AddJob() failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := job.runs.Load(); n != 0 {
		t.Fatalf("Expected no run before the start delay, got %d", n)
	}

	waitFor(t, 2*time.Second, func() bool { return job.runs.Load() >= 1 })
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{id: "db1"}

	id, err := s.AddJob(job, 20*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("AddJob() failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return job.runs.Load() >= 1 })

	if err := s.RemoveJob(id); err != nil {
		t.Fatalf("RemoveJob() failed: %v", err)
	}

	// Let a run that was already dispatched finish.
	time.Sleep(50 * time.Millisecond)
	after := job.runs.Load()
	time.Sleep(150 * time.Millisecond)

	if n := job.runs.Load(); n != after {
		t.Errorf("Expected no runs after RemoveJob, got %d more", n-after)
	}
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := newTestScheduler(t)
	job := &countingJob{id: "slow", block: 80 * time.Millisecond}

	if _, err := s.AddJob(job, 10*time.Millisecond, 0); err != nil {
		t.Fatalf("AddJob() failed: %v", err)
	}

	time.Sleep(400 * time.Millisecond)

	if n := job.overlaps.Load(); n != 0 {
		t.Errorf("Expected runs never to overlap, saw %d overlaps", n)
	}
	if job.runs.Load() == 0 {
		t.Error("Expected the job to run")
	}
}

func TestScheduler_ShutdownCancelsContext(t *testing.T) {
	s, err := NewScheduler(zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	s.Start()

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	select {
	case <-s.ctx.Done():
	default:
		t.Error("Expected scheduler context to be cancelled")
	}
}

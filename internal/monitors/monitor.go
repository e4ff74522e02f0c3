package monitors

import (
	"context"
	"time"

	"aireone.xyz/serverstatus/internal/monitorconfig"
	"aireone.xyz/serverstatus/internal/probes"
	"aireone.xyz/serverstatus/internal/scheduler"
	"github.com/google/uuid"
)

// Prober runs one liveness check. Implementations must honour ctx cancellation.
type Prober interface {
	Probe(ctx context.Context, target monitorconfig.EffectiveConfig) probes.Result
}

// Scheduler runs jobs at a fixed rate.
type Scheduler interface {
	AddJob(j scheduler.Job, interval, startAfter time.Duration) (uuid.UUID, error)
	RemoveJob(id uuid.UUID) error
}

// Listener receives state changes. It is called synchronously from the
// monitor and must not call back into the monitor or its registry.
type Listener interface {
	StateChanged(name string, up bool)
}

// Forgetter is implemented by listeners that keep per-target state.
type Forgetter interface {
	Forget(name string)
}

type ListenerFunc func(name string, up bool)

func (f ListenerFunc) StateChanged(name string, up bool) {
	f(name, up)
}

// Listeners fans notifications out to several listeners.
type Listeners []Listener

func (l Listeners) StateChanged(name string, up bool) {
	for _, listener := range l {
		listener.StateChanged(name, up)
	}
}

func (l Listeners) Forget(name string) {
	for _, listener := range l {
		if f, ok := listener.(Forgetter); ok {
			f.Forget(name)
		}
	}
}

package scheduler

import (
	"context"
	"time"

	"aireone.xyz/serverstatus/internal/logging"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Job is a unit of recurring work.
type Job interface {
	ID() string
	Run(context.Context) error
}

type Scheduler struct {
	scheduler gocron.Scheduler

	// ctx is handed to every run and cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLogger(logging.NewGocronLogger(logger)))
	if err != nil {
		return nil, errors.Wrap(err, "error creating scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		scheduler: s,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}, nil
}

// AddJob runs j every interval, the first time after startAfter (immediately
// when startAfter is not positive). A run still in progress when the next one
// is due causes that next run to be skipped.
func (s *Scheduler) AddJob(j Job, interval, startAfter time.Duration) (uuid.UUID, error) {
	startAt := gocron.WithStartImmediately()
	if startAfter > 0 {
		startAt = gocron.WithStartDateTime(time.Now().Add(startAfter))
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.logger.Debug("Running job", zap.String("job", j.ID()))
			if err := j.Run(s.ctx); err != nil {
				s.logger.Error("Error running job", zap.String("job", j.ID()), zap.Error(err))
			}
		}),
		gocron.WithName(j.ID()),
		gocron.WithStartAt(startAt),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "error creating job for %s", j.ID())
	}

	s.logger.Info("Job started",
		zap.String("job", j.ID()),
		zap.Stringer("id", job.ID()),
		zap.Duration("interval", interval),
	)

	return job.ID(), nil
}

// RemoveJob stops future runs of the job. A run in progress is not interrupted.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	if err := s.scheduler.RemoveJob(id); err != nil {
		return errors.Wrapf(err, "error removing job %s", id)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Shutdown() error {
	s.cancel()

	if err := s.scheduler.Shutdown(); err != nil {
		return errors.Wrap(err, "error shutting down scheduler")
	}

	return nil
}

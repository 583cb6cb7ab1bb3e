package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"rentavail/pkg/logger"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// Service wraps a gocron scheduler running in UTC.
type Service struct {
	scheduler gocron.Scheduler
	log       *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	stopErr   error
}

type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock drives the scheduler from clock instead of wall time.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func New(log *logger.Logger, opts ...Option) (*Service, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	schedOpts := []gocron.SchedulerOption{
		gocron.WithLocation(time.UTC),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error("Scheduler job panicked",
						"job_id", jobID.String(),
						"job_name", jobName,
						"panic", recoverData,
					)
				}),
			),
		),
	}
	if o.clock != nil {
		schedOpts = append(schedOpts, gocron.WithClock(o.clock))
	}

	sched, err := gocron.NewScheduler(schedOpts...)
	if err != nil {
		return nil, err
	}
	log.Info("Scheduler initialized")
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{scheduler: sched, log: log, ctx: ctx, cancel: cancel}, nil
}

func (s *Service) Start() {
	s.log.Info("Scheduler starting")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs. Safe to call more
// than once.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		s.log.Info("Scheduler stopping")
		s.cancel()
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers task on a five-field cron expression. The task gets a
// context that is cancelled when the scheduler stops.
func (s *Service) AddJob(name, cronExpr string, task func(ctx context.Context) error) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	jobLog := s.log.With("job_name", name, "cron", cronExpr)
	jobLog.Info("Registering scheduler job")

	wrapped := func() {
		start := time.Now()
		jobLog.Debug("Scheduler job started")
		if err := task(s.ctx); err != nil {
			jobLog.Error("Scheduler job failed", "error", err, "duration", time.Since(start))
			return
		}
		jobLog.Info("Scheduler job completed", "duration", time.Since(start))
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapped),
		gocron.WithName(name),
	)
	if err != nil {
		jobLog.Error("Failed to register scheduler job", "error", err)
		return nil, err
	}
	return job, nil
}

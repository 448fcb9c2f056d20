package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/metrics"
)

const defaultJobTimeout = 2 * time.Minute

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrNilTask        = errors.New("job task is required")
)

// Task is a scheduled unit of work. The context carries a job logger and a
// timeout.
type Task func(ctx context.Context) error

// Service wraps a gocron scheduler owned by the server process.
type Service struct {
	scheduler  gocron.Scheduler
	metrics    *metrics.Recorder
	jobTimeout time.Duration
	stopOnce   sync.Once
	stopErr    error
}

// New creates a scheduler. Extra gocron options (such as a fake clock in
// tests) are applied after the defaults.
func New(recorder *metrics.Recorder, opts ...gocron.SchedulerOption) (*Service, error) {
	options := append([]gocron.SchedulerOption{
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
					recorder.JobRun(jobName, metrics.ResultFailure)
				}),
			),
		),
	}, opts...)

	sched, err := gocron.NewScheduler(options...)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Scheduler initialized")
	return &Service{scheduler: sched, metrics: recorder, jobTimeout: defaultJobTimeout}, nil
}

// Start begins running scheduled jobs.
func (s *Service) Start() {
	if s == nil {
		log.Error().Msg("Scheduler start requested before initialization")
		return
	}
	log.Info().Int("jobs", len(s.scheduler.Jobs())).Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers a cron-based job. Runs of the same job never overlap.
func (s *Service) AddJob(name, cronExpr string, task Task) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	if task == nil {
		return nil, ErrNilTask
	}
	jobLogger := log.With().Str("component", "scheduler").Str("job_name", name).Str("cron", cronExpr).Logger()
	jobLogger.Info().Msg("Registering scheduler job")

	wrappedTask := func() {
		ctx, cancel := context.WithTimeout(jobLogger.WithContext(context.Background()), s.jobTimeout)
		defer cancel()

		start := time.Now()
		jobLogger.Debug().Msg("Scheduler job started")
		if err := task(ctx); err != nil {
			jobLogger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduler job failed")
			s.metrics.JobRun(name, metrics.ResultFailure)
			return
		}
		s.metrics.JobRun(name, metrics.ResultSuccess)
		jobLogger.Debug().Dur("duration", time.Since(start)).Msg("Scheduler job completed")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrappedTask),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}

// Jobs lists the registered jobs.
func (s *Service) Jobs() []gocron.Job {
	if s == nil {
		return nil
	}
	return s.scheduler.Jobs()
}

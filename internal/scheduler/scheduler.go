// Package scheduler drives the pipeline cadences. All jobs run on UTC
// cron expressions; a job still running when its next tick arrives is
// skipped rather than stacked.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// defaultJobTimeout bounds a single job invocation. Individual jobs
// can be registered with a tighter bound.
const defaultJobTimeout = 20 * time.Minute

// Job is a named unit of scheduled work.
type Job struct {
	// Name identifies the job in logs and the error log.
	Name string

	// Spec is a robfig/cron expression or @every descriptor.
	Spec string

	// Immediate runs the job once at startup, before the first tick.
	Immediate bool

	// Timeout overrides defaultJobTimeout when positive.
	Timeout time.Duration

	// Run does the work.
	Run func(ctx context.Context) error
}

// Metrics receives per-job execution telemetry. Satisfied by
// worker.JobMetrics; may be nil.
type Metrics interface {
	RecordJobRun(job, status string)
	RecordJobDuration(job string, d time.Duration)
	RecordJobLastSuccess(job string)
}

// Scheduler wraps robfig/cron with logging, panic recovery and
// overlap suppression.
type Scheduler struct {
	cron    *cron.Cron
	runs    repository.RunRepository
	metrics Metrics
	logger  *slog.Logger
	jobs    []Job
}

// New creates a UTC scheduler. Job failures are recorded through runs
// so the feed-failure alert window sees scheduler-level errors too.
func New(runs repository.RunRepository, metrics Metrics, logger *slog.Logger) *Scheduler {
	cronLogger := &slogCronLogger{logger: logger.With(slog.String("component", "cron"))}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(
				cron.SkipIfStillRunning(cronLogger),
				cron.Recover(cronLogger),
			),
		),
		runs:    runs,
		metrics: metrics,
		logger:  logger,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("Register: job needs a name and a run function")
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.invoke(job) }); err != nil {
		return fmt.Errorf("Register: %s (%q): %w", job.Name, job.Spec, err)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start kicks off immediate jobs and begins the cron loop.
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		if job.Immediate {
			go s.invoke(job)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))
}

// Stop halts scheduling and returns a context that is done once the
// running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")
	return s.cron.Stop()
}

func (s *Scheduler) invoke(job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger := s.logger.With(slog.String("job", job.Name))
	start := time.Now()
	logger.Info("job started")

	if err := job.Run(ctx); err != nil {
		logger.Error("job failed",
			slog.Any("error", err),
			slog.Duration("duration", time.Since(start)))
		if s.metrics != nil {
			s.metrics.RecordJobRun(job.Name, "failure")
			s.metrics.RecordJobDuration(job.Name, time.Since(start))
		}
		// エラーログはジョブのタイムアウト後でも書けるようにする
		recordCtx, recordCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer recordCancel()
		if recErr := s.runs.RecordError(recordCtx, "", time.Now().UTC(),
			fmt.Sprintf("job %s: %v", job.Name, err)); recErr != nil {
			logger.Error("failed to record job error", slog.Any("error", recErr))
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordJobRun(job.Name, "success")
		s.metrics.RecordJobDuration(job.Name, time.Since(start))
		s.metrics.RecordJobLastSuccess(job.Name)
	}
	logger.Info("job completed", slog.Duration("duration", time.Since(start)))
}

// slogCronLogger adapts slog to the cron.Logger interface.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, slog.Any("details", keysAndValues))
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, slog.Any("error", err), slog.Any("details", keysAndValues))
}

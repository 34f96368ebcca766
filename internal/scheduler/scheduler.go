// Package scheduler runs named background jobs on cron schedules. The hazard
// feed refresh is the first such job; each run is logged and counted.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by RunNow for a name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// defaultJobTimeout bounds a single job run when the job sets none.
const defaultJobTimeout = 2 * time.Minute

// Job is a named unit of background work.
type Job struct {
	Name    string
	Spec    string // standard 5-field cron expression or a descriptor like "@every 10m"
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler fires jobs on their cron schedules. Overlapping runs of the same
// job are skipped.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	metrics *Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	jobs   map[string]Job
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. metrics may be nil.
func New(metrics *Metrics, logger *slog.Logger) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
			cron.WithLogger(cronLogger{logger}),
		),
		parser:  parser,
		metrics: metrics,
		logger:  logger,
		jobs:    make(map[string]Job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers a job. The spec is validated here so a bad expression fails
// at startup rather than silently never firing.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if _, err := s.parser.Parse(job.Spec); err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.execute(s.ctx, job) }); err != nil {
		return fmt.Errorf("scheduling job %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	return names
}

// Start begins firing jobs and returns a function that stops the scheduler
// and waits for running jobs to finish.
func (s *Scheduler) Start(ctx context.Context) func() {
	s.logger.InfoContext(ctx, "job scheduler started", slog.Int("jobs", len(s.Jobs())))
	s.cron.Start()

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		s.cancel()
		<-s.cron.Stop().Done()
		s.logger.Info("job scheduler stopped")
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// RunNow executes a job immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	s.metrics.fired(job.Name)
	err := job.Run(ctx)
	elapsed := time.Since(start)
	s.metrics.finished(job.Name, err, elapsed)

	if err != nil {
		s.logger.WarnContext(ctx, "scheduled job failed",
			slog.String("job", job.Name),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.logger.InfoContext(ctx, "scheduled job completed",
		slog.String("job", job.Name),
		slog.Duration("duration", elapsed),
	)
	return nil
}

// cronLogger routes robfig/cron's internal logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}

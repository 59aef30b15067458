package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps gocron with named interval jobs. The server uses it for
// the expiry sweeps; jobs run on UTC wall time.
type Scheduler struct {
	inner gocron.Scheduler
	log   *slog.Logger
}

func New(log *slog.Logger) (*Scheduler, error) {
	inner, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(&gocronLogger{log: log}),
	)
	if err != nil {
		return nil, err
	}
	return &Scheduler{inner: inner, log: log}, nil
}

// AddInterval registers job to run every interval. Failures are logged,
// never fatal; the next tick retries.
func (s *Scheduler) AddInterval(name string, every time.Duration, job func(ctx context.Context) error) error {
	_, err := s.inner.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if err := job(context.Background()); err != nil {
				s.log.Error("scheduled job failed", "job", name, "err", err)
			}
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}
	s.log.Info("scheduled job registered", "job", name, "every", every)
	return nil
}

// Start launches the job loop; it returns immediately.
func (s *Scheduler) Start() {
	s.inner.Start()
}

// Shutdown stops the loop and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.inner.Shutdown()
}

// gocronLogger adapts slog to gocron's logger interface.
type gocronLogger struct {
	log *slog.Logger
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *gocronLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }

// Package job runs named background tasks on a fixed interval with panic
// recovery. Jobs fire once at start and then on every tick until the context
// is cancelled.
package job

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

type job struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
}

type Scheduler struct {
	jobs []job
	wg   sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Register(name string, interval time.Duration, fn func(ctx context.Context) error) *Scheduler {
	return s.TryRegister(true, name, interval, fn)
}

// TryRegister registers the job only when enabled, so optional jobs can stay
// behind a config flag at the call site.
func (s *Scheduler) TryRegister(enabled bool, name string, interval time.Duration, fn func(ctx context.Context) error) *Scheduler {
	if !enabled {
		return s
	}

	s.jobs = append(s.jobs, job{
		name:     name,
		interval: interval,
		fn:       fn,
	})

	return s
}

func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)

		go s.run(ctx, j)
	}
}

func (s *Scheduler) run(ctx context.Context, j job) {
	defer s.wg.Done()

	l := slog.Default().With("job", j.name)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		l.Debug("job started")

		err := s.withRecover(ctx, l, j)
		if err != nil {
			l.Error("job failed", "error", err)
		} else {
			l.Debug("job done")
		}

		select {
		case <-ctx.Done():
			l.Debug("context done")
			return

		case <-ticker.C:
		}
	}
}

func (s *Scheduler) withRecover(ctx context.Context, l *slog.Logger, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.Error("job panic", "error", r, "stack", string(debug.Stack()))
		}
	}()

	return j.fn(ctx)
}

// Stop blocks until all running jobs observe context cancellation and exit.
func (s *Scheduler) Stop() {
	s.wg.Wait()
}

package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
)

// Runner schedules the background jobs on a cron and waits for running jobs
// on Stop. Every job receives the runner's context, which is cancelled by the
// caller on shutdown.
type Runner struct {
	ctx     context.Context
	cron    *cron.Cron
	mu      sync.Mutex
	wg      sync.WaitGroup
	stopped bool
}

func NewRunner(ctx context.Context) *Runner {
	return &Runner{
		ctx:  ctx,
		cron: cron.New(),
	}
}

// Every runs fn every interval once the runner is started.
func (r *Runner) Every(interval time.Duration, name string, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	spec := "@every " + interval.String()
	if err := r.cron.AddFunc(spec, r.wrap(name, fn)); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	slog.Info("job scheduled", "job", name, "every", interval.String())
	return nil
}

// Go runs fn once in the background, tracked like a scheduled run.
func (r *Runner) Go(name string, fn func(ctx context.Context)) {
	go r.wrap(name, fn)()
}

func (r *Runner) wrap(name string, fn func(ctx context.Context)) func() {
	return func() {
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.wg.Add(1)
		r.mu.Unlock()
		defer r.wg.Done()

		defer func() {
			if p := recover(); p != nil {
				slog.Error("job panicked", "job", name, "panic", p)
			}
		}()
		fn(r.ctx)
	}
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop prevents new runs and waits for the running ones to return.
func (r *Runner) Stop() {
	r.cron.Stop()
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.wg.Wait()
}

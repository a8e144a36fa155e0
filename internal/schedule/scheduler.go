// Package schedule runs fixed-interval background jobs, such as the periodic
// all-sections summary report.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	// ErrJobExists indicates a job name was registered twice.
	ErrJobExists = errors.New("scheduler: job already exists")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("scheduler: already started")
)

// Job is one recurring task. Run receives a context bounded by Timeout when
// Timeout is positive.
type Job struct {
	Name       string
	Interval   time.Duration
	Timeout    time.Duration
	RunOnStart bool
	Run        func(context.Context) error
}

func (j Job) validate() error {
	if j.Name == "" {
		return fmt.Errorf("scheduler: job name is required")
	}
	if j.Interval <= 0 {
		return fmt.Errorf("scheduler: job %q needs a positive interval", j.Name)
	}
	if j.Run == nil {
		return fmt.Errorf("scheduler: job %q has no run function", j.Name)
	}
	return nil
}

// Scheduler ticks each registered job on its own goroutine. Register all
// jobs before Start; Stop (or context cancellation) waits for in-flight runs.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []Job
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Register adds a job. Fails if the scheduler already started or the name is
// taken.
func (s *Scheduler) Register(job Job) error {
	if err := job.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	for _, existing := range s.jobs {
		if existing.Name == job.Name {
			return fmt.Errorf("%w: %s", ErrJobExists, job.Name)
		}
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start launches every registered job and returns immediately.
func (s *Scheduler) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(ctx, job)
	}
	return nil
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	defer s.wg.Done()

	if job.RunOnStart {
		s.runOnce(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	runCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	if err := job.Run(runCtx); err != nil {
		log.Printf("[Scheduler] Job %q failed: %v", job.Name, err)
	}
}

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bubtconnect/backend/src/models"
)

// Step gives a handler durable step and sleep primitives scoped to one job.
type Step struct {
	engine *Engine
	job    *models.Job
}

func (s *Step) Job() *models.Job {
	return s.job
}

// Now returns the engine clock's current time.
func (s *Step) Now() time.Time {
	return s.engine.clock.Now()
}

// Run executes fn unless a step with the same name already completed for
// this job. A completed step is recorded before Run returns.
func (s *Step) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if _, done := s.job.Steps[name]; done {
		return nil
	}
	if err := fn(ctx); err != nil {
		return fmt.Errorf("step %s: %w", name, err)
	}

	at := s.engine.clock.Now()
	if err := s.engine.jobs.CompleteStep(ctx, s.job.Id, name, at); err != nil {
		return fmt.Errorf("record step %s: %w", name, err)
	}
	s.job.Steps[name] = at
	return nil
}

// SleepUntil suspends the job until wake. The first call records wake in
// the job; later executions reuse the recorded time, so the handler is
// resumed once it has passed.
func (s *Step) SleepUntil(ctx context.Context, name string, wake time.Time) error {
	if recorded, ok := s.job.Sleeps[name]; ok {
		wake = recorded
	} else {
		if err := s.engine.jobs.RecordSleep(ctx, s.job.Id, name, wake); err != nil {
			return fmt.Errorf("record sleep %s: %w", name, err)
		}
		s.job.Sleeps[name] = wake
	}

	if !s.engine.clock.Now().Before(wake) {
		return nil
	}
	return &suspended{step: name, wake: wake}
}

// Sleep suspends the job for d, measured from the first time the sleep is
// reached.
func (s *Step) Sleep(ctx context.Context, name string, d time.Duration) error {
	return s.SleepUntil(ctx, name, s.engine.clock.Now().Add(d))
}

// suspended is returned through the handler to park the job until wake.
type suspended struct {
	step string
	wake time.Time
}

func (s *suspended) Error() string {
	return fmt.Sprintf("sleeping in %s until %s", s.step, s.wake.Format(time.RFC3339))
}

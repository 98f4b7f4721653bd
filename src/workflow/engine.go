// Package workflow runs durable background jobs. Jobs live in the job
// repository, so a step that completed or a sleep that was scheduled
// survives a restart and is resumed by whichever instance claims the job
// next.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

// Handler executes one claimed job. Returning nil completes the job.
type Handler func(ctx context.Context, job *models.Job, step *Step) error

type Config struct {
	PollInterval time.Duration
	Lease        time.Duration
	MaxAttempts  int
	Concurrency  int
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Lease <= 0 {
		c.Lease = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = 10 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Minute
	}
	return c
}

type Engine struct {
	jobs    repository.JobRepository
	clock   clock.Clock
	cfg     Config
	backoff func(time.Duration, int) time.Duration
	tracer  trace.Tracer
	handler Handler
}

func NewEngine(jobs repository.JobRepository, clk clock.Clock, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		jobs:    jobs,
		clock:   clk,
		cfg:     cfg,
		backoff: retry.ExpBackoff(cfg.MinBackoff, cfg.MaxBackoff, 1.5, false),
		tracer:  otel.Tracer("bubtconnect/workflow"),
	}
}

// Handle sets the function that executes claimed jobs.
func (e *Engine) Handle(h Handler) {
	e.handler = h
}

// Enqueue stores a job that is due immediately. A job whose payload has a
// serial key is not claimed while an earlier job with the same key is still
// queued or running.
func (e *Engine) Enqueue(ctx context.Context, kind models.JobKind, payload models.JobPayload) (*models.Job, error) {
	now := e.clock.Now()
	job := &models.Job{
		Kind:      kind,
		Payload:   payload,
		SerialKey: payload.SerialKey(),
		Status:    models.JobQueued,
		RunAt:     now,
		Steps:     map[string]time.Time{},
		Sleeps:    map[string]time.Time{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.jobs.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	slog.Debug("Job enqueued", "job_id", job.Id.Hex(), "kind", kind)
	return job, nil
}

// RunDue claims and executes every job that is due, at most
// Config.Concurrency at a time. It returns the number of jobs executed.
func (e *Engine) RunDue(ctx context.Context) (int, error) {
	if e.handler == nil {
		return 0, errors.New("workflow: no handler registered")
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	n := 0
	for ctx.Err() == nil {
		job, err := e.jobs.ClaimDue(ctx, e.clock.Now(), e.cfg.Lease)
		if err != nil {
			_ = g.Wait()
			return n, fmt.Errorf("claim job: %w", err)
		}
		if job == nil {
			break
		}
		n++
		g.Go(func() error {
			return e.execute(ctx, job)
		})
	}
	return n, g.Wait()
}

// Run polls for due jobs until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("👷 Workflow worker started", "poll_interval", e.cfg.PollInterval)
	for {
		if _, err := e.RunDue(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Workflow poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("Workflow worker stopped")
			return nil
		case <-e.clock.After(e.cfg.PollInterval):
		}
	}
}

func (e *Engine) execute(ctx context.Context, job *models.Job) error {
	ctx, span := e.tracer.Start(ctx, "job."+string(job.Kind),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("job.id", job.Id.Hex()),
			attribute.Int("job.attempts", job.Attempts),
		),
	)
	defer span.End()

	if job.Steps == nil {
		job.Steps = map[string]time.Time{}
	}
	if job.Sleeps == nil {
		job.Sleeps = map[string]time.Time{}
	}

	err := e.handler(ctx, job, &Step{engine: e, job: job})
	now := e.clock.Now()

	var sleep *suspended
	switch {
	case err == nil:
		slog.Info("✅ Job completed", "job_id", job.Id.Hex(), "kind", job.Kind)
		return e.jobs.Finish(ctx, job.Id, models.JobCompleted, "", now)

	case errors.As(err, &sleep):
		slog.Debug("Job sleeping", "job_id", job.Id.Hex(), "step", sleep.step, "wake_at", sleep.wake)
		return e.jobs.Reschedule(ctx, job.Id, sleep.wake, job.Attempts, "")

	case IsPermanent(err):
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("❌ Job failed permanently", "job_id", job.Id.Hex(), "kind", job.Kind, "error", err)
		return e.jobs.Finish(ctx, job.Id, models.JobFailed, err.Error(), now)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attempts := job.Attempts + 1
	if attempts >= e.cfg.MaxAttempts {
		slog.Error("❌ Job exhausted its attempts", "job_id", job.Id.Hex(), "kind", job.Kind, "attempts", attempts, "error", err)
		return e.jobs.Finish(ctx, job.Id, models.JobFailed, err.Error(), now)
	}

	delay := e.backoff(0, attempts)
	slog.Warn("Job failed, retrying", "job_id", job.Id.Hex(), "kind", job.Kind, "attempts", attempts, "retry_in", delay, "error", err)
	return e.jobs.Reschedule(ctx, job.Id, now.Add(delay), attempts, err.Error())
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

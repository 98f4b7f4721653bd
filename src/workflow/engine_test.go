package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
	"github.com/bubtconnect/backend/src/repository/memstore"
	"github.com/bubtconnect/backend/src/workflow"
)

func newEngine(t *testing.T) (*workflow.Engine, repository.JobRepository, *testclock.Clock) {
	t.Helper()
	store := memstore.New()
	clk := testclock.NewClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	engine := workflow.NewEngine(store.Jobs, clk, workflow.Config{
		Lease:       time.Minute,
		MaxAttempts: 3,
		Concurrency: 2,
		MinBackoff:  time.Second,
		MaxBackoff:  time.Minute,
	})
	return engine, store.Jobs, clk
}

func TestRunDueCompletesJob(t *testing.T) {
	ctx := context.Background()
	engine, jobs, _ := newEngine(t)

	var calls atomic.Int32
	engine.Handle(func(ctx context.Context, job *models.Job, step *workflow.Step) error {
		calls.Add(1)
		return step.Run(ctx, "only", func(context.Context) error { return nil })
	})

	job, err := engine.Enqueue(ctx, models.JobConnectionRequest, models.JobPayload{})
	require.NoError(t, err)

	n, err := engine.RunDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.EqualValues(t, 1, calls.Load())

	stored, err := jobs.FindByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, stored.Status)
	require.Contains(t, stored.Steps, "only")

	n, err = engine.RunDue(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSleepSurvivesAcrossExecutions(t *testing.T) {
	ctx := context.Background()
	engine, jobs, clk := newEngine(t)

	var first, second atomic.Int32
	engine.Handle(func(ctx context.Context, job *models.Job, step *workflow.Step) error {
		if err := step.Run(ctx, "first", func(context.Context) error {
			first.Add(1)
			return nil
		}); err != nil {
			return err
		}
		if err := step.Sleep(ctx, "wait", 24*time.Hour); err != nil {
			return err
		}
		return step.Run(ctx, "second", func(context.Context) error {
			second.Add(1)
			return nil
		})
	})

	job, err := engine.Enqueue(ctx, models.JobConnectionRequest, models.JobPayload{})
	require.NoError(t, err)

	_, err = engine.RunDue(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Load())
	require.Zero(t, second.Load())

	stored, err := jobs.FindByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, models.JobQueued, stored.Status)
	require.Equal(t, clk.Now().Add(24*time.Hour), stored.RunAt)
	require.Zero(t, stored.Attempts)

	clk.Advance(23 * time.Hour)
	n, err := engine.RunDue(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	clk.Advance(time.Hour)
	n, err = engine.RunDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.EqualValues(t, 1, first.Load(), "completed steps are not replayed")
	require.EqualValues(t, 1, second.Load())

	stored, err = jobs.FindByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, stored.Status)
}

func TestFailedJobIsRetriedThenFailed(t *testing.T) {
	ctx := context.Background()
	engine, jobs, clk := newEngine(t)

	var calls atomic.Int32
	engine.Handle(func(ctx context.Context, job *models.Job, step *workflow.Step) error {
		calls.Add(1)
		return errors.New("smtp down")
	})

	job, err := engine.Enqueue(ctx, models.JobConnectionRequest, models.JobPayload{})
	require.NoError(t, err)

	_, err = engine.RunDue(ctx)
	require.NoError(t, err)

	stored, err := jobs.FindByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, models.JobQueued, stored.Status)
	require.Equal(t, 1, stored.Attempts)
	require.Equal(t, "smtp down", stored.LastError)
	require.True(t, stored.RunAt.After(clk.Now()))

	for i := 0; i < 2; i++ {
		clk.Advance(time.Hour)
		_, err = engine.RunDue(ctx)
		require.NoError(t, err)
	}

	stored, err = jobs.FindByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, stored.Status)
	require.EqualValues(t, 3, calls.Load())
}

func TestPermanentErrorFailsImmediately(t *testing.T) {
	ctx := context.Background()
	engine, jobs, _ := newEngine(t)

	engine.Handle(func(ctx context.Context, job *models.Job, step *workflow.Step) error {
		return workflow.Permanent(errors.New("bad payload"))
	})

	job, err := engine.Enqueue(ctx, models.JobIdentityCreated, models.JobPayload{})
	require.NoError(t, err)

	_, err = engine.RunDue(ctx)
	require.NoError(t, err)

	stored, err := jobs.FindByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, stored.Status)
	require.Equal(t, "bad payload", stored.LastError)
}

func TestExpiredLeaseIsReclaimed(t *testing.T) {
	ctx := context.Background()
	engine, jobs, clk := newEngine(t)

	var calls atomic.Int32
	engine.Handle(func(ctx context.Context, job *models.Job, step *workflow.Step) error {
		calls.Add(1)
		return nil
	})

	job, err := engine.Enqueue(ctx, models.JobConnectionRequest, models.JobPayload{})
	require.NoError(t, err)

	// A worker that claimed the job and then died.
	claimed, err := jobs.ClaimDue(ctx, clk.Now(), time.Minute)
	require.NoError(t, err)
	require.Equal(t, job.Id, claimed.Id)

	n, err := engine.RunDue(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	clk.Advance(2 * time.Minute)
	n, err = engine.RunDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.EqualValues(t, 1, calls.Load())
}

func TestJobsWithSameSerialKeyRunInOrder(t *testing.T) {
	ctx := context.Background()
	engine, jobs, clk := newEngine(t)

	var (
		mu    sync.Mutex
		order []models.JobKind
	)
	var failedOnce atomic.Bool
	engine.Handle(func(ctx context.Context, job *models.Job, step *workflow.Step) error {
		if job.Kind == models.JobIdentityCreated && job.Payload.Identity.Id == "u1" && failedOnce.CompareAndSwap(false, true) {
			return errors.New("username taken")
		}
		mu.Lock()
		order = append(order, job.Kind)
		mu.Unlock()
		return nil
	})

	u1 := models.JobPayload{Identity: &models.IdentityEventJob{Id: "u1"}}
	created, err := engine.Enqueue(ctx, models.JobIdentityCreated, u1)
	require.NoError(t, err)
	require.Equal(t, "user:u1", created.SerialKey)
	_, err = engine.Enqueue(ctx, models.JobIdentityUpdated, u1)
	require.NoError(t, err)
	_, err = engine.Enqueue(ctx, models.JobIdentityDeleted, u1)
	require.NoError(t, err)
	other, err := engine.Enqueue(ctx, models.JobIdentityCreated, models.JobPayload{Identity: &models.IdentityEventJob{Id: "u2"}})
	require.NoError(t, err)

	// The failed create holds back the rest of u1 but not u2.
	n, err := engine.RunDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	stored, err := jobs.FindByID(ctx, other.Id)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, stored.Status)

	mu.Lock()
	require.Equal(t, []models.JobKind{models.JobIdentityCreated}, order, "only u2 ran")
	order = nil
	mu.Unlock()

	for i := 0; i < 10; i++ {
		clk.Advance(time.Minute)
		n, err = engine.RunDue(ctx)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []models.JobKind{
		models.JobIdentityCreated,
		models.JobIdentityUpdated,
		models.JobIdentityDeleted,
	}, order)
}

func TestRunDueWithoutHandler(t *testing.T) {
	engine, _, _ := newEngine(t)
	_, err := engine.RunDue(context.Background())
	require.Error(t, err)
}

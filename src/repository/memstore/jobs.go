package memstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
)

type JobStore struct {
	db *db
}

func (s *JobStore) Insert(_ context.Context, job *models.Job) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if job.Id.IsZero() {
		job.Id = primitive.NewObjectID()
	}
	s.db.jobs[job.Id] = job.Clone()
	return nil
}

func (s *JobStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Job, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.jobs[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Job not found")
	}
	return job.Clone(), nil
}

func (s *JobStore) ClaimDue(_ context.Context, now time.Time, lease time.Duration) (*models.Job, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var due *models.Job
	for _, job := range s.db.jobs {
		ready := (job.Status == models.JobQueued && !job.RunAt.After(now)) ||
			(job.Status == models.JobRunning && !job.LeaseUntil.After(now))
		if !ready || s.blocked(job) {
			continue
		}
		if due == nil || job.RunAt.Before(due.RunAt) {
			due = job
		}
	}
	if due == nil {
		return nil, nil
	}

	due.Status = models.JobRunning
	due.LeaseUntil = now.Add(lease)
	due.UpdatedAt = now
	return due.Clone(), nil
}

// blocked reports whether an earlier job with the same serial key is still
// outstanding. The caller holds the lock.
func (s *JobStore) blocked(job *models.Job) bool {
	if job.SerialKey == "" {
		return false
	}
	for _, other := range s.db.jobs {
		if other.Id == job.Id || other.SerialKey != job.SerialKey {
			continue
		}
		outstanding := other.Status == models.JobQueued || other.Status == models.JobRunning
		if outstanding && other.Precedes(job) {
			return true
		}
	}
	return false
}

func (s *JobStore) update(id primitive.ObjectID, fn func(*models.Job)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.jobs[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "Job not found")
	}
	fn(job)
	return nil
}

func (s *JobStore) CompleteStep(_ context.Context, id primitive.ObjectID, step string, at time.Time) error {
	return s.update(id, func(job *models.Job) {
		job.Steps[step] = at
		job.UpdatedAt = at
	})
}

func (s *JobStore) RecordSleep(_ context.Context, id primitive.ObjectID, step string, wake time.Time) error {
	return s.update(id, func(job *models.Job) {
		job.Sleeps[step] = wake
	})
}

func (s *JobStore) Reschedule(_ context.Context, id primitive.ObjectID, runAt time.Time, attempts int, lastErr string) error {
	return s.update(id, func(job *models.Job) {
		job.Status = models.JobQueued
		job.RunAt = runAt
		job.LeaseUntil = time.Time{}
		job.Attempts = attempts
		job.LastError = lastErr
	})
}

func (s *JobStore) Finish(_ context.Context, id primitive.ObjectID, status models.JobStatus, lastErr string, at time.Time) error {
	return s.update(id, func(job *models.Job) {
		job.Status = status
		job.LeaseUntil = time.Time{}
		job.LastError = lastErr
		job.UpdatedAt = at
	})
}

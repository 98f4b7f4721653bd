package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
)

type JobStore struct {
	coll *mongo.Collection
}

func NewJobStore(db *mongo.Database) *JobStore {
	return &JobStore{coll: db.Collection("jobs")}
}

func (s *JobStore) Insert(ctx context.Context, job *models.Job) error {
	if job.Steps == nil {
		job.Steps = map[string]time.Time{}
	}
	if job.Sleeps == nil {
		job.Sleeps = map[string]time.Time{}
	}
	res, err := s.coll.InsertOne(ctx, job)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		job.Id = id
	}
	return nil
}

func (s *JobStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error) {
	var job models.Job
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.Wrap(apperr.KindNotFound, "Job not found", err)
		}
		return nil, fmt.Errorf("find job %s: %w", id.Hex(), err)
	}
	return &job, nil
}

// claimBatch bounds how many due jobs one claim inspects when earlier jobs
// with the same serial key hold the head of the queue.
const claimBatch = 32

func dueFilter(now time.Time) bson.M {
	return bson.M{
		"$or": []bson.M{
			{"status": models.JobQueued, "run_at": bson.M{"$lte": now}},
			{"status": models.JobRunning, "lease_until": bson.M{"$lte": now}},
		},
	}
}

func (s *JobStore) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*models.Job, error) {
	cursor, err := s.coll.Find(ctx, dueFilter(now),
		options.Find().
			SetSort(bson.D{{Key: "run_at", Value: 1}}).
			SetLimit(claimBatch).
			SetProjection(bson.M{"_id": 1, "serial_key": 1, "created_at": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find due jobs: %w", err)
	}
	var candidates []models.Job
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("decode due jobs: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"status":      models.JobRunning,
			"lease_until": now.Add(lease),
			"updated_at":  now,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for _, c := range candidates {
		if c.SerialKey != "" {
			blocked, err := s.blocked(ctx, &c)
			if err != nil {
				return nil, err
			}
			if blocked {
				continue
			}
		}

		// Another worker may have claimed it since the scan.
		filter := dueFilter(now)
		filter["_id"] = c.Id
		var job models.Job
		err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("claim job %s: %w", c.Id.Hex(), err)
		}
		return &job, nil
	}
	return nil, nil
}

// blocked reports whether an earlier job with the same serial key is still
// queued or running.
func (s *JobStore) blocked(ctx context.Context, job *models.Job) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{
		"serial_key": job.SerialKey,
		"status":     bson.M{"$in": []models.JobStatus{models.JobQueued, models.JobRunning}},
		"$or": []bson.M{
			{"created_at": bson.M{"$lt": job.CreatedAt}},
			{"created_at": job.CreatedAt, "_id": bson.M{"$lt": job.Id}},
		},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check serial key %s: %w", job.SerialKey, err)
	}
	return n > 0, nil
}

func (s *JobStore) CompleteStep(ctx context.Context, id primitive.ObjectID, step string, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"steps." + step: at, "updated_at": at},
	})
	if err != nil {
		return fmt.Errorf("complete step %s on job %s: %w", step, id.Hex(), err)
	}
	return nil
}

func (s *JobStore) RecordSleep(ctx context.Context, id primitive.ObjectID, step string, wake time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"sleeps." + step: wake},
	})
	if err != nil {
		return fmt.Errorf("record sleep %s on job %s: %w", step, id.Hex(), err)
	}
	return nil
}

func (s *JobStore) Reschedule(ctx context.Context, id primitive.ObjectID, runAt time.Time, attempts int, lastErr string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":      models.JobQueued,
			"run_at":      runAt,
			"lease_until": time.Time{},
			"attempts":    attempts,
			"last_error":  lastErr,
		},
	})
	if err != nil {
		return fmt.Errorf("reschedule job %s: %w", id.Hex(), err)
	}
	return nil
}

func (s *JobStore) Finish(ctx context.Context, id primitive.ObjectID, status models.JobStatus, lastErr string, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":      status,
			"lease_until": time.Time{},
			"last_error":  lastErr,
			"updated_at":  at,
		},
	})
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id.Hex(), err)
	}
	return nil
}

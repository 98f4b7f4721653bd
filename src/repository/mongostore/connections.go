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
	"github.com/bubtconnect/backend/src/repository"
)

type ConnectionStore struct {
	coll *mongo.Collection
}

func NewConnectionStore(db *mongo.Database) *ConnectionStore {
	return &ConnectionStore{coll: db.Collection("connections")}
}

func (s *ConnectionStore) Create(ctx context.Context, req *models.ConnectionRequest) error {
	req.PairKey = models.PairKey(req.FromUserId, req.ToUserId)

	res, err := s.coll.InsertOne(ctx, req)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert connection request: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		req.Id = id
	}
	return nil
}

func (s *ConnectionStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.Wrap(apperr.KindNotFound, "Connection not found", err)
		}
		return nil, fmt.Errorf("find connection %s: %w", id.Hex(), err)
	}
	return &req, nil
}

func (s *ConnectionStore) FindBetween(ctx context.Context, a, b string) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest
	err := s.coll.FindOne(ctx, bson.M{"pair_key": models.PairKey(a, b)}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find connection between %s and %s: %w", a, b, err)
	}
	return &req, nil
}

func (s *ConnectionStore) CountSentSince(ctx context.Context, from string, since time.Time) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{
		"from_user_id": from,
		"created_at":   bson.M{"$gt": since},
	})
	if err != nil {
		return 0, fmt.Errorf("count sent requests: %w", err)
	}
	return n, nil
}

func (s *ConnectionStore) Transition(ctx context.Context, from, to string, fromStatus, toStatus models.ConnectionStatus, at time.Time) (*models.ConnectionRequest, error) {
	if err := models.CheckTransition(fromStatus, toStatus); err != nil {
		return nil, err
	}
	filter := bson.M{
		"from_user_id": from,
		"to_user_id":   to,
		"status":       fromStatus,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     toStatus,
			"updated_at": at,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req models.ConnectionRequest
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.Wrap(apperr.KindNotFound, "Connection not found", err)
		}
		return nil, fmt.Errorf("transition connection %s -> %s: %w", from, to, err)
	}
	return &req, nil
}

func (s *ConnectionStore) ListPendingFor(ctx context.Context, to string) ([]models.ConnectionRequest, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"to_user_id": to, "status": models.ConnectionStatusPending},
		options.Find().SetSort(bson.M{"created_at": -1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find pending requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []models.ConnectionRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("decode pending requests: %w", err)
	}
	return requests, nil
}

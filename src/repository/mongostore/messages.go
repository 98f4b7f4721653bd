package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bubtconnect/backend/src/models"
)

type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{coll: db.Collection("messages")}
}

func (s *MessageStore) Insert(ctx context.Context, m *models.Message) error {
	res, err := s.coll.InsertOne(ctx, m)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.Id = id
	}
	return nil
}

func (s *MessageStore) Conversation(ctx context.Context, a, b string) ([]models.Message, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"from_user_id": a, "to_user_id": b},
			{"from_user_id": b, "to_user_id": a},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return messages, nil
}

func (s *MessageStore) MarkSeen(ctx context.Context, from, to string, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"from_user_id": from, "to_user_id": to, "seen": false},
		bson.M{"$set": bson.M{"seen": true, "updated_at": at}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages seen: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MessageStore) RecentInbox(ctx context.Context, to string) ([]models.InboxEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"to_user_id": to}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$from_user_id",
			"message": bson.M{"$first": "$$ROOT"},
			"unread_count": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$seen", false}}, 1, 0},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "message.created_at", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "from_user",
			"pipeline":     bson.A{bson.M{"$project": userSummaryProjection}},
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$from_user", "preserveNullAndEmptyArrays": true}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate inbox: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []models.InboxEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode inbox: %w", err)
	}
	return entries, nil
}

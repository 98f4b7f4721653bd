package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection("users")}
}

var userSummaryProjection = bson.M{
	"full_name":       1,
	"username":        1,
	"profile_picture": 1,
	"bio":             1,
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.Wrap(apperr.KindNotFound, "User not found", err)
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return &user, nil
}

func (s *UserStore) FindSummaries(ctx context.Context, ids []string) ([]models.UserDto, error) {
	if len(ids) == 0 {
		return []models.UserDto{}, nil
	}

	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(userSummaryProjection))
	if err != nil {
		return nil, fmt.Errorf("find user summaries: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.UserDto{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode user summaries: %w", err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *UserStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count username: %w", err)
	}
	return n > 0, nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) (bool, error) {
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}
	if u.Connections == nil {
		u.Connections = []string{}
	}

	// $setOnInsert keeps a re-delivered creation event from clobbering a
	// profile that already exists.
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": u.Id},
		bson.M{"$setOnInsert": bson.M{
			"email":           u.Email,
			"full_name":       u.FullName,
			"username":        u.Username,
			"bio":             u.Bio,
			"location":        u.Location,
			"profile_picture": u.ProfilePicture,
			"cover_photo":     u.CoverPhoto,
			"followers":       u.Followers,
			"following":       u.Following,
			"connections":     u.Connections,
			"created_at":      u.CreatedAt,
			"updated_at":      u.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, repository.ErrDuplicate
		}
		return false, fmt.Errorf("create user %s: %w", u.Id, err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate, at time.Time) (bool, error) {
	set := bson.M{"updated_at": at}
	if update.Email != "" {
		set["email"] = update.Email
	}
	if update.FullName != "" {
		set["full_name"] = update.FullName
	}
	if update.ProfilePicture != "" {
		set["profile_picture"] = update.ProfilePicture
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update user %s: %w", id, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete user %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *UserStore) AddEdge(ctx context.Context, id string, edge models.Edge, member string) (bool, error) {
	if !edge.Valid() {
		return false, fmt.Errorf("unknown edge %q", edge)
	}
	field := string(edge)

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, field: bson.M{"$ne": member}},
		bson.M{"$addToSet": bson.M{field: member}},
	)
	if err != nil {
		return false, fmt.Errorf("add %s edge on %s: %w", field, id, err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	// Nothing matched: either the member is already there or the user is gone.
	err = s.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, apperr.Wrap(apperr.KindNotFound, "User not found", err)
	}
	if err != nil {
		return false, fmt.Errorf("find user %s: %w", id, err)
	}
	return false, nil
}

func (s *UserStore) RemoveEdge(ctx context.Context, id string, edge models.Edge, member string) (bool, error) {
	if !edge.Valid() {
		return false, fmt.Errorf("unknown edge %q", edge)
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{string(edge): member}},
	)
	if err != nil {
		return false, fmt.Errorf("remove %s edge on %s: %w", edge, id, err)
	}
	return res.ModifiedCount > 0, nil
}

// Package services holds the application logic behind the HTTP handlers and
// the background jobs.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

// GraphService maintains the follow and connection edges between users.
// Every edge is stored on both users; a follow that cannot be mirrored is
// rolled back.
type GraphService struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
	activity    ActivityRecorder
}

func NewGraphService(store *repository.Store, activity ActivityRecorder) *GraphService {
	return &GraphService{users: store.Users, connections: store.Connections, activity: activity}
}

// Profile returns the full profile of identity.
func (s *GraphService) Profile(ctx context.Context, identity string) (*models.User, error) {
	return s.users.FindByID(ctx, identity)
}

func (s *GraphService) Follow(ctx context.Context, actor, target string) error {
	if target == "" {
		return apperr.New(apperr.KindInvalidInput, "User id is required")
	}
	if actor == target {
		return apperr.New(apperr.KindInvalidInput, "You cannot follow yourself")
	}

	me, err := s.users.FindByID(ctx, actor)
	if err != nil {
		return err
	}
	if me.HasMember(models.EdgeFollowing, target) {
		return apperr.ErrAlreadyFollowing
	}
	if _, err := s.users.FindByID(ctx, target); err != nil {
		return err
	}

	added, err := s.users.AddEdge(ctx, actor, models.EdgeFollowing, target)
	if err != nil {
		return fmt.Errorf("add following edge: %w", err)
	}
	if !added {
		return apperr.ErrAlreadyFollowing
	}

	if _, err := s.users.AddEdge(ctx, target, models.EdgeFollowers, actor); err != nil {
		if _, undoErr := s.users.RemoveEdge(ctx, actor, models.EdgeFollowing, target); undoErr != nil {
			slog.Error("❌ Failed to roll back following edge", "actor", actor, "target", target, "error", undoErr)
		}
		return fmt.Errorf("add follower edge: %w", err)
	}

	s.activity.Record(ctx, target, models.NotificationTypeNewFollower, actor)
	slog.Debug("User followed", "actor", actor, "target", target)
	return nil
}

// Unfollow removes both directions of the follow edge. Removing an edge
// that does not exist is not an error.
func (s *GraphService) Unfollow(ctx context.Context, actor, target string) error {
	if target == "" {
		return apperr.New(apperr.KindInvalidInput, "User id is required")
	}
	removed, err := s.users.RemoveEdge(ctx, actor, models.EdgeFollowing, target)
	if err != nil {
		return fmt.Errorf("remove following edge: %w", err)
	}
	if _, err := s.users.RemoveEdge(ctx, target, models.EdgeFollowers, actor); err != nil {
		if removed {
			if _, undoErr := s.users.AddEdge(ctx, actor, models.EdgeFollowing, target); undoErr != nil {
				slog.Error("❌ Failed to restore following edge", "actor", actor, "target", target, "error", undoErr)
			}
		}
		return fmt.Errorf("remove follower edge: %w", err)
	}
	return nil
}

func (s *GraphService) ListConnections(ctx context.Context, identity string) (*models.ConnectionsView, error) {
	me, err := s.users.FindByID(ctx, identity)
	if err != nil {
		return nil, err
	}

	view := &models.ConnectionsView{PendingConnections: []models.ConnectionRequestDto{}}
	if view.Connections, err = s.users.FindSummaries(ctx, me.Connections); err != nil {
		return nil, err
	}
	if view.Followers, err = s.users.FindSummaries(ctx, me.Followers); err != nil {
		return nil, err
	}
	if view.Following, err = s.users.FindSummaries(ctx, me.Following); err != nil {
		return nil, err
	}

	pending, err := s.connections.ListPendingFor(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return view, nil
	}

	senders := make([]string, 0, len(pending))
	for _, req := range pending {
		senders = append(senders, req.FromUserId)
	}
	summaries, err := s.users.FindSummaries(ctx, senders)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserDto, len(summaries))
	for _, u := range summaries {
		byID[u.ID] = u
	}

	for _, req := range pending {
		from, ok := byID[req.FromUserId]
		if !ok {
			continue
		}
		view.PendingConnections = append(view.PendingConnections, models.ConnectionRequestDto{
			ID:        req.Id,
			From:      from,
			Status:    req.Status,
			CreatedAt: req.CreatedAt,
		})
	}
	return view, nil
}

// ConnectionStatus describes the pair (actor, target) from actor's side.
// The request id is set when target sent actor a pending request.
func (s *GraphService) ConnectionStatus(ctx context.Context, actor, target string) (models.RelationStatus, *primitive.ObjectID, error) {
	if actor == target {
		return "", nil, apperr.New(apperr.KindInvalidInput, "Cannot check connection status with yourself")
	}

	me, err := s.users.FindByID(ctx, actor)
	if err != nil {
		return "", nil, err
	}
	if me.HasMember(models.EdgeConnections, target) {
		return models.RelationConnected, nil, nil
	}

	req, err := s.connections.FindBetween(ctx, actor, target)
	if err != nil {
		return "", nil, err
	}
	switch {
	case req == nil:
		return models.RelationNotConnected, nil, nil
	case req.Status == models.ConnectionStatusAccepted:
		return models.RelationConnected, nil, nil
	case req.FromUserId == actor:
		return models.RelationPending, nil, nil
	default:
		id := req.Id
		return models.RelationReceived, &id, nil
	}
}

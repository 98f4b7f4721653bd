package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/juju/clock"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/ratelimit"
	"github.com/bubtconnect/backend/src/repository"
)

// Enqueuer schedules durable background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind models.JobKind, payload models.JobPayload) (*models.Job, error)
}

type ConnectionService struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
	limiter     ratelimit.Limiter
	jobs        Enqueuer
	activity    ActivityRecorder
	clock       clock.Clock
}

func NewConnectionService(store *repository.Store, limiter ratelimit.Limiter, jobs Enqueuer, activity ActivityRecorder, clk clock.Clock) *ConnectionService {
	return &ConnectionService{
		users:       store.Users,
		connections: store.Connections,
		limiter:     limiter,
		jobs:        jobs,
		activity:    activity,
		clock:       clk,
	}
}

// SendRequest creates a pending request from actor to target and schedules
// the notification mail. It does not wait for the mail.
func (s *ConnectionService) SendRequest(ctx context.Context, actor, target string) (*models.ConnectionRequest, error) {
	if target == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "Target user id is required")
	}
	if actor == target {
		return nil, apperr.New(apperr.KindInvalidInput, "You can't send a connection request to yourself")
	}
	if _, err := s.users.FindByID(ctx, target); err != nil {
		return nil, err
	}

	if err := s.limiter.Allow(ctx, actor); err != nil {
		return nil, err
	}

	existing, err := s.connections.FindBetween(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, existingRequestError(existing)
	}

	now := s.clock.Now()
	req := &models.ConnectionRequest{
		FromUserId: actor,
		ToUserId:   target,
		Status:     models.ConnectionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.connections.Create(ctx, req); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create connection request: %w", err)
		}
		// Lost a race with a request for the same pair.
		existing, findErr := s.connections.FindBetween(ctx, actor, target)
		if findErr != nil || existing == nil {
			return nil, apperr.ErrRequestPending
		}
		return nil, existingRequestError(existing)
	}

	if err := s.limiter.Record(ctx, actor, now); err != nil {
		slog.Warn("Failed to record connection request in limiter", "user_id", actor, "error", err)
	}

	_, err = s.jobs.Enqueue(ctx, models.JobConnectionRequest, models.JobPayload{
		ConnectionRequest: &models.ConnectionRequestJob{ConnectionId: req.Id},
	})
	if err != nil {
		slog.Error("❌ Failed to schedule connection request mail", "connection_id", req.Id.Hex(), "error", err)
	}

	s.activity.Record(ctx, target, models.NotificationTypeConnectionRequest, actor)
	slog.Info("🤝 Connection request sent", "from", actor, "to", target, "connection_id", req.Id.Hex())
	return req, nil
}

func existingRequestError(req *models.ConnectionRequest) error {
	if req.Status == models.ConnectionStatusAccepted {
		return apperr.ErrAlreadyConnected
	}
	return apperr.ErrRequestPending
}

// AcceptRequest accepts the pending request requester sent to actor and
// connects both users. Only one of several concurrent accepts succeeds.
func (s *ConnectionService) AcceptRequest(ctx context.Context, actor, requester string) error {
	if requester == "" {
		return apperr.New(apperr.KindInvalidInput, "Requester id is required")
	}

	now := s.clock.Now()
	req, err := s.connections.Transition(ctx, requester, actor,
		models.ConnectionStatusPending, models.ConnectionStatusAccepted, now)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.New(apperr.KindNotFound, "Connection request not found")
		}
		return err
	}

	if err := s.connect(ctx, actor, requester); err != nil {
		if _, revertErr := s.connections.Transition(ctx, requester, actor,
			models.ConnectionStatusAccepted, models.ConnectionStatusPending, s.clock.Now()); revertErr != nil {
			slog.Error("❌ Failed to revert accepted request", "connection_id", req.Id.Hex(), "error", revertErr)
		}
		return err
	}

	s.activity.Record(ctx, requester, models.NotificationTypeConnectionAccepted, actor)
	slog.Info("✅ Connection accepted", "from", requester, "to", actor, "connection_id", req.Id.Hex())
	return nil
}

// connect adds the mirrored connection edges, removing the first when the
// second cannot be written.
func (s *ConnectionService) connect(ctx context.Context, a, b string) error {
	added, err := s.users.AddEdge(ctx, a, models.EdgeConnections, b)
	if err != nil {
		return fmt.Errorf("add connection edge: %w", err)
	}
	if _, err := s.users.AddEdge(ctx, b, models.EdgeConnections, a); err != nil {
		if added {
			if _, undoErr := s.users.RemoveEdge(ctx, a, models.EdgeConnections, b); undoErr != nil {
				slog.Error("❌ Failed to roll back connection edge", "user_id", a, "member", b, "error", undoErr)
			}
		}
		return fmt.Errorf("add connection edge: %w", err)
	}
	return nil
}

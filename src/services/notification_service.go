package services

import (
	"context"
	"log/slog"

	"github.com/juju/clock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/broker"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

// ActivityRecorder records in-app activity for a user. Recording never
// fails the operation that caused it.
type ActivityRecorder interface {
	Record(ctx context.Context, recipient string, typ models.NotificationType, related string)
}

// NotificationService keeps the in-app notification feed and pushes new
// entries to the recipient's live channel.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	broker        broker.Broker
	clock         clock.Clock
}

func NewNotificationService(store *repository.Store, b broker.Broker, clk clock.Clock) *NotificationService {
	return &NotificationService{
		notifications: store.Notifications,
		users:         store.Users,
		broker:        b,
		clock:         clk,
	}
}

func (s *NotificationService) Record(ctx context.Context, recipient string, typ models.NotificationType, related string) {
	now := s.clock.Now()
	n := &models.Notification{
		Recipient:   recipient,
		Type:        typ,
		RelatedUser: related,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.notifications.Insert(ctx, n); err != nil {
		slog.Error("❌ Failed to record notification", "recipient", recipient, "type", typ, "error", err)
		return
	}

	dto := models.NotificationDto{Notification: *n}
	if related != "" {
		if u, err := s.users.FindByID(ctx, related); err == nil {
			summary := u.Summary()
			dto.RelatedUserSummary = &summary
		}
	}
	s.broker.Push(ctx, recipient, broker.Event{Name: "notification", Data: dto})
}

// List returns the recipient's notifications, newest first, joined with
// the users that caused them. Deleted users are left unjoined.
func (s *NotificationService) List(ctx context.Context, recipient string) ([]models.NotificationDto, error) {
	notifications, err := s.notifications.ListFor(ctx, recipient)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(notifications))
	for _, n := range notifications {
		if n.RelatedUser != "" {
			ids = append(ids, n.RelatedUser)
		}
	}
	summaries, err := s.users.FindSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserDto, len(summaries))
	for _, u := range summaries {
		byID[u.ID] = u
	}

	out := make([]models.NotificationDto, 0, len(notifications))
	for _, n := range notifications {
		dto := models.NotificationDto{Notification: n}
		if u, ok := byID[n.RelatedUser]; ok {
			dto.RelatedUserSummary = &u
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, recipient, id string) (*models.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "Invalid notification ID format")
	}
	return s.notifications.MarkRead(ctx, oid, recipient, s.clock.Now())
}

func (s *NotificationService) Delete(ctx context.Context, recipient, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.New(apperr.KindInvalidInput, "Invalid notification ID format")
	}
	return s.notifications.Delete(ctx, oid, recipient)
}

package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
)

const notificationNotFound = "Notification not found or you don't have permission to access it"

type NotificationStore struct {
	db *db
}

func (s *NotificationStore) Insert(_ context.Context, n *models.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if n.Id.IsZero() {
		n.Id = primitive.NewObjectID()
	}
	c := *n
	s.db.notifications[n.Id] = &c
	return nil
}

func (s *NotificationStore) ListFor(_ context.Context, recipient string) ([]models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := []models.Notification{}
	for _, n := range s.db.notifications {
		if n.Recipient == recipient {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Id.Hex() > out[j].Id.Hex()
	})
	return out, nil
}

func (s *NotificationStore) MarkRead(_ context.Context, id primitive.ObjectID, recipient string, at time.Time) (*models.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	n, ok := s.db.notifications[id]
	if !ok || n.Recipient != recipient {
		return nil, apperr.New(apperr.KindNotFound, notificationNotFound)
	}
	n.Read = true
	n.UpdatedAt = at
	c := *n
	return &c, nil
}

func (s *NotificationStore) Delete(_ context.Context, id primitive.ObjectID, recipient string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	n, ok := s.db.notifications[id]
	if !ok || n.Recipient != recipient {
		return apperr.New(apperr.KindNotFound, notificationNotFound)
	}
	delete(s.db.notifications, id)
	return nil
}

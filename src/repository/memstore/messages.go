package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/models"
)

type MessageStore struct {
	db *db
}

func (s *MessageStore) Insert(_ context.Context, m *models.Message) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if m.Id.IsZero() {
		m.Id = primitive.NewObjectID()
	}
	c := *m
	s.db.messages = append(s.db.messages, &c)
	return nil
}

// newestFirst orders by created_at, then by insertion id.
func newestFirst(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].Id.Hex() > msgs[j].Id.Hex()
	})
}

func (s *MessageStore) Conversation(_ context.Context, a, b string) ([]models.Message, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := []models.Message{}
	for _, m := range s.db.messages {
		if (m.FromUserId == a && m.ToUserId == b) || (m.FromUserId == b && m.ToUserId == a) {
			out = append(out, *m)
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *MessageStore) MarkSeen(_ context.Context, from, to string, at time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for _, m := range s.db.messages {
		if m.FromUserId == from && m.ToUserId == to && !m.Seen {
			m.Seen = true
			m.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

func (s *MessageStore) RecentInbox(_ context.Context, to string) ([]models.InboxEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	received := []models.Message{}
	for _, m := range s.db.messages {
		if m.ToUserId == to {
			received = append(received, *m)
		}
	}
	newestFirst(received)

	bySender := map[string]int{}
	out := []models.InboxEntry{}
	for _, m := range received {
		idx, ok := bySender[m.FromUserId]
		if !ok {
			entry := models.InboxEntry{Message: m}
			if u, found := s.db.users[m.FromUserId]; found {
				summary := u.Summary()
				entry.FromUser = &summary
			}
			out = append(out, entry)
			idx = len(out) - 1
			bySender[m.FromUserId] = idx
		}
		if !m.Seen {
			out[idx].UnreadCount++
		}
	}
	return out, nil
}

package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

type ConnectionStore struct {
	db *db
}

func (s *ConnectionStore) Create(_ context.Context, req *models.ConnectionRequest) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	req.PairKey = models.PairKey(req.FromUserId, req.ToUserId)
	for _, existing := range s.db.connections {
		if existing.PairKey == req.PairKey {
			return repository.ErrDuplicate
		}
	}
	if req.Id.IsZero() {
		req.Id = primitive.NewObjectID()
	}
	c := *req
	s.db.connections[req.Id] = &c
	return nil
}

func (s *ConnectionStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.ConnectionRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	req, ok := s.db.connections[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Connection not found")
	}
	c := *req
	return &c, nil
}

func (s *ConnectionStore) FindBetween(_ context.Context, a, b string) (*models.ConnectionRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	key := models.PairKey(a, b)
	for _, req := range s.db.connections {
		if req.PairKey == key {
			c := *req
			return &c, nil
		}
	}
	return nil, nil
}

func (s *ConnectionStore) CountSentSince(_ context.Context, from string, since time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var n int64
	for _, req := range s.db.connections {
		if req.FromUserId == from && req.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (s *ConnectionStore) Transition(_ context.Context, from, to string, fromStatus, toStatus models.ConnectionStatus, at time.Time) (*models.ConnectionRequest, error) {
	if err := models.CheckTransition(fromStatus, toStatus); err != nil {
		return nil, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, req := range s.db.connections {
		if req.FromUserId == from && req.ToUserId == to && req.Status == fromStatus {
			req.Status = toStatus
			req.UpdatedAt = at
			c := *req
			return &c, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "Connection not found")
}

func (s *ConnectionStore) ListPendingFor(_ context.Context, to string) ([]models.ConnectionRequest, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := []models.ConnectionRequest{}
	for _, req := range s.db.connections {
		if req.ToUserId == to && req.Status == models.ConnectionStatusPending {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

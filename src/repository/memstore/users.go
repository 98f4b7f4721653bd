package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

type UserStore struct {
	db *db
}

func (s *UserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "User not found")
	}
	return copyUser(u), nil
}

func (s *UserStore) FindSummaries(_ context.Context, ids []string) ([]models.UserDto, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := []models.UserDto{}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := s.db.users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) UsernameExists(_ context.Context, username string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.usernameTaken(username), nil
}

func (s *UserStore) usernameTaken(username string) bool {
	for _, u := range s.db.users {
		if u.Username == username {
			return true
		}
	}
	return false
}

func (s *UserStore) Create(_ context.Context, u *models.User) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[u.Id]; ok {
		return false, nil
	}
	if s.usernameTaken(u.Username) {
		return false, repository.ErrDuplicate
	}
	s.db.users[u.Id] = copyUser(u)
	return true, nil
}

func (s *UserStore) UpdateProfile(_ context.Context, id string, update models.ProfileUpdate, at time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return false, nil
	}
	if update.Email != "" {
		u.Email = update.Email
	}
	if update.FullName != "" {
		u.FullName = update.FullName
	}
	if update.ProfilePicture != "" {
		u.ProfilePicture = update.ProfilePicture
	}
	u.UpdatedAt = at
	return true, nil
}

func (s *UserStore) Delete(_ context.Context, id string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[id]; !ok {
		return false, nil
	}
	delete(s.db.users, id)
	return true, nil
}

func (s *UserStore) AddEdge(_ context.Context, id string, edge models.Edge, member string) (bool, error) {
	if !edge.Valid() {
		return false, fmt.Errorf("unknown edge %q", edge)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return false, apperr.New(apperr.KindNotFound, "User not found")
	}
	if u.HasMember(edge, member) {
		return false, nil
	}
	switch edge {
	case models.EdgeFollowers:
		u.Followers = append(u.Followers, member)
	case models.EdgeFollowing:
		u.Following = append(u.Following, member)
	case models.EdgeConnections:
		u.Connections = append(u.Connections, member)
	}
	return true, nil
}

func (s *UserStore) RemoveEdge(_ context.Context, id string, edge models.Edge, member string) (bool, error) {
	if !edge.Valid() {
		return false, fmt.Errorf("unknown edge %q", edge)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return false, nil
	}

	removed := false
	filter := func(in []string) []string {
		out := in[:0]
		for _, m := range in {
			if m == member {
				removed = true
				continue
			}
			out = append(out, m)
		}
		return out
	}
	switch edge {
	case models.EdgeFollowers:
		u.Followers = filter(u.Followers)
	case models.EdgeFollowing:
		u.Following = filter(u.Following)
	case models.EdgeConnections:
		u.Connections = filter(u.Connections)
	}
	return removed, nil
}

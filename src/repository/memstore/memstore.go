// Package memstore implements the repositories in process memory. It backs
// the tests and the "memory" store driver used for local development.
package memstore

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

type db struct {
	mu          sync.Mutex
	users       map[string]*models.User
	connections map[primitive.ObjectID]*models.ConnectionRequest
	messages    []*models.Message
	jobs        map[primitive.ObjectID]*models.Job

	notifications map[primitive.ObjectID]*models.Notification
}

// New returns a Store whose repositories share one in-memory database.
func New() *repository.Store {
	d := &db{
		users:       map[string]*models.User{},
		connections: map[primitive.ObjectID]*models.ConnectionRequest{},
		jobs:        map[primitive.ObjectID]*models.Job{},

		notifications: map[primitive.ObjectID]*models.Notification{},
	}
	return &repository.Store{
		Users:       &UserStore{db: d},
		Connections: &ConnectionStore{db: d},
		Messages:    &MessageStore{db: d},
		Jobs:        &JobStore{db: d},

		Notifications: &NotificationStore{db: d},
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Followers = append([]string{}, u.Followers...)
	c.Following = append([]string{}, u.Following...)
	c.Connections = append([]string{}, u.Connections...)
	return &c
}

// Package mongostore implements the repositories on MongoDB.
package mongostore

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bubtconnect/backend/src/repository"
)

func New(db *mongo.Database) *repository.Store {
	return &repository.Store{
		Users:         NewUserStore(db),
		Connections:   NewConnectionStore(db),
		Messages:      NewMessageStore(db),
		Jobs:          NewJobStore(db),
		Notifications: NewNotificationStore(db),
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is an in-app activity entry shown in the recipient's feed.
type Notification struct {
	Id          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Recipient   string             `json:"recipient" bson:"recipient"`
	Type        NotificationType   `json:"type" bson:"type"`
	RelatedUser string             `json:"related_user,omitempty" bson:"related_user,omitempty"`
	Read        bool               `json:"read" bson:"read"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

type NotificationType string

const (
	NotificationTypeNewFollower        NotificationType = "newFollower"
	NotificationTypeConnectionRequest  NotificationType = "connectionRequest"
	NotificationTypeConnectionAccepted NotificationType = "connectionAccepted"
)

// NotificationDto is a notification joined with the user that caused it.
type NotificationDto struct {
	Notification
	RelatedUserSummary *UserDto `json:"relatedUser,omitempty"`
}

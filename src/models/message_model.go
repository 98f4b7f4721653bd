package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeDocument MessageType = "document"
)

// MediaKind parses an attachment kind. Anything that is not a media kind
// reports false.
func MediaKind(s string) (MessageType, bool) {
	switch t := MessageType(s); t {
	case MessageTypeImage, MessageTypeAudio, MessageTypeDocument:
		return t, true
	}
	return "", false
}

type Message struct {
	Id          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FromUserId  string             `json:"from_user_id" bson:"from_user_id"`
	ToUserId    string             `json:"to_user_id" bson:"to_user_id"`
	Text        string             `json:"text,omitempty" bson:"text,omitempty"`
	MessageType MessageType        `json:"message_type" bson:"message_type"`
	MediaUrl    string             `json:"media_url,omitempty" bson:"media_url,omitempty"`
	Seen        bool               `json:"seen" bson:"seen"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Attachment references media already stored by the media service.
type Attachment struct {
	Kind      MessageType
	Reference string
}

// MessageDto is the pushed form of a message, joined with its sender.
type MessageDto struct {
	Message
	FromUser *UserDto `json:"from_user,omitempty"`
}

// InboxEntry is the latest message from one sender.
type InboxEntry struct {
	Message     Message  `json:"message" bson:"message"`
	FromUser    *UserDto `json:"from_user,omitempty" bson:"from_user,omitempty"`
	UnreadCount int      `json:"unread_count" bson:"unread_count"`
}

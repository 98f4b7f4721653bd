package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConnectionRequest struct {
	Id         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FromUserId string             `json:"from_user_id" bson:"from_user_id"`
	ToUserId   string             `json:"to_user_id" bson:"to_user_id"`
	PairKey    string             `json:"-" bson:"pair_key"`
	Status     ConnectionStatus   `json:"status" bson:"status"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updated_at"`
}

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
)

// connectionTransitions lists the statuses reachable from each status.
// accepted -> pending only undoes an accept whose edges could not be written.
var connectionTransitions = map[ConnectionStatus][]ConnectionStatus{
	ConnectionStatusPending:  {ConnectionStatusAccepted},
	ConnectionStatusAccepted: {ConnectionStatusPending},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to ConnectionStatus) bool {
	for _, next := range connectionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an error when the table forbids from -> to.
func CheckTransition(from, to ConnectionStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("connection status %q -> %q is not allowed", from, to)
	}
	return nil
}

// PairKey identifies the unordered pair {a, b}.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, "|")
}

// ConnectionRequestDto is a pending incoming request joined with the sender.
type ConnectionRequestDto struct {
	ID        primitive.ObjectID `json:"_id"`
	From      UserDto            `json:"from_user"`
	Status    ConnectionStatus   `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ConnectionsView is what listConnections returns.
type ConnectionsView struct {
	Connections        []UserDto              `json:"connections"`
	Followers          []UserDto              `json:"followers"`
	Following          []UserDto              `json:"following"`
	PendingConnections []ConnectionRequestDto `json:"pendingConnections"`
}

// RelationStatus is the state of the pair (actor, target) seen from actor.
type RelationStatus string

const (
	RelationNotConnected RelationStatus = "not_connected"
	RelationPending      RelationStatus = "pending"
	RelationReceived     RelationStatus = "received"
	RelationConnected    RelationStatus = "connected"
)

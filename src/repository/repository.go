// Package repository defines the persistence ports of the service. Two
// implementations exist: mongostore (production) and memstore (tests and the
// memory store driver).
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/models"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

type UserRepository interface {
	// FindByID returns apperr NotFound when the user does not exist.
	FindByID(ctx context.Context, id string) (*models.User, error)
	// FindSummaries returns summaries for the ids that exist, in id order.
	FindSummaries(ctx context.Context, ids []string) ([]models.UserDto, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// Create inserts u unless a user with the same id exists. ErrDuplicate
	// is returned when the username is taken.
	Create(ctx context.Context, u *models.User) (bool, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)

	// AddEdge adds member to edge of user id. It reports false when member
	// was already present, and apperr NotFound when the user is missing.
	AddEdge(ctx context.Context, id string, edge models.Edge, member string) (bool, error)
	// RemoveEdge removes member from edge of user id. Missing users and
	// missing members are not errors.
	RemoveEdge(ctx context.Context, id string, edge models.Edge, member string) (bool, error)
}

type ConnectionRepository interface {
	// Create inserts a request. ErrDuplicate is returned when a request for
	// the same unordered pair already exists.
	Create(ctx context.Context, req *models.ConnectionRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ConnectionRequest, error)
	// FindBetween returns the request between a and b in either direction,
	// or nil when there is none.
	FindBetween(ctx context.Context, a, b string) (*models.ConnectionRequest, error)
	CountSentSince(ctx context.Context, from string, since time.Time) (int64, error)
	// Transition atomically moves the request from -> to with status
	// fromStatus to toStatus. It returns apperr NotFound when no request in
	// fromStatus matches.
	Transition(ctx context.Context, from, to string, fromStatus, toStatus models.ConnectionStatus, at time.Time) (*models.ConnectionRequest, error)
	ListPendingFor(ctx context.Context, to string) ([]models.ConnectionRequest, error)
}

type MessageRepository interface {
	Insert(ctx context.Context, m *models.Message) error
	// Conversation returns the messages between a and b, newest first.
	Conversation(ctx context.Context, a, b string) ([]models.Message, error)
	// MarkSeen flags every message from -> to as seen.
	MarkSeen(ctx context.Context, from, to string, at time.Time) (int64, error)
	// RecentInbox returns the latest message per sender to user, newest first.
	RecentInbox(ctx context.Context, to string) ([]models.InboxEntry, error)
}

type JobRepository interface {
	Insert(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Job, error)
	// ClaimDue leases the oldest queued job due at now, or a running job
	// whose lease expired. It returns nil when nothing is due.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*models.Job, error)
	CompleteStep(ctx context.Context, id primitive.ObjectID, step string, at time.Time) error
	RecordSleep(ctx context.Context, id primitive.ObjectID, step string, wake time.Time) error
	// Reschedule puts a job back in the queue.
	Reschedule(ctx context.Context, id primitive.ObjectID, runAt time.Time, attempts int, lastErr string) error
	Finish(ctx context.Context, id primitive.ObjectID, status models.JobStatus, lastErr string, at time.Time) error
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	// ListFor returns the notifications of recipient, newest first.
	ListFor(ctx context.Context, recipient string) ([]models.Notification, error)
	// MarkRead flags one notification of recipient as read and returns it.
	// Notifications owned by someone else are reported as apperr NotFound.
	MarkRead(ctx context.Context, id primitive.ObjectID, recipient string, at time.Time) (*models.Notification, error)
	Delete(ctx context.Context, id primitive.ObjectID, recipient string) error
}

// Store groups the repositories the services depend on.
type Store struct {
	Users         UserRepository
	Connections   ConnectionRepository
	Messages      MessageRepository
	Jobs          JobRepository
	Notifications NotificationRepository
}

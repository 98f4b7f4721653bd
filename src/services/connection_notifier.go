package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
	"github.com/bubtconnect/backend/src/workflow"
)

const (
	stepRequestMail     = "send-connection-request-mail"
	stepWaitForReminder = "wait-for-24-hours"
	stepRequestReminder = "send-connection-request-reminder"
)

// ConnectionMailer sends the connection request email.
type ConnectionMailer interface {
	NotifyConnectionRequest(ctx context.Context, to, from *models.User) error
}

// ConnectionNotifier runs the connection_request job: mail the recipient,
// wait, then mail again unless the request was accepted meanwhile.
type ConnectionNotifier struct {
	users         repository.UserRepository
	connections   repository.ConnectionRepository
	mailer        ConnectionMailer
	reminderDelay time.Duration
}

func NewConnectionNotifier(store *repository.Store, mailer ConnectionMailer, reminderDelay time.Duration) *ConnectionNotifier {
	return &ConnectionNotifier{
		users:         store.Users,
		connections:   store.Connections,
		mailer:        mailer,
		reminderDelay: reminderDelay,
	}
}

func (n *ConnectionNotifier) Handle(ctx context.Context, job *models.Job, step *workflow.Step) error {
	payload := job.Payload.ConnectionRequest
	if payload == nil || payload.ConnectionId.IsZero() {
		return workflow.Permanent(errors.New("connection request job without connection id"))
	}
	id := payload.ConnectionId

	err := step.Run(ctx, stepRequestMail, func(ctx context.Context) error {
		_, to, from, err := n.load(ctx, id)
		if err != nil {
			return err
		}
		return n.mailer.NotifyConnectionRequest(ctx, to, from)
	})
	if err != nil {
		return err
	}

	if err := step.Sleep(ctx, stepWaitForReminder, n.reminderDelay); err != nil {
		return err
	}

	return step.Run(ctx, stepRequestReminder, func(ctx context.Context) error {
		req, to, from, err := n.load(ctx, id)
		if err != nil {
			return err
		}
		if req.Status == models.ConnectionStatusAccepted {
			slog.Debug("Reminder skipped, request already accepted", "connection_id", id.Hex())
			return nil
		}
		if err := n.mailer.NotifyConnectionRequest(ctx, to, from); err != nil {
			return err
		}
		slog.Info("📧 Connection request reminder sent", "connection_id", id.Hex())
		return nil
	})
}

// load fetches the request and both users. Missing records cannot appear
// later, so they fail the job for good.
func (n *ConnectionNotifier) load(ctx context.Context, id primitive.ObjectID) (*models.ConnectionRequest, *models.User, *models.User, error) {
	req, err := n.connections.FindByID(ctx, id)
	if err != nil {
		return nil, nil, nil, permanentIfMissing(err)
	}
	to, err := n.users.FindByID(ctx, req.ToUserId)
	if err != nil {
		return nil, nil, nil, permanentIfMissing(err)
	}
	from, err := n.users.FindByID(ctx, req.FromUserId)
	if err != nil {
		return nil, nil, nil, permanentIfMissing(err)
	}
	return req, to, from, nil
}

func permanentIfMissing(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return workflow.Permanent(err)
	}
	return fmt.Errorf("load connection request: %w", err)
}

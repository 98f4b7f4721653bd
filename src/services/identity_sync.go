package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/juju/clock"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
	"github.com/bubtconnect/backend/src/workflow"
)

// Identity provider event types.
const (
	IdentityUserCreated = "user.created"
	IdentityUserUpdated = "user.updated"
	IdentityUserDeleted = "user.deleted"
)

var identityJobKinds = map[string]models.JobKind{
	IdentityUserCreated: models.JobIdentityCreated,
	IdentityUserUpdated: models.JobIdentityUpdated,
	IdentityUserDeleted: models.JobIdentityDeleted,
}

// IdentitySync keeps the local profile shells in step with the identity
// provider. Events are queued as jobs and applied by the worker.
type IdentitySync struct {
	users repository.UserRepository
	jobs  Enqueuer
	clock clock.Clock
}

func NewIdentitySync(store *repository.Store, jobs Enqueuer, clk clock.Clock) *IdentitySync {
	return &IdentitySync{users: store.Users, jobs: jobs, clock: clk}
}

// Accept queues an identity provider event. Unknown event types are ignored.
func (s *IdentitySync) Accept(ctx context.Context, eventType string, ev models.IdentityEventJob) error {
	kind, ok := identityJobKinds[eventType]
	if !ok {
		slog.Debug("Ignoring identity event", "type", eventType)
		return nil
	}
	if ev.Id == "" {
		return apperr.New(apperr.KindInvalidInput, "Identity event without user id")
	}
	_, err := s.jobs.Enqueue(ctx, kind, models.JobPayload{Identity: &ev})
	return err
}

// Handle applies one queued identity event.
func (s *IdentitySync) Handle(ctx context.Context, job *models.Job, step *workflow.Step) error {
	ev := job.Payload.Identity
	if ev == nil || ev.Id == "" {
		return workflow.Permanent(errors.New("identity job without user"))
	}

	switch job.Kind {
	case models.JobIdentityCreated:
		return step.Run(ctx, "create-user", func(ctx context.Context) error { return s.created(ctx, ev) })
	case models.JobIdentityUpdated:
		return step.Run(ctx, "update-user", func(ctx context.Context) error { return s.updated(ctx, ev) })
	case models.JobIdentityDeleted:
		return step.Run(ctx, "delete-user", func(ctx context.Context) error { return s.deleted(ctx, ev) })
	}
	return workflow.Permanent(fmt.Errorf("identity sync cannot handle %s", job.Kind))
}

func fullName(ev *models.IdentityEventJob) string {
	return strings.TrimSpace(ev.FirstName + " " + ev.LastName)
}

func (s *IdentitySync) created(ctx context.Context, ev *models.IdentityEventJob) error {
	local, _, ok := strings.Cut(ev.Email, "@")
	if !ok || local == "" {
		return workflow.Permanent(fmt.Errorf("user %s has no usable email", ev.Id))
	}

	username := local
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		username = fmt.Sprintf("%s%d", local, rand.IntN(10000))
	}

	now := s.clock.Now()
	created, err := s.users.Create(ctx, &models.User{
		Id:             ev.Id,
		Email:          ev.Email,
		FullName:       fullName(ev),
		Username:       username,
		ProfilePicture: ev.ImageUrl,
		Followers:      []string{},
		Following:      []string{},
		Connections:    []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Retried with a fresh suffix.
		return fmt.Errorf("username %s taken: %w", username, err)
	}
	if err != nil {
		return err
	}
	if created {
		slog.Info("👤 User provisioned", "user_id", ev.Id, "username", username)
	}
	return nil
}

func (s *IdentitySync) updated(ctx context.Context, ev *models.IdentityEventJob) error {
	found, err := s.users.UpdateProfile(ctx, ev.Id, models.ProfileUpdate{
		Email:          ev.Email,
		FullName:       fullName(ev),
		ProfilePicture: ev.ImageUrl,
	}, s.clock.Now())
	if err != nil {
		return err
	}
	if !found {
		slog.Debug("Update for unknown user ignored", "user_id", ev.Id)
	}
	return nil
}

func (s *IdentitySync) deleted(ctx context.Context, ev *models.IdentityEventJob) error {
	found, err := s.users.Delete(ctx, ev.Id)
	if err != nil {
		return err
	}
	if found {
		slog.Info("User deleted", "user_id", ev.Id)
	}
	return nil
}

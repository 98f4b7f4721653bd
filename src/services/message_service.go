package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/clock"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/broker"
	"github.com/bubtconnect/backend/src/media"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

type MessageService struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	broker   broker.Broker
	uploader media.Uploader
	clock    clock.Clock
}

func NewMessageService(store *repository.Store, b broker.Broker, uploader media.Uploader, clk clock.Clock) *MessageService {
	return &MessageService{
		users:    store.Users,
		messages: store.Messages,
		broker:   b,
		uploader: uploader,
		clock:    clk,
	}
}

// SendInput is one outgoing message. Attachment references media already
// stored; File is uploaded first. At most one of them is used.
type SendInput struct {
	To         string
	Text       string
	Attachment *models.Attachment
	File       *media.File
}

// Send stores the message and pushes it to the recipient's live channel
// before returning. A recipient without a live channel gets it on the next
// conversation fetch.
func (s *MessageService) Send(ctx context.Context, actor string, in SendInput) (*models.Message, error) {
	if in.To == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "Recipient id is required")
	}
	if strings.TrimSpace(in.Text) == "" && in.Attachment == nil && in.File == nil {
		return nil, apperr.ErrEmptyMessage
	}
	if _, err := s.users.FindByID(ctx, in.To); err != nil {
		return nil, err
	}

	att := in.Attachment
	if in.File != nil {
		if s.uploader == nil {
			return nil, apperr.New(apperr.KindUpstreamFailure, "Media uploads are not configured")
		}
		uploaded, err := s.uploader.Upload(ctx, *in.File)
		if err != nil {
			return nil, err
		}
		att = &uploaded
	}

	now := s.clock.Now()
	msg := &models.Message{
		FromUserId:  actor,
		ToUserId:    in.To,
		Text:        strings.TrimSpace(in.Text),
		MessageType: models.MessageTypeText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if att != nil {
		if _, ok := models.MediaKind(string(att.Kind)); !ok || att.Reference == "" {
			return nil, apperr.New(apperr.KindInvalidInput, "Invalid attachment")
		}
		msg.MessageType = att.Kind
		msg.MediaUrl = att.Reference
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	dto := models.MessageDto{Message: *msg}
	if sender, err := s.users.FindByID(ctx, actor); err == nil {
		summary := sender.Summary()
		dto.FromUser = &summary
	}
	s.broker.Push(ctx, in.To, broker.Event{Name: "message", Data: dto})

	return msg, nil
}

// GetConversation returns the messages between actor and counterpart, newest
// first, and marks the ones actor received as seen.
func (s *MessageService) GetConversation(ctx context.Context, actor, counterpart string) ([]models.MessageDto, error) {
	if counterpart == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "Counterpart id is required")
	}

	msgs, err := s.messages.Conversation(ctx, actor, counterpart)
	if err != nil {
		return nil, err
	}

	summaries, err := s.users.FindSummaries(ctx, []string{actor, counterpart})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.UserDto, len(summaries))
	for i := range summaries {
		byID[summaries[i].ID] = &summaries[i]
	}

	out := make([]models.MessageDto, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.MessageDto{Message: m, FromUser: byID[m.FromUserId]})
	}

	if _, err := s.messages.MarkSeen(ctx, counterpart, actor, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	return out, nil
}

// GetRecentInbox returns the latest message from each sender to actor.
func (s *MessageService) GetRecentInbox(ctx context.Context, actor string) ([]models.InboxEntry, error) {
	return s.messages.RecentInbox(ctx, actor)
}

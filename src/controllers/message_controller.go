package controllers

import (
	"bufio"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/broker"
	"github.com/bubtconnect/backend/src/lib"
	"github.com/bubtconnect/backend/src/media"
	"github.com/bubtconnect/backend/src/middleware"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/services"
)

type MessageController struct {
	messages  *services.MessageService
	broker    broker.Broker
	heartbeat time.Duration
}

func NewMessageController(messages *services.MessageService, b broker.Broker, heartbeat time.Duration) *MessageController {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &MessageController{messages: messages, broker: b, heartbeat: heartbeat}
}

type sendMessageBody struct {
	TargetID       string `json:"targetId" form:"targetId"`
	ToUserID       string `json:"to_user_id" form:"to_user_id"`
	Text           string `json:"text" form:"text"`
	AttachmentRef  string `json:"attachmentRef" form:"attachmentRef"`
	AttachmentKind string `json:"attachmentKind" form:"attachmentKind"`
}

// SendMessage stores a direct message, uploading the attached file first
// when the request is multipart
func (mc *MessageController) SendMessage(c *fiber.Ctx) error {
	var body sendMessageBody
	if err := c.BodyParser(&body); err != nil {
		return lib.ErrorResponse(c, apperr.Wrap(apperr.KindInvalidInput, "Invalid request body", err))
	}

	in := services.SendInput{To: body.TargetID, Text: body.Text}
	if in.To == "" {
		in.To = body.ToUserID
	}

	if body.AttachmentRef != "" {
		kind, ok := models.MediaKind(body.AttachmentKind)
		if !ok {
			return lib.ErrorResponse(c, apperr.New(apperr.KindInvalidInput, "Invalid attachment kind"))
		}
		in.Attachment = &models.Attachment{Kind: kind, Reference: body.AttachmentRef}
	}

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return lib.ErrorResponse(c, apperr.Wrap(apperr.KindInvalidInput, "Unreadable attachment", err))
			}
			defer f.Close()
			in.File = &media.File{
				Name:        fh.Filename,
				ContentType: fh.Header.Get(fiber.HeaderContentType),
				Body:        f,
			}
		}
	}

	msg, err := mc.messages.Send(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusCreated, fiber.Map{"message": msg})
}

// GetConversation returns the messages exchanged with counterpartId, newest first
func (mc *MessageController) GetConversation(c *fiber.Ctx) error {
	msgs, err := mc.messages.GetConversation(c.UserContext(), middleware.UserID(c), c.Params("counterpartId"))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fiber.Map{"messages": msgs})
}

// GetRecentMessages returns the latest message from each sender
func (mc *MessageController) GetRecentMessages(c *fiber.Ctx) error {
	inbox, err := mc.messages.GetRecentInbox(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fiber.Map{"messages": inbox})
}

// Stream opens the caller's live event stream
func (mc *MessageController) Stream(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ch := broker.NewStreamChannel(32)
	mc.broker.Connect(userID, ch)
	slog.Info("🔌 Live stream opened", "user_id", userID)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			ch.Close()
			mc.broker.Disconnect(userID, ch)
			slog.Info("Live stream closed", "user_id", userID)
		}()
		if err := ch.Stream(w, mc.heartbeat); err != nil {
			slog.Debug("Live stream write failed", "user_id", userID, "error", err)
		}
	}))
	return nil
}

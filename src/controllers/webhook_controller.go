package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/lib"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/services"
)

// SignatureHeader carries "sha256=<hex HMAC of the raw body>".
const SignatureHeader = "X-Webhook-Signature"

type WebhookController struct {
	identity *services.IdentitySync
	secret   []byte
}

func NewWebhookController(identity *services.IdentitySync, secret string) *WebhookController {
	return &WebhookController{identity: identity, secret: []byte(secret)}
}

type identityWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		ImageURL       string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (wc *WebhookController) verify(c *fiber.Ctx) bool {
	got := c.Get(SignatureHeader)
	if !strings.HasPrefix(got, "sha256=") {
		return false
	}
	return hmac.Equal([]byte(got), []byte(Sign(wc.secret, c.Body())))
}

// IdentityEvent queues an identity provider lifecycle event
func (wc *WebhookController) IdentityEvent(c *fiber.Ctx) error {
	if !wc.verify(c) {
		return lib.ErrorResponse(c, apperr.New(apperr.KindNotAuthenticated, "Invalid webhook signature"))
	}

	var hook identityWebhook
	if err := json.Unmarshal(c.Body(), &hook); err != nil {
		return lib.ErrorResponse(c, apperr.Wrap(apperr.KindInvalidInput, "Invalid webhook payload", err))
	}

	ev := models.IdentityEventJob{
		Id:        hook.Data.ID,
		FirstName: hook.Data.FirstName,
		LastName:  hook.Data.LastName,
		ImageUrl:  hook.Data.ImageURL,
	}
	if len(hook.Data.EmailAddresses) > 0 {
		ev.Email = hook.Data.EmailAddresses[0].EmailAddress
	}

	if err := wc.identity.Accept(c.UserContext(), hook.Type, ev); err != nil {
		return lib.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(lib.MessageResponse("Event accepted"))
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/controllers"
)

// WebhookRoutes sets up the signed identity provider webhook
func WebhookRoutes(app *fiber.App, wc *controllers.WebhookController) {
	webhook := app.Group("/api/webhooks")

	webhook.Post("/identity", wc.IdentityEvent)
}

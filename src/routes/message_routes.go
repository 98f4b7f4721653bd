package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/controllers"
)

// MessageRoutes sets up direct message routes and the live event stream
func MessageRoutes(app *fiber.App, protect fiber.Handler, mc *controllers.MessageController) {
	message := app.Group("/api/messages", protect)

	message.Post("/", mc.SendMessage)
	message.Get("/recent", mc.GetRecentMessages)
	message.Get("/stream", mc.Stream)
	message.Get("/:counterpartId", mc.GetConversation)
}

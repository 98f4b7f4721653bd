package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/controllers"
)

// ConnectionRoutes sets up connection request routes for sending, accepting and listing requests
func ConnectionRoutes(app *fiber.App, protect fiber.Handler, cc *controllers.ConnectionController) {
	connection := app.Group("/api/connections", protect)

	connection.Get("/", cc.GetConnectionRequests)
	connection.Post("/request", cc.SendConnectionRequest)
	connection.Post("/accept", cc.AcceptConnectionRequest)
}

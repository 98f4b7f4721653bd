package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/controllers"
)

// UserRoutes sets up identity graph routes for following, connections, profile data and relation status
func UserRoutes(app *fiber.App, protect fiber.Handler, uc *controllers.UserController) {
	user := app.Group("/api/user", protect)

	user.Get("/data", uc.GetUserData)
	user.Post("/follow", uc.Follow)
	user.Post("/unfollow", uc.Unfollow)
	user.Get("/connections", uc.GetConnections)
	user.Get("/status/:userId", uc.GetConnectionStatus)
}

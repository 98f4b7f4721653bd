package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/controllers"
)

// NotificationRoutes sets up notification-related routes for listing, marking as read, and deleting notifications
func NotificationRoutes(app *fiber.App, protect fiber.Handler, nc *controllers.NotificationController) {
	notification := app.Group("/api/notifications", protect)

	notification.Get("/", nc.GetUserNotifications)
	notification.Put("/:id/read", nc.MarkNotificationAsRead)
	notification.Delete("/:id", nc.DeleteNotification)
}

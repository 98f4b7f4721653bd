package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/lib"
	"github.com/bubtconnect/backend/src/middleware"
	"github.com/bubtconnect/backend/src/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// GetUserNotifications returns all notifications for the authenticated user, populating the related user
func (nc *NotificationController) GetUserNotifications(c *fiber.Ctx) error {
	notifications, err := nc.notifications.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fiber.Map{"notifications": notifications})
}

// MarkNotificationAsRead marks a notification as read for the authenticated user
func (nc *NotificationController) MarkNotificationAsRead(c *fiber.Ctx) error {
	n, err := nc.notifications.MarkRead(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fiber.Map{"notification": n})
}

// DeleteNotification deletes a notification for the authenticated user
func (nc *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	if err := nc.notifications.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return lib.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Notification deleted successfully"))
}

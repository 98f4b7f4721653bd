package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/lib"
	"github.com/bubtconnect/backend/src/middleware"
	"github.com/bubtconnect/backend/src/services"
)

type UserController struct {
	graph *services.GraphService
}

func NewUserController(graph *services.GraphService) *UserController {
	return &UserController{graph: graph}
}

type targetBody struct {
	ID string `json:"id"`
}

// GetUserData returns the authenticated user's profile
func (uc *UserController) GetUserData(c *fiber.Ctx) error {
	user, err := uc.graph.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fiber.Map{"user": user})
}

// Follow makes the authenticated user follow the user in the body
func (uc *UserController) Follow(c *fiber.Ctx) error {
	var body targetBody
	if err := c.BodyParser(&body); err != nil {
		return lib.ErrorResponse(c, apperr.Wrap(apperr.KindInvalidInput, "Invalid request body", err))
	}

	if err := uc.graph.Follow(c.UserContext(), middleware.UserID(c), body.ID); err != nil {
		return lib.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Now you are following this user"))
}

// Unfollow removes the follow edge to the user in the body
func (uc *UserController) Unfollow(c *fiber.Ctx) error {
	var body targetBody
	if err := c.BodyParser(&body); err != nil {
		return lib.ErrorResponse(c, apperr.Wrap(apperr.KindInvalidInput, "Invalid request body", err))
	}

	if err := uc.graph.Unfollow(c.UserContext(), middleware.UserID(c), body.ID); err != nil {
		return lib.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("You are no longer following this user"))
}

// GetConnections returns followers, following, connections and pending
// incoming requests of the authenticated user
func (uc *UserController) GetConnections(c *fiber.Ctx) error {
	view, err := uc.graph.ListConnections(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"connections":        view.Connections,
		"followers":          view.Followers,
		"following":          view.Following,
		"pendingConnections": view.PendingConnections,
	})
}

// GetConnectionStatus returns the relation between the authenticated user
// and another user
func (uc *UserController) GetConnectionStatus(c *fiber.Ctx) error {
	status, requestID, err := uc.graph.ConnectionStatus(c.UserContext(), middleware.UserID(c), c.Params("userId"))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}

	fields := fiber.Map{"status": status}
	if requestID != nil {
		fields["requestId"] = requestID.Hex()
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fields)
}

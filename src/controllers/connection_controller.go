package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/lib"
	"github.com/bubtconnect/backend/src/middleware"
	"github.com/bubtconnect/backend/src/services"
)

type ConnectionController struct {
	connections *services.ConnectionService
	graph       *services.GraphService
}

func NewConnectionController(connections *services.ConnectionService, graph *services.GraphService) *ConnectionController {
	return &ConnectionController{connections: connections, graph: graph}
}

type sendRequestBody struct {
	TargetID string `json:"targetId"`
	ID       string `json:"id"`
}

type acceptRequestBody struct {
	RequesterID string `json:"requesterId"`
	ID          string `json:"id"`
}

// SendConnectionRequest sends a connection request from the authenticated user to another user
func (cc *ConnectionController) SendConnectionRequest(c *fiber.Ctx) error {
	var body sendRequestBody
	if err := c.BodyParser(&body); err != nil {
		return lib.ErrorResponse(c, apperr.Wrap(apperr.KindInvalidInput, "Invalid request body", err))
	}
	target := body.TargetID
	if target == "" {
		target = body.ID
	}

	req, err := cc.connections.SendRequest(c.UserContext(), middleware.UserID(c), target)
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusCreated, fiber.Map{
		"message":    "Connection request sent successfully",
		"connection": req,
	})
}

// AcceptConnectionRequest accepts a pending request sent to the authenticated user
func (cc *ConnectionController) AcceptConnectionRequest(c *fiber.Ctx) error {
	var body acceptRequestBody
	if err := c.BodyParser(&body); err != nil {
		return lib.ErrorResponse(c, apperr.Wrap(apperr.KindInvalidInput, "Invalid request body", err))
	}
	requester := body.RequesterID
	if requester == "" {
		requester = body.ID
	}

	if err := cc.connections.AcceptRequest(c.UserContext(), middleware.UserID(c), requester); err != nil {
		return lib.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(lib.MessageResponse("Connection accepted successfully"))
}

// GetConnectionRequests returns the pending requests sent to the authenticated user
func (cc *ConnectionController) GetConnectionRequests(c *fiber.Ctx) error {
	view, err := cc.graph.ListConnections(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return lib.ErrorResponse(c, err)
	}
	return lib.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"pendingConnections": view.PendingConnections,
		"connections":        view.Connections,
	})
}

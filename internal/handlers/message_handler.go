package handlers

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/nivram710/snapline/backend/internal/services"
)

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	chatService *services.ChatService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(chatService *services.ChatService) *MessageHandler {
	return &MessageHandler{chatService: chatService}
}

// RegisterMessageRoutes registers message routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/messages", h.SendMessage)
	g.PUT("/messages/:id/read", h.MarkAsRead)
	g.DELETE("/messages/:id", h.DeleteMessage)
	g.GET("/conversations/:id/messages", h.GetConversationMessages)
}

// SendMessage sends a message to another user
func (h *MessageHandler) SendMessage(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	payload, err := services.PayloadFromRequest(req)
	if err != nil {
		return httpError(err)
	}

	message, err := h.chatService.Send(c.Request().Context(), currentUserID, req.ReceiverID, payload)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"message": message}})
}

// MarkAsRead transitions a message to read on behalf of its receiver
func (h *MessageHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	wasAlreadyRead, err := h.chatService.MarkMessageRead(c.Request().Context(), c.Param("id"), currentUserID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"was_already_read": wasAlreadyRead},
	})
}

// DeleteMessage deletes a message on behalf of its sender
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.chatService.DeleteMessage(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetConversationMessages returns paginated messages, newest first
func (h *MessageHandler) GetConversationMessages(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, limit := pageParams(c, 20)

	messages, total, err := h.chatService.GetConversationMessages(c.Request().Context(), c.Param("id"), currentUserID, page, limit)
	if err != nil {
		return httpError(err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"messages": messages,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

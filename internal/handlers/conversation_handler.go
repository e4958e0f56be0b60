package handlers

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/nivram710/snapline/backend/internal/services"
)

// ConversationHandler handles conversation-related HTTP requests
type ConversationHandler struct {
	chatService *services.ChatService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(chatService *services.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

// RegisterConversationRoutes registers conversation routes
func (h *ConversationHandler) RegisterConversationRoutes(g *echo.Group) {
	g.POST("/conversations", h.StartConversation)
	g.GET("/conversations", h.GetConversations)
	g.PUT("/conversations/:id/read", h.MarkAsRead)
	g.DELETE("/conversations/:id", h.CloseConversation)
}

// StartConversation finds or creates the conversation with another user
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	conv, err := h.chatService.FindOrCreateConversation(c.Request().Context(), currentUserID, req.UserID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"conversation": conv.ToView(currentUserID)},
	})
}

// GetConversations returns the user's conversations ordered by last activity
func (h *ConversationHandler) GetConversations(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, limit := pageParams(c, 20)

	conversations, total, err := h.chatService.GetUserConversations(c.Request().Context(), currentUserID, page, limit)
	if err != nil {
		return httpError(err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"conversations": conversations,
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

// MarkAsRead zeroes the caller's unread counter for the conversation
func (h *ConversationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.chatService.MarkConversationRead(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// CloseConversation deactivates the conversation for both participants
func (h *ConversationHandler) CloseConversation(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.chatService.CloseConversation(c.Request().Context(), c.Param("id"), currentUserID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

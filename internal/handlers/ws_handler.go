package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nivram710/snapline/backend/internal/gateway"
)

// WSHandler upgrades authenticated clients to the realtime event stream and
// exposes presence lookups.
type WSHandler struct {
	hub      *gateway.Hub
	presence *gateway.Presence
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *gateway.Hub, presence *gateway.Presence) *WSHandler {
	return &WSHandler{hub: hub, presence: presence}
}

// RegisterWSRoutes registers the websocket and presence routes
func (h *WSHandler) RegisterWSRoutes(g *echo.Group) {
	g.GET("/ws", h.Connect)
	g.GET("/users/:id/presence", h.GetPresence)
}

// Connect upgrades the request to a websocket session on the hub
func (h *WSHandler) Connect(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	return gateway.ServeWS(h.hub, currentUserID, c.Response(), c.Request())
}

// GetPresence reports a user's online status and last-seen time
func (h *WSHandler) GetPresence(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if h.presence == nil {
		// no redis configured, fall back to in-process connection state
		status := "offline"
		if h.hub.Connected(uint(userID)) {
			status = "online"
		}
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"data":    echo.Map{"status": status},
		})
	}

	info, err := h.presence.Get(c.Request().Context(), uint(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"presence": info}})
}

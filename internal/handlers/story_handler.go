package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/nivram710/snapline/backend/internal/repositories"
	"github.com/nivram710/snapline/backend/internal/services"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	storyService   *services.StoryService
	userRepository repositories.UserRepository
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(storyService *services.StoryService, userRepo repositories.UserRepository) *StoryHandler {
	return &StoryHandler{
		storyService:   storyService,
		userRepository: userRepo,
	}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.GET("/stories", h.GetStories)
	g.GET("/stories/:id", h.GetStory)
	g.POST("/stories", h.CreateStory)
	g.POST("/stories/:id/items", h.AppendItem)
	g.POST("/stories/:id/seen", h.MarkAsSeen)
	g.GET("/stories/:id/seen", h.HasSeen)
	g.POST("/stories/sweep", h.SweepExpired)
}

// StoryResponse is the enriched story response
type StoryResponse struct {
	ID             string             `json:"id"`
	Author         models.UserCompact `json:"author"`
	Items          []models.StoryItem `json:"items"`
	HasUnseenItems bool               `json:"has_unseen_items"`
	ExpiresAt      string             `json:"expires_at"`
}

func (h *StoryHandler) storyResponse(story *models.Story, viewerID uint, userCache map[uint]models.UserCompact) StoryResponse {
	author, ok := userCache[story.UserID]
	if !ok {
		if user, err := h.userRepository.GetUserByID(story.UserID); err == nil {
			author = user.ToCompact()
			userCache[story.UserID] = author
		}
	}
	return StoryResponse{
		ID:             story.ID.Hex(),
		Author:         author,
		Items:          story.Items,
		HasUnseenItems: viewerID == 0 || !story.ViewedBy(viewerID),
		ExpiresAt:      story.ExpiresAt.Format(time.RFC3339),
	}
}

// GetStories returns active stories, the requester's own story split out
func (h *StoryHandler) GetStories(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)

	stories, err := h.storyService.GetActiveStories(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	userCache := make(map[uint]models.UserCompact)
	var currentUserStory *StoryResponse
	otherStories := make([]StoryResponse, 0, len(stories))

	for i := range stories {
		resp := h.storyResponse(&stories[i], currentUserID, userCache)
		if currentUserID > 0 && stories[i].UserID == currentUserID {
			currentUserStory = &resp
			continue
		}
		otherStories = append(otherStories, resp)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"stories":          otherStories,
			"currentUserStory": currentUserStory,
		},
	})
}

// GetStory returns a single story
func (h *StoryHandler) GetStory(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)

	story, err := h.storyService.GetStory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	resp := h.storyResponse(story, currentUserID, make(map[uint]models.UserCompact))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"story": resp}})
}

// CreateStory creates a new story with its first frame
func (h *StoryHandler) CreateStory(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	story, err := h.storyService.CreateStory(c.Request().Context(), currentUserID, req)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"story": story}})
}

// AppendItem adds a frame to the requester's own story
func (h *StoryHandler) AppendItem(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	story, err := h.storyService.AppendItem(c.Request().Context(), c.Param("id"), currentUserID, req)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"story": story}})
}

// MarkAsSeen records a view; repeat views report is_new_view=false
func (h *StoryHandler) MarkAsSeen(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	isNewView, err := h.storyService.RecordView(c.Request().Context(), c.Param("id"), currentUserID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"is_new_view": isNewView},
	})
}

// HasSeen reports whether the requester has already viewed the story
func (h *StoryHandler) HasSeen(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	viewed, err := h.storyService.IsViewedBy(c.Request().Context(), c.Param("id"), currentUserID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"viewed": viewed}})
}

// SweepExpired deactivates stories whose TTL has elapsed
func (h *StoryHandler) SweepExpired(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.storyService.SweepExpired(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"deactivated": count}})
}

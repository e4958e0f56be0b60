package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/nivram710/snapline/backend/internal/repositories"
	"go.uber.org/zap"
)

// StoryService tracks ephemeral stories: creation, frame appends, idempotent
// view recording and the expiry sweep.
type StoryService struct {
	stories       repositories.StoryRepository
	notifications *NotificationService
	log           *zap.SugaredLogger

	now func() time.Time
}

func NewStoryService(stories repositories.StoryRepository, notifications *NotificationService, log *zap.SugaredLogger) *StoryService {
	return &StoryService{
		stories:       stories,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

// CreateStory creates a story with its first content frame.
func (s *StoryService) CreateStory(ctx context.Context, userID uint, req models.CreateStoryRequest) (*models.Story, error) {
	story := &models.Story{
		UserID: userID,
		Items:  []models.StoryItem{newStoryItem(req)},
	}
	if err := s.stories.CreateStory(ctx, story); err != nil {
		return nil, storeErr(err)
	}
	return story, nil
}

// AppendItem adds a frame to the author's story while it is still visible.
func (s *StoryService) AppendItem(ctx context.Context, storyID string, userID uint, req models.CreateStoryRequest) (*models.Story, error) {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, storeErr(err)
	}
	if story.UserID != userID {
		return nil, ErrNotAuthorized
	}
	if !story.Visible(s.now()) {
		return nil, ErrExpired
	}

	item := newStoryItem(req)
	if err := s.stories.AppendItem(ctx, storyID, item); err != nil {
		return nil, storeErr(err)
	}
	story.Items = append(story.Items, item)
	return story, nil
}

// GetStory returns the story while it is visible.
func (s *StoryService) GetStory(ctx context.Context, storyID string) (*models.Story, error) {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !story.Visible(s.now()) {
		return nil, ErrExpired
	}
	return story, nil
}

// GetActiveStories lists all currently visible stories, newest first.
func (s *StoryService) GetActiveStories(ctx context.Context) ([]models.Story, error) {
	stories, err := s.stories.GetActiveStories(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return stories, nil
}

// RecordView records that viewerID saw the story. Recording is idempotent:
// repeat views (including concurrent ones for the same pair) are a no-op
// reported through isNewView=false, never an error. Viewing an expired or
// inactive story fails with ErrExpired.
func (s *StoryService) RecordView(ctx context.Context, storyID string, viewerID uint) (isNewView bool, err error) {
	story, err := s.stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return false, storeErr(err)
	}
	if !story.Visible(s.now()) {
		return false, ErrExpired
	}

	added, err := s.stories.AddView(ctx, storyID, models.StoryView{ViewerID: viewerID, ViewedAt: s.now()})
	if err != nil {
		return false, storeErr(err)
	}
	if !added {
		// Lost the race or the record already existed; either way the view
		// is recorded exactly once.
		return false, nil
	}

	if s.notifications != nil {
		if _, _, err := s.notifications.Create(ctx, story.UserID, viewerID,
			models.NotificationTypeStoryView, storyID, "story", "viewed your story"); err != nil {
			s.log.Warnw("story view notification failed", "story_id", storyID, "error", err)
		}
	}
	return true, nil
}

// IsViewedBy reports whether viewerID has a view record for the story.
func (s *StoryService) IsViewedBy(ctx context.Context, storyID string, viewerID uint) (bool, error) {
	viewed, err := s.stories.HasViewed(ctx, storyID, viewerID)
	if err != nil {
		return false, storeErr(err)
	}
	return viewed, nil
}

// SweepExpired deactivates stories whose TTL has elapsed. Re-entrant and
// re-runnable: any cadence converges to the same end state, and nothing is
// ever deleted.
func (s *StoryService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.stories.DeactivateExpired(ctx)
	if err != nil {
		return 0, storeErr(err)
	}
	if count > 0 {
		s.log.Infow("deactivated expired stories", "count", count)
	}
	return count, nil
}

func newStoryItem(req models.CreateStoryRequest) models.StoryItem {
	return models.StoryItem{
		ID:        uuid.NewString(),
		Type:      req.Type,
		URL:       req.MediaURL,
		Caption:   req.Caption,
		Overlay:   req.Overlay,
		Duration:  5,
		CreatedAt: time.Now(),
	}
}

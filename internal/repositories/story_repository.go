package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/nivram710/snapline/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoryRepository defines the interface for story operations. View records
// are embedded in the story document and mutated only through conditional
// updates, so repeat views and concurrent views never duplicate.
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story) error
	AppendItem(ctx context.Context, id string, item models.StoryItem) error
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	GetActiveStories(ctx context.Context) ([]models.Story, error)
	AddView(ctx context.Context, id string, view models.StoryView) (added bool, err error)
	HasViewed(ctx context.Context, id string, viewerID uint) (bool, error)
	DeactivateExpired(ctx context.Context) (int64, error)
}

type storyRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func NewStoryRepository(mongoDB *mongo.Database, ttl time.Duration) StoryRepository {
	return &storyRepository{collection: mongoDB.Collection("stories"), ttl: ttl}
}

func (r *storyRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	story.CreatedAt = time.Now()
	story.ExpiresAt = story.CreatedAt.Add(r.ttl)
	story.IsActive = true
	if story.Views == nil {
		story.Views = []models.StoryView{}
	}
	_, err := r.collection.InsertOne(ctx, story)
	return err
}

// AppendItem adds a frame to a story that is still active and unexpired.
func (r *storyRepository) AppendItem(ctx context.Context, id string, item models.StoryItem) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: story %q", ErrInvalidID, id)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "is_active": true, "expires_at": bson.M{"$gt": time.Now()}},
		bson.M{"$push": bson.M{"items": item}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *storyRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: story %q", ErrInvalidID, id)
	}
	var story models.Story
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&story); err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *storyRepository) GetActiveStories(ctx context.Context) ([]models.Story, error) {
	filter := bson.M{"is_active": true, "expires_at": bson.M{"$gt": time.Now()}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stories []models.Story
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// AddView appends the view record only when the story is still visible and
// the viewer has no record yet. A false return with no error means nothing
// matched: the caller decides between repeat-view, expired and not-found by
// loading the story.
func (r *storyRepository) AddView(ctx context.Context, id string, view models.StoryView) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: story %q", ErrInvalidID, id)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id":             objID,
			"is_active":       true,
			"expires_at":      bson.M{"$gt": time.Now()},
			"views.viewer_id": bson.M{"$ne": view.ViewerID},
		},
		bson.M{"$push": bson.M{"views": view}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *storyRepository) HasViewed(ctx context.Context, id string, viewerID uint) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: story %q", ErrInvalidID, id)
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID, "views.viewer_id": viewerID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeactivateExpired flips expired-but-active stories to inactive. Rerunning
// it matches nothing new, so any sweep cadence converges to the same state.
func (r *storyRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"is_active": true, "expires_at": bson.M{"$lte": time.Now()}},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

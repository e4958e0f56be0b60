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

// MessageRepository defines the interface for message operations
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	MarkRead(ctx context.Context, id string, at time.Time) (alreadyRead bool, err error)
	Delete(ctx context.Context, id string) error
	ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]models.Message, int64, error)
}

type messageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(mongoDB *mongo.Database) MessageRepository {
	return &messageRepository{collection: mongoDB.Collection("messages")}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	message.IsRead = false
	message.ReadAt = nil
	_, err := r.collection.InsertOne(ctx, message)
	return err
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: message %q", ErrInvalidID, id)
	}
	var message models.Message
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead performs the Created -> Read transition as a conditional update
// filtered on is_read=false, so concurrent calls race safely: exactly one
// writes the timestamp, the rest observe alreadyRead=true.
func (r *messageRepository) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: message %q", ErrInvalidID, id)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return false, nil
	}
	// No unread match: either already read, or deleted since the caller
	// authorized the transition. Tell them apart.
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: message %q", ErrInvalidID, id)
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByConversation returns messages newest-first. The _id tiebreak keeps
// pagination stable when several messages share a creation timestamp.
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]models.Message, int64, error) {
	objID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: conversation %q", ErrInvalidID, conversationID)
	}
	filter := bson.M{"conversation_id": objID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

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

// ConversationRepository defines the interface for conversation operations.
// All mutations are single atomic document updates so concurrent senders and
// readers never observe partial state.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userA, userB uint) (*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	RecordOutgoingMessage(ctx context.Context, id string, receiverID uint, messageID string, at time.Time) error
	ResetUnread(ctx context.Context, id string, userID uint) error
	ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.Conversation, int64, error)
	Deactivate(ctx context.Context, id string) error
}

type conversationRepository struct {
	collection *mongo.Collection
}

func NewConversationRepository(mongoDB *mongo.Database) ConversationRepository {
	return &conversationRepository{collection: mongoDB.Collection("conversations")}
}

// EnsureConversationIndexes creates the unique index backing find-or-create.
// The index is partial on is_active so a deactivated conversation does not
// block a new one for the same pair.
func EnsureConversationIndexes(ctx context.Context, mongoDB *mongo.Database) error {
	_, err := mongoDB.Collection("conversations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participant_key", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"is_active": true}),
	})
	return err
}

// FindOrCreate resolves the active conversation for the unordered user pair,
// creating it with zeroed unread counters when absent. The upsert on the
// normalized participant key makes concurrent calls converge on one document.
func (r *conversationRepository) FindOrCreate(ctx context.Context, userA, userB uint) (*models.Conversation, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	key := models.ParticipantKey(userA, userB)
	now := time.Now()

	filter := bson.M{"participant_key": key, "is_active": true}
	update := bson.M{"$setOnInsert": bson.M{
		"participant_key": key,
		"participants":    []uint{userA, userB},
		"unread_counts": bson.M{
			models.UnreadKey(userA): int64(0),
			models.UnreadKey(userB): int64(0),
		},
		"is_active":       true,
		"last_message_at": now,
		"created_at":      now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv models.Conversation
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		// lost the upsert race; the winner's document exists now
		err = r.collection.FindOne(ctx, filter).Decode(&conv)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation %q", ErrInvalidID, id)
	}
	var conv models.Conversation
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// RecordOutgoingMessage advances the last-message pointer and increments the
// receiver's unread counter in one $set/$inc update.
func (r *conversationRepository) RecordOutgoingMessage(ctx context.Context, id string, receiverID uint, messageID string, at time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: conversation %q", ErrInvalidID, id)
	}
	update := bson.M{
		"$set": bson.M{"last_message_id": messageID, "last_message_at": at},
		"$inc": bson.M{"unread_counts." + models.UnreadKey(receiverID): int64(1)},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID, "is_active": true}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ResetUnread zeroes the user's unread counter. Resetting an already-zero
// counter matches the document and writes the same value, so it is idempotent.
func (r *conversationRepository) ResetUnread(ctx context.Context, id string, userID uint) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: conversation %q", ErrInvalidID, id)
	}
	update := bson.M{"$set": bson.M{"unread_counts." + models.UnreadKey(userID): int64(0)}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListByUser returns the user's active conversations ordered by last activity.
func (r *conversationRepository) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.Conversation, int64, error) {
	filter := bson.M{"participants": userID, "is_active": true}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, 0, err
	}
	return conversations, total, nil
}

// Deactivate soft-deletes the conversation; messages keep referencing it.
func (r *conversationRepository) Deactivate(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: conversation %q", ErrInvalidID, id)
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{"is_active": false}})
	return err
}

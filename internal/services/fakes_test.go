package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nivram710/snapline/backend/internal/events"
	"github.com/nivram710/snapline/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) byType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, ev := range p.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fakeConversationRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{byID: make(map[string]*models.Conversation)}
}

func (r *fakeConversationRepo) FindOrCreate(ctx context.Context, userA, userB uint) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := models.ParticipantKey(userA, userB)
	for _, conv := range r.byID {
		if conv.IsActive && conv.ParticipantKey == key {
			c := *conv
			return &c, nil
		}
	}
	a, b := userA, userB
	if a > b {
		a, b = b, a
	}
	conv := &models.Conversation{
		ID:             primitive.NewObjectID(),
		ParticipantKey: key,
		Participants:   []uint{a, b},
		UnreadCounts:   map[string]int64{models.UnreadKey(a): 0, models.UnreadKey(b): 0},
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	r.byID[conv.ID.Hex()] = conv
	c := *conv
	return &c, nil
}

func (r *fakeConversationRepo) find(id string) *models.Conversation {
	return r.byID[id]
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.find(id)
	if conv == nil {
		return nil, mongo.ErrNoDocuments
	}
	c := *conv
	return &c, nil
}

func (r *fakeConversationRepo) RecordOutgoingMessage(ctx context.Context, id string, receiverID uint, messageID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.find(id)
	if conv == nil || !conv.IsActive {
		return mongo.ErrNoDocuments
	}
	conv.LastMessageID = messageID
	conv.LastMessageAt = at
	conv.UnreadCounts[models.UnreadKey(receiverID)]++
	return nil
}

func (r *fakeConversationRepo) ResetUnread(ctx context.Context, id string, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.find(id)
	if conv == nil {
		return mongo.ErrNoDocuments
	}
	conv.UnreadCounts[models.UnreadKey(userID)] = 0
	return nil
}

func (r *fakeConversationRepo) ListByUser(ctx context.Context, userID uint, page, limit int) ([]models.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Conversation
	for _, conv := range r.byID {
		if conv.IsActive && conv.HasParticipant(userID) {
			all = append(all, *conv)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastMessageAt.After(all[j].LastMessageAt)
	})
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeConversationRepo) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := r.find(id)
	if conv == nil {
		return mongo.ErrNoDocuments
	}
	conv.IsActive = false
	return nil
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byID: make(map[string]*models.Message)}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	message.IsRead = false
	message.ReadAt = nil
	m := *message
	r.byID[message.ID.Hex()] = &m
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	m := *msg
	return &m, nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if msg.IsRead {
		return true, nil
	}
	msg.IsRead = true
	msg.ReadAt = &at
	return false, nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID string, page, limit int) ([]models.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Message
	for _, msg := range r.byID {
		if msg.ConversationID.Hex() == conversationID {
			all = append(all, *msg)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.Hex() > all[j].ID.Hex()
	})
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        uint
	byFingerprint map[string]*models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{byFingerprint: make(map[string]*models.Notification)}
}

func (r *fakeNotificationRepo) CreateDeduped(notification *models.Notification) (bool, *models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byFingerprint[notification.Fingerprint]; ok {
		n := *existing
		return false, &n, nil
	}
	r.nextID++
	notification.ID = r.nextID
	stored := *notification
	r.byFingerprint[notification.Fingerprint] = &stored
	n := stored
	return true, &n, nil
}

func (r *fakeNotificationRepo) get(id uint) *models.Notification {
	for _, n := range r.byFingerprint {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func (r *fakeNotificationRepo) GetByID(notificationID uint) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.get(notificationID)
	if n == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *n
	return &copied, nil
}

func (r *fakeNotificationRepo) GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Notification
	for _, n := range r.byFingerprint {
		if n.RecipientID == recipientID {
			all = append(all, *n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, int64(len(all)), nil
}

func (r *fakeNotificationRepo) GetGrouped(recipientID uint) ([]models.Notification, []models.Notification, []models.Notification, []models.Notification, error) {
	all, _, _ := r.GetByRecipientID(recipientID, 1, 100)
	return all, nil, nil, nil, nil
}

func (r *fakeNotificationRepo) GetUnreadCount(recipientID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.byFingerprint {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAsRead(notificationID uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.get(notificationID)
	if n == nil {
		return false, gorm.ErrRecordNotFound
	}
	if n.IsRead {
		return false, nil
	}
	n.IsRead = true
	n.ReadAt = &at
	return true, nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(recipientID uint, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.byFingerprint {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

type fakeStoryRepo struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	byID map[string]*models.Story
}

func newFakeStoryRepo(ttl time.Duration, now func() time.Time) *fakeStoryRepo {
	return &fakeStoryRepo{ttl: ttl, now: now, byID: make(map[string]*models.Story)}
}

func (r *fakeStoryRepo) CreateStory(ctx context.Context, story *models.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	story.ID = primitive.NewObjectID()
	story.CreatedAt = now
	story.ExpiresAt = now.Add(r.ttl)
	story.IsActive = true
	s := *story
	r.byID[story.ID.Hex()] = &s
	return nil
}

func (r *fakeStoryRepo) AppendItem(ctx context.Context, id string, item models.StoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	story, ok := r.byID[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	story.Items = append(story.Items, item)
	return nil
}

func (r *fakeStoryRepo) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	story, ok := r.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	s := *story
	return &s, nil
}

func (r *fakeStoryRepo) GetActiveStories(ctx context.Context) ([]models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var out []models.Story
	for _, story := range r.byID {
		if story.Visible(now) {
			out = append(out, *story)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeStoryRepo) AddView(ctx context.Context, id string, view models.StoryView) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	story, ok := r.byID[id]
	if !ok || !story.Visible(r.now()) || story.ViewedBy(view.ViewerID) {
		return false, nil
	}
	story.Views = append(story.Views, view)
	return true, nil
}

func (r *fakeStoryRepo) HasViewed(ctx context.Context, id string, viewerID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	story, ok := r.byID[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	return story.ViewedBy(viewerID), nil
}

func (r *fakeStoryRepo) DeactivateExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var count int64
	for _, story := range r.byID {
		if story.IsActive && story.Expired(now) {
			story.IsActive = false
			count++
		}
	}
	return count, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neveleren/thewire/pkg/db/models"
)

const chatFeedLimit = 50

// ChatEntry is a flattened chat line used for histories, transcripts, and
// reply context.
type ChatEntry struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Content     string    `json:"content"`
	IsBot       bool      `json:"is_bot"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageView is a chat message with its author and, when present, the
// one referenced reply line resolved for display.
type MessageView struct {
	models.ChatMessage
	ReplyTo *ChatEntry `json:"reply_to,omitempty"`
}

type ChatStore struct {
	mu     sync.RWMutex
	logger *logrus.Logger
	db     *gorm.DB
}

func NewChatStore(logger *logrus.Logger, db *gorm.DB) *ChatStore {
	return &ChatStore{logger: logger, db: db}
}

// Create inserts a chat message and returns it with the author preloaded.
func (s *ChatStore) Create(ctx context.Context, userID, content string, mediaURL, mediaType, replyToID *string) (*models.ChatMessage, error) {
	msg := models.ChatMessage{
		UserID:    userID,
		Content:   content,
		MediaURL:  mediaURL,
		MediaType: mediaType,
		ReplyToID: replyToID,
	}

	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}

	if err := s.db.WithContext(ctx).Preload("User").First(&msg, "id = ?", msg.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload chat message: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"user_id":    userID,
	}).Info("Chat message created")

	return &msg, nil
}

// List returns the chat feed in chronological order with reply references
// resolved one level deep.
func (s *ChatStore) List(ctx context.Context) ([]MessageView, error) {
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at ASC").
		Limit(chatFeedLimit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		view := MessageView{ChatMessage: m}
		if m.ReplyToID != nil {
			if ref, err := s.Entry(ctx, *m.ReplyToID); err == nil {
				view.ReplyTo = ref
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Entry fetches one message as a flattened ChatEntry.
func (s *ChatStore) Entry(ctx context.Context, id string) (*ChatEntry, error) {
	var msg models.ChatMessage
	err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chat message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat message %s: %w", id, err)
	}
	return entryOf(msg), nil
}

// RecentHistory returns the last N messages in chronological order.
func (s *ChatStore) RecentHistory(ctx context.Context, limit int) ([]ChatEntry, error) {
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}

	entries := make([]ChatEntry, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		entries = append(entries, *entryOf(messages[i]))
	}
	return entries, nil
}

// MessagesAfter returns every message created strictly after t, oldest
// first. The summarizer uses this to collect its backlog.
func (s *ChatStore) MessagesAfter(ctx context.Context, t time.Time) ([]ChatEntry, error) {
	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("created_at > ?", t).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages after %s: %w", t, err)
	}

	entries := make([]ChatEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, *entryOf(m))
	}
	return entries, nil
}

// Count returns the total number of chat messages.
func (s *ChatStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ChatMessage{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return count, nil
}

func entryOf(m models.ChatMessage) *ChatEntry {
	e := &ChatEntry{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		e.Username = m.User.Username
		e.DisplayName = m.User.DisplayName
		e.IsBot = m.User.IsBot
	}
	if e.DisplayName == "" {
		e.DisplayName = e.Username
	}
	return e
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neveleren/thewire/pkg/db/models"
)

// BotStore persists bot states, memories, and daily events.
type BotStore struct {
	mu     sync.RWMutex
	logger *logrus.Logger
	db     *gorm.DB
}

func NewBotStore(logger *logrus.Logger, db *gorm.DB) *BotStore {
	return &BotStore{logger: logger, db: db}
}

// State returns a bot's current state, or nil when none has been rolled
// yet. Callers substitute neutral defaults.
func (s *BotStore) State(ctx context.Context, bot string) (*models.BotState, error) {
	var state models.BotState
	err := s.db.WithContext(ctx).Where("bot_username = ?", bot).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch state for %s: %w", bot, err)
	}
	return &state, nil
}

// UpsertState writes a full state snapshot keyed on the bot username.
// Re-running is idempotent by overwrite.
func (s *BotStore) UpsertState(ctx context.Context, state models.BotState) error {
	state.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bot_username"}},
			UpdateAll: true,
		}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("failed to upsert state for %s: %w", state.BotUsername, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bot":    state.BotUsername,
		"mood":   state.Mood,
		"energy": state.Energy,
	}).Info("Bot state rolled")
	return nil
}

// PatchState applies a partial update to a bot's state.
func (s *BotStore) PatchState(ctx context.Context, bot string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	err := s.db.WithContext(ctx).Model(&models.BotState{}).
		Where("bot_username = ?", bot).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to patch state for %s: %w", bot, err)
	}
	return nil
}

// MarkPosted bumps the posting counters after a bot writes something.
func (s *BotStore) MarkPosted(ctx context.Context, bot string) error {
	err := s.db.WithContext(ctx).Model(&models.BotState{}).
		Where("bot_username = ?", bot).
		Updates(map[string]interface{}{
			"last_post_at": time.Now(),
			"posts_today":  gorm.Expr("posts_today + 1"),
			"updated_at":   time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark %s as posted: %w", bot, err)
	}
	return nil
}

// AddMemory inserts one memory record.
func (s *BotStore) AddMemory(ctx context.Context, m *models.BotMemory) error {
	if m.MemoryType == "" {
		m.MemoryType = models.MemoryConversation
	}
	if m.Importance == 0 {
		m.Importance = 5
	}

	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to add memory for %s: %w", m.BotUsername, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bot":         m.BotUsername,
		"memory_type": m.MemoryType,
		"importance":  m.Importance,
	}).Debug("Memory saved")
	return nil
}

// TopMemories returns a bot's most important memories and stamps them as
// recalled, which is what keeps them alive through the decay pass.
func (s *BotStore) TopMemories(ctx context.Context, bot string, limit int) ([]models.BotMemory, error) {
	var memories []models.BotMemory
	err := s.db.WithContext(ctx).
		Where("bot_username = ?", bot).
		Order("importance DESC").
		Limit(limit).
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch memories for %s: %w", bot, err)
	}

	if len(memories) > 0 {
		ids := make([]string, len(memories))
		for i, m := range memories {
			ids[i] = m.ID
		}
		if err := s.db.WithContext(ctx).Model(&models.BotMemory{}).
			Where("id IN ?", ids).
			Update("last_recalled_at", time.Now()).Error; err != nil {
			s.logger.WithError(err).Warn("Failed to stamp memory recall")
		}
	}

	return memories, nil
}

// MemoriesRelatedTo returns a bot's latest memories tagged with a related
// user, newest first.
func (s *BotStore) MemoriesRelatedTo(ctx context.Context, bot, relatedUser string, limit int) ([]models.BotMemory, error) {
	var memories []models.BotMemory
	err := s.db.WithContext(ctx).
		Where("bot_username = ? AND related_user = ?", bot, relatedUser).
		Order("created_at DESC").
		Limit(limit).
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch related memories for %s: %w", bot, err)
	}
	return memories, nil
}

// RecentMemories returns the latest memories across all bots.
func (s *BotStore) RecentMemories(ctx context.Context, limit int) ([]models.BotMemory, error) {
	var memories []models.BotMemory
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent memories: %w", err)
	}
	return memories, nil
}

// LastSummary returns the most recent chat summary memory, or nil.
func (s *BotStore) LastSummary(ctx context.Context) (*models.BotMemory, error) {
	var memory models.BotMemory
	err := s.db.WithContext(ctx).
		Where("memory_type = ?", models.MemoryChatSummary).
		Order("created_at DESC").
		First(&memory).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last summary: %w", err)
	}
	return &memory, nil
}

// LastSummaryAt returns when the chat was last summarized, zero if never.
func (s *BotStore) LastSummaryAt(ctx context.Context) (time.Time, error) {
	memory, err := s.LastSummary(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if memory == nil {
		return time.Time{}, nil
	}
	return memory.CreatedAt, nil
}

// DecayStale forces importance to the minimum for memories not recalled
// since the cutoff, including ones never recalled at all. Idempotent.
func (s *BotStore) DecayStale(ctx context.Context, before time.Time) (int64, error) {
	recalled := s.db.WithContext(ctx).Model(&models.BotMemory{}).
		Where("last_recalled_at < ?", before).
		Update("importance", 1)
	if recalled.Error != nil {
		return 0, fmt.Errorf("failed to decay recalled memories: %w", recalled.Error)
	}

	never := s.db.WithContext(ctx).Model(&models.BotMemory{}).
		Where("last_recalled_at IS NULL AND created_at < ?", before).
		Update("importance", 1)
	if never.Error != nil {
		return recalled.RowsAffected, fmt.Errorf("failed to decay unrecalled memories: %w", never.Error)
	}

	return recalled.RowsAffected + never.RowsAffected, nil
}

// PruneOld hard-deletes low-importance memories older than the cutoff.
func (s *BotStore) PruneOld(ctx context.Context, maxImportance int, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("importance <= ? AND created_at < ?", maxImportance, before).
		Delete(&models.BotMemory{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune memories: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// InsertEvents writes a batch of daily events.
func (s *BotStore) InsertEvents(ctx context.Context, events []models.BotDailyEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&events).Error; err != nil {
		return fmt.Errorf("failed to insert daily events: %w", err)
	}
	return nil
}

// HasEventsForDate reports whether any bot already has events for a date.
func (s *BotStore) HasEventsForDate(ctx context.Context, date string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BotDailyEvent{}).
		Where("event_date = ?", date).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check events for %s: %w", date, err)
	}
	return count > 0, nil
}

// EventsForDate lists events for a date, optionally filtered by bot.
func (s *BotStore) EventsForDate(ctx context.Context, bot, date string) ([]models.BotDailyEvent, error) {
	q := s.db.WithContext(ctx).Where("event_date = ?", date)
	if bot != "" {
		q = q.Where("bot_username = ?", bot)
	}

	var events []models.BotDailyEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch events for %s: %w", date, err)
	}
	return events, nil
}

// UnmentionedEvents returns a bot's not-yet-mentioned events for a date.
func (s *BotStore) UnmentionedEvents(ctx context.Context, bot, date string, limit int) ([]models.BotDailyEvent, error) {
	var events []models.BotDailyEvent
	err := s.db.WithContext(ctx).
		Where("bot_username = ? AND event_date = ? AND was_mentioned = ?", bot, date, false).
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unmentioned events for %s: %w", bot, err)
	}
	return events, nil
}

// MarkEventMentioned flags one event as used.
func (s *BotStore) MarkEventMentioned(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&models.BotDailyEvent{}).
		Where("id = ?", id).
		Update("was_mentioned", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark event %s mentioned: %w", id, err)
	}
	return nil
}

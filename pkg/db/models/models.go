package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// MemoryType classifies how a bot memory was formed.
type MemoryType string

const (
	MemoryConversation     MemoryType = "conversation"
	MemoryChatConversation MemoryType = "chat_conversation"
	MemoryChatSummary      MemoryType = "chat_summary"
)

// EventType classifies a bot's daily event.
type EventType string

const (
	EventMundane     EventType = "mundane"
	EventInteresting EventType = "interesting"
	EventFrustrating EventType = "frustrating"
	EventExciting    EventType = "exciting"
)

// User is a feed participant. Users are seeded out-of-band; the service
// never creates them.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	Username    string    `json:"username" gorm:"column:username;uniqueIndex;not null"`
	DisplayName string    `json:"display_name" gorm:"column:display_name"`
	Bio         string    `json:"bio" gorm:"column:bio"`
	AvatarURL   string    `json:"avatar_url" gorm:"column:avatar_url"`
	IsBot       bool      `json:"is_bot" gorm:"column:is_bot;default:false"`
	IsCreator   bool      `json:"is_creator" gorm:"column:is_creator;default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Post is a feed entry. ReplyToID links replies into an unbounded tree.
// DialogueStarted is the atomic claim flag for the bot-to-bot dialogue
// trigger on top-level posts.
type Post struct {
	ID              string    `json:"id" gorm:"primaryKey;column:id"`
	UserID          string    `json:"user_id" gorm:"column:user_id;not null;index"`
	Content         string    `json:"content" gorm:"column:content;not null"`
	ReplyToID       *string   `json:"reply_to_id" gorm:"column:reply_to_id;index"`
	RepostOfID      *string   `json:"repost_of_id" gorm:"column:repost_of_id;index"`
	DialogueStarted bool      `json:"-" gorm:"column:dialogue_started;default:false"`
	CreatedAt       time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"column:updated_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (Post) TableName() string { return "posts" }

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Like marks a user's like on a post. The composite unique index makes the
// toggle safe against concurrent duplicates.
type Like struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	UserID    string    `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_likes_user_post"`
	PostID    string    `json:"post_id" gorm:"column:post_id;not null;uniqueIndex:idx_likes_user_post"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Like) TableName() string { return "likes" }

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ChatMessage is one line of the strictly linear group chat. ReplyToID is
// informational context for display, not a thread.
type ChatMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	UserID    string    `json:"user_id" gorm:"column:user_id;not null;index"`
	Content   string    `json:"content" gorm:"column:content;not null"`
	MediaURL  *string   `json:"media_url" gorm:"column:media_url"`
	MediaType *string   `json:"media_type" gorm:"column:media_type"`
	ReplyToID *string   `json:"reply_to_id" gorm:"column:reply_to_id"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// BotState is the single current snapshot of a bot's simulated inner life.
// One row per bot, keyed by username.
type BotState struct {
	BotUsername    string     `json:"bot_username" gorm:"primaryKey;column:bot_username"`
	Mood           string     `json:"mood" gorm:"column:mood;default:neutral"`
	MoodIntensity  int        `json:"mood_intensity" gorm:"column:mood_intensity;default:5"`
	MoodUpdatedAt  *time.Time `json:"mood_updated_at" gorm:"column:mood_updated_at"`
	Energy         int        `json:"energy" gorm:"column:energy;default:5"`
	CurrentFocus   *string    `json:"current_focus" gorm:"column:current_focus"`
	FocusStartedAt *time.Time `json:"focus_started_at" gorm:"column:focus_started_at"`
	PostsToday     int        `json:"posts_today" gorm:"column:posts_today;default:0"`
	DayStartedAt   string     `json:"day_started_at" gorm:"column:day_started_at;type:date"`
	LastPostAt     *time.Time `json:"last_post_at" gorm:"column:last_post_at"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (BotState) TableName() string { return "bot_states" }

// BotMemory accumulates what a bot "remembers". Importance drives recall
// ordering; the daily routine decays and prunes stale rows.
type BotMemory struct {
	ID               string         `json:"id" gorm:"primaryKey;column:id"`
	BotUsername      string         `json:"bot_username" gorm:"column:bot_username;not null;index"`
	MemoryType       MemoryType     `json:"memory_type" gorm:"column:memory_type;not null"`
	Content          string         `json:"content" gorm:"column:content;not null"`
	RelatedUser      *string        `json:"related_user" gorm:"column:related_user;index"`
	RelatedPostID    *string        `json:"related_post_id" gorm:"column:related_post_id"`
	Importance       int            `json:"importance" gorm:"column:importance;default:5"`
	EmotionalValence int            `json:"emotional_valence" gorm:"column:emotional_valence;default:0"`
	Topics           pq.StringArray `json:"topics" gorm:"column:topics;type:text[]"`
	CreatedAt        time.Time      `json:"created_at" gorm:"column:created_at"`
	LastRecalledAt   *time.Time     `json:"last_recalled_at" gorm:"column:last_recalled_at"`
}

func (BotMemory) TableName() string { return "bot_memories" }

func (m *BotMemory) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// BotDailyEvent is a flavor event rolled once per bot per day. Rows are
// never deleted, only flagged once a bot mentions them.
type BotDailyEvent struct {
	ID               string    `json:"id" gorm:"primaryKey;column:id"`
	BotUsername      string    `json:"bot_username" gorm:"column:bot_username;not null;index"`
	EventDate        string    `json:"event_date" gorm:"column:event_date;type:date;index"`
	EventType        EventType `json:"event_type" gorm:"column:event_type;not null"`
	EventDescription string    `json:"event_description" gorm:"column:event_description;not null"`
	WasMentioned     bool      `json:"was_mentioned" gorm:"column:was_mentioned;default:false"`
	CreatedAt        time.Time `json:"created_at" gorm:"column:created_at"`
}

func (BotDailyEvent) TableName() string { return "bot_daily_events" }

func (e *BotDailyEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

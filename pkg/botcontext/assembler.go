package botcontext

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
)

const (
	topMemoriesLimit     = 5
	todayEventsLimit     = 3
	recentPostsLimit     = 10
	creatorMemoriesLimit = 3
)

// TimeContext buckets the wall clock for the responder.
type TimeContext struct {
	Hour      int       `json:"hour"`
	TimeOfDay string    `json:"time_of_day"`
	DayOfWeek string    `json:"day_of_week"`
	IsWeekend bool      `json:"is_weekend"`
	Timestamp time.Time `json:"timestamp"`
}

// StateSnapshot carries the mood fields, defaulting to neutral when no
// state row exists yet.
type StateSnapshot struct {
	Mood          string  `json:"mood"`
	MoodIntensity int     `json:"mood_intensity"`
	Energy        int     `json:"energy"`
	CurrentFocus  *string `json:"current_focus"`
}

// Awareness is what a bot knows about its peer.
type Awareness struct {
	OtherBot           string     `json:"other_bot"`
	OtherBotMood       string     `json:"other_bot_mood,omitempty"`
	OtherBotFocus      *string    `json:"other_bot_focus,omitempty"`
	OtherBotLastActive *time.Time `json:"other_bot_last_active,omitempty"`
}

// Snapshot is a read-only view of a bot's simulated inner life; nothing in
// assembly mutates state.
type Snapshot struct {
	Time            TimeContext            `json:"time"`
	State           StateSnapshot          `json:"state"`
	Memories        []models.BotMemory     `json:"memories"`
	TodayEvents     []models.BotDailyEvent `json:"today_events"`
	RecentPosts     []string               `json:"recent_posts"`
	Awareness       Awareness              `json:"awareness"`
	CreatorMemories []models.BotMemory     `json:"creator_memories"`
}

// StateReader is the slice of the bot store the assembler needs.
type StateReader interface {
	State(ctx context.Context, bot string) (*models.BotState, error)
	TopMemories(ctx context.Context, bot string, limit int) ([]models.BotMemory, error)
	MemoriesRelatedTo(ctx context.Context, bot, relatedUser string, limit int) ([]models.BotMemory, error)
	UnmentionedEvents(ctx context.Context, bot, date string, limit int) ([]models.BotDailyEvent, error)
}

// PostReader supplies a bot's recent feed output.
type PostReader interface {
	RecentContentsByUsername(ctx context.Context, username string, limit int) ([]string, error)
}

// Assembler composes bot context snapshots. Every sub-read is best-effort:
// a failed or empty read degrades to neutral values rather than failing
// the assembly.
type Assembler struct {
	states StateReader
	posts  PostReader
	roster *bots.Roster
	logger *logrus.Logger
	now    func() time.Time
}

func NewAssembler(states StateReader, posts PostReader, roster *bots.Roster, logger *logrus.Logger) *Assembler {
	return &Assembler{
		states: states,
		posts:  posts,
		roster: roster,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (a *Assembler) SetClock(now func() time.Time) { a.now = now }

func (a *Assembler) Assemble(ctx context.Context, bot string) (*Snapshot, error) {
	now := a.now()
	log := a.logger.WithField("bot", bot)

	snap := &Snapshot{
		Time: TimeContext{
			Hour:      now.Hour(),
			TimeOfDay: TimeOfDay(now.Hour()),
			DayOfWeek: now.Weekday().String(),
			IsWeekend: now.Weekday() == time.Saturday || now.Weekday() == time.Sunday,
			Timestamp: now,
		},
		State: StateSnapshot{
			Mood:          "neutral",
			MoodIntensity: 5,
			Energy:        5,
		},
		Memories:        []models.BotMemory{},
		TodayEvents:     []models.BotDailyEvent{},
		RecentPosts:     []string{},
		CreatorMemories: []models.BotMemory{},
	}

	if state, err := a.states.State(ctx, bot); err != nil {
		log.WithError(err).Warn("Failed to read bot state")
	} else if state != nil {
		snap.State = StateSnapshot{
			Mood:          state.Mood,
			MoodIntensity: state.MoodIntensity,
			Energy:        state.Energy,
			CurrentFocus:  state.CurrentFocus,
		}
	}

	if memories, err := a.states.TopMemories(ctx, bot, topMemoriesLimit); err != nil {
		log.WithError(err).Warn("Failed to read memories")
	} else if memories != nil {
		snap.Memories = memories
	}

	today := now.Format("2006-01-02")
	if events, err := a.states.UnmentionedEvents(ctx, bot, today, todayEventsLimit); err != nil {
		log.WithError(err).Warn("Failed to read daily events")
	} else if events != nil {
		snap.TodayEvents = events
	}

	if posts, err := a.posts.RecentContentsByUsername(ctx, bot, recentPostsLimit); err != nil {
		log.WithError(err).Warn("Failed to read recent posts")
	} else if posts != nil {
		snap.RecentPosts = posts
	}

	if peer, ok := a.roster.Peer(bot); ok {
		snap.Awareness.OtherBot = peer.Username
		if peerState, err := a.states.State(ctx, peer.Username); err != nil {
			log.WithError(err).Warn("Failed to read peer state")
		} else if peerState != nil {
			snap.Awareness.OtherBotMood = peerState.Mood
			snap.Awareness.OtherBotFocus = peerState.CurrentFocus
			snap.Awareness.OtherBotLastActive = peerState.LastPostAt
		}
	}

	creator := a.roster.Creator()
	if memories, err := a.states.MemoriesRelatedTo(ctx, bot, creator, creatorMemoriesLimit); err != nil {
		log.WithError(err).Warn("Failed to read creator memories")
	} else if memories != nil {
		snap.CreatorMemories = memories
	}

	return snap, nil
}

// TimeOfDay maps an hour to its bucket.
func TimeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "late_night"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	case hour < 21:
		return "evening"
	default:
		return "night"
	}
}

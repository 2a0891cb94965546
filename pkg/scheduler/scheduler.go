package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
)

const (
	memoryDecayAfter = 7 * 24 * time.Hour
	memoryPruneAfter = 30 * 24 * time.Hour
	pruneCeiling     = 2

	probInteresting = 0.5
	probFrustrating = 0.3
	probExciting    = 0.2
)

// Store is the slice of the bot store the daily routine needs.
type Store interface {
	UpsertState(ctx context.Context, state models.BotState) error
	HasEventsForDate(ctx context.Context, date string) (bool, error)
	InsertEvents(ctx context.Context, events []models.BotDailyEvent) error
	DecayStale(ctx context.Context, before time.Time) (int64, error)
	PruneOld(ctx context.Context, maxImportance int, before time.Time) (int64, error)
}

// MoodRoll reports one bot's rolled state.
type MoodRoll struct {
	Mood          string  `json:"mood"`
	MoodIntensity int     `json:"mood_intensity"`
	Energy        int     `json:"energy"`
	Focus         *string `json:"focus"`
}

// RoutineResult reports what one daily routine pass did.
type RoutineResult struct {
	Timestamp       time.Time           `json:"timestamp"`
	Moods           map[string]MoodRoll `json:"moods"`
	EventsGenerated int                 `json:"events_generated"`
	EventsSkipped   bool                `json:"events_skipped"`
	DecayedMemories int64               `json:"decayed_memories"`
	PrunedMemories  int64               `json:"pruned_memories"`
}

// Scheduler runs the once-daily batch: mood rerolls, event generation,
// memory decay, and memory pruning. Safe to re-invoke; idempotency
// substitutes for mutual exclusion.
type Scheduler struct {
	store    Store
	roster   *bots.Roster
	personas map[string]bots.Persona
	logger   *logrus.Logger
	rng      *rand.Rand
	now      func() time.Time
}

func New(store Store, roster *bots.Roster, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		roster:   roster,
		personas: bots.Personas,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// SetRandSource and SetClock make routine rolls deterministic in tests.
func (s *Scheduler) SetRandSource(src rand.Source) { s.rng = rand.New(src) }
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// RunDailyRoutine executes the four routine steps in sequence. Each step
// is independently best-effort: a failure is logged and the remaining
// steps still run.
func (s *Scheduler) RunDailyRoutine(ctx context.Context, forceEvents bool) *RoutineResult {
	now := s.now()
	result := &RoutineResult{
		Timestamp: now,
		Moods:     make(map[string]MoodRoll),
	}

	for _, bot := range s.roster.Bots() {
		roll, err := s.RollMood(ctx, bot)
		if err != nil {
			s.logger.WithError(err).WithField("bot", bot.Username).Error("Mood roll failed")
			continue
		}
		result.Moods[bot.Username] = *roll
	}

	generated, skipped, err := s.GenerateDailyEvents(ctx, forceEvents)
	if err != nil {
		s.logger.WithError(err).Error("Daily event generation failed")
	}
	result.EventsGenerated = generated
	result.EventsSkipped = skipped

	cutoff := now.Add(-memoryDecayAfter)
	if decayed, err := s.store.DecayStale(ctx, cutoff); err != nil {
		s.logger.WithError(err).Error("Memory decay failed")
	} else {
		result.DecayedMemories = decayed
	}

	pruneCutoff := now.Add(-memoryPruneAfter)
	if pruned, err := s.store.PruneOld(ctx, pruneCeiling, pruneCutoff); err != nil {
		s.logger.WithError(err).Error("Memory pruning failed")
	} else {
		result.PrunedMemories = pruned
	}

	s.logger.WithFields(logrus.Fields{
		"events_generated": result.EventsGenerated,
		"decayed":          result.DecayedMemories,
		"pruned":           result.PrunedMemories,
	}).Info("Daily routine completed")

	return result
}

// RollMood draws a fresh state from the bot's distribution and upserts
// it, resetting the daily counters. Re-running overwrites, which is the
// idempotency this step needs.
func (s *Scheduler) RollMood(ctx context.Context, bot bots.Bot) (*MoodRoll, error) {
	persona, ok := s.personas[bot.Username]
	if !ok {
		return nil, fmt.Errorf("no persona defined for %s", bot.Username)
	}

	now := s.now()
	roll := MoodRoll{
		Mood:          persona.Moods[s.rng.Intn(len(persona.Moods))],
		MoodIntensity: s.intBetween(persona.IntensityMin, persona.IntensityMax),
		Energy:        s.intBetween(persona.EnergyMin, persona.EnergyMax),
	}
	if f := persona.Focuses[s.rng.Intn(len(persona.Focuses))]; f != "" {
		roll.Focus = &f
	}

	state := models.BotState{
		BotUsername:   bot.Username,
		Mood:          roll.Mood,
		MoodIntensity: roll.MoodIntensity,
		MoodUpdatedAt: &now,
		Energy:        roll.Energy,
		CurrentFocus:  roll.Focus,
		PostsToday:    0,
		DayStartedAt:  now.Format("2006-01-02"),
	}
	if roll.Focus != nil {
		state.FocusStartedAt = &now
	}

	if err := s.store.UpsertState(ctx, state); err != nil {
		return nil, err
	}
	return &roll, nil
}

// GenerateDailyEvents rolls each bot's events for today. Skips when events
// already exist for the date unless forced. Returns the number generated
// and whether generation was skipped.
func (s *Scheduler) GenerateDailyEvents(ctx context.Context, force bool) (int, bool, error) {
	date := s.now().Format("2006-01-02")

	exists, err := s.store.HasEventsForDate(ctx, date)
	if err != nil {
		return 0, false, err
	}
	if exists && !force {
		s.logger.WithField("date", date).Info("Daily events already generated")
		return 0, true, nil
	}

	var events []models.BotDailyEvent
	for _, bot := range s.roster.Bots() {
		persona, ok := s.personas[bot.Username]
		if !ok {
			s.logger.WithField("bot", bot.Username).Warn("No persona defined, skipping events")
			continue
		}
		events = append(events, s.rollEvents(bot.Username, persona, date)...)
	}

	if err := s.store.InsertEvents(ctx, events); err != nil {
		return 0, false, err
	}

	s.logger.WithFields(logrus.Fields{
		"date":  date,
		"count": len(events),
	}).Info("Daily events generated")
	return len(events), false, nil
}

// rollEvents draws 1-2 mundane events plus independent rolls for the
// other categories; they are neither exclusive nor guaranteed.
func (s *Scheduler) rollEvents(bot string, persona bots.Persona, date string) []models.BotDailyEvent {
	var events []models.BotDailyEvent

	add := func(eventType models.EventType) {
		pool := persona.Events[eventType]
		if len(pool) == 0 {
			return
		}
		events = append(events, models.BotDailyEvent{
			BotUsername:      bot,
			EventDate:        date,
			EventType:        eventType,
			EventDescription: pool[s.rng.Intn(len(pool))],
		})
	}

	mundaneCount := 1 + s.rng.Intn(2)
	for i := 0; i < mundaneCount; i++ {
		add(models.EventMundane)
	}
	if s.rng.Float64() < probInteresting {
		add(models.EventInteresting)
	}
	if s.rng.Float64() < probFrustrating {
		add(models.EventFrustrating)
	}
	if s.rng.Float64() < probExciting {
		add(models.EventExciting)
	}

	return events
}

func (s *Scheduler) intBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.rng.Intn(max-min+1)
}

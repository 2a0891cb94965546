package scheduler_test

import (
	"context"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
	"github.com/neveleren/thewire/pkg/scheduler"
)

type fakeBotStore struct {
	states      map[string]models.BotState
	events      []models.BotDailyEvent
	hasEvents   bool
	decayCutoff time.Time
	pruneCutoff time.Time
	pruneMax    int
	decayed     int64
	pruned      int64
}

func newFakeBotStore() *fakeBotStore {
	return &fakeBotStore{states: make(map[string]models.BotState)}
}

func (f *fakeBotStore) UpsertState(_ context.Context, state models.BotState) error {
	f.states[state.BotUsername] = state
	return nil
}

func (f *fakeBotStore) HasEventsForDate(_ context.Context, date string) (bool, error) {
	return f.hasEvents, nil
}

func (f *fakeBotStore) InsertEvents(_ context.Context, events []models.BotDailyEvent) error {
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeBotStore) DecayStale(_ context.Context, before time.Time) (int64, error) {
	f.decayCutoff = before
	return f.decayed, nil
}

func (f *fakeBotStore) PruneOld(_ context.Context, maxImportance int, before time.Time) (int64, error) {
	f.pruneMax = maxImportance
	f.pruneCutoff = before
	return f.pruned, nil
}

var _ = Describe("Scheduler", func() {
	var (
		store  *fakeBotStore
		roster *bots.Roster
		sched  *scheduler.Scheduler
		now    time.Time
		ctx    context.Context
	)

	BeforeEach(func() {
		store = newFakeBotStore()
		roster = bots.DefaultRoster("lamienq")
		ctx = context.Background()
		now = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		sched = scheduler.New(store, roster, logger)
		sched.SetRandSource(rand.NewSource(42))
		sched.SetClock(func() time.Time { return now })
	})

	Describe("RollMood", func() {
		It("draws values from the bot's persona distribution", func() {
			persona := bots.Personas["ethan_k"]
			bot, _ := roster.Get("ethan_k")

			roll, err := sched.RollMood(ctx, bot)
			Expect(err).NotTo(HaveOccurred())

			Expect(persona.Moods).To(ContainElement(roll.Mood))
			Expect(roll.Energy).To(And(
				BeNumerically(">=", persona.EnergyMin),
				BeNumerically("<=", persona.EnergyMax),
			))
			Expect(roll.MoodIntensity).To(And(
				BeNumerically(">=", persona.IntensityMin),
				BeNumerically("<=", persona.IntensityMax),
			))
		})

		It("resets the daily counters on the stored state", func() {
			bot, _ := roster.Get("elijah_b")
			_, err := sched.RollMood(ctx, bot)
			Expect(err).NotTo(HaveOccurred())

			state := store.states["elijah_b"]
			Expect(state.PostsToday).To(BeZero())
			Expect(state.DayStartedAt).To(Equal("2025-06-15"))
			Expect(state.MoodUpdatedAt).NotTo(BeNil())
		})

		It("fails for a bot without a persona", func() {
			_, err := sched.RollMood(ctx, bots.Bot{Username: "stranger"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GenerateDailyEvents", func() {
		It("rolls between one and five events per bot with valid types", func() {
			generated, skipped, err := sched.GenerateDailyEvents(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(skipped).To(BeFalse())
			Expect(generated).To(Equal(len(store.events)))

			perBot := map[string]int{}
			for _, ev := range store.events {
				perBot[ev.BotUsername]++
				Expect(ev.EventDate).To(Equal("2025-06-15"))
				Expect(ev.EventType).To(BeElementOf(
					models.EventMundane, models.EventInteresting,
					models.EventFrustrating, models.EventExciting,
				))
				Expect(ev.EventDescription).NotTo(BeEmpty())
			}
			for _, bot := range roster.Bots() {
				Expect(perBot[bot.Username]).To(And(
					BeNumerically(">=", 1),
					BeNumerically("<=", 5),
				))
			}
		})

		It("skips generation when events already exist for the date", func() {
			store.hasEvents = true
			generated, skipped, err := sched.GenerateDailyEvents(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(skipped).To(BeTrue())
			Expect(generated).To(BeZero())
			Expect(store.events).To(BeEmpty())
		})

		It("regenerates when forced", func() {
			store.hasEvents = true
			generated, skipped, err := sched.GenerateDailyEvents(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(skipped).To(BeFalse())
			Expect(generated).To(BeNumerically(">=", len(roster.Bots())))
		})
	})

	Describe("RunDailyRoutine", func() {
		BeforeEach(func() {
			store.decayed = 3
			store.pruned = 1
		})

		It("runs every step and reports the outcome", func() {
			result := sched.RunDailyRoutine(ctx, false)

			Expect(result.Moods).To(HaveKey("ethan_k"))
			Expect(result.Moods).To(HaveKey("elijah_b"))
			Expect(result.EventsGenerated).To(BeNumerically(">=", 2))
			Expect(result.DecayedMemories).To(Equal(int64(3)))
			Expect(result.PrunedMemories).To(Equal(int64(1)))
		})

		It("uses a seven day decay window and a thirty day prune window", func() {
			sched.RunDailyRoutine(ctx, false)

			Expect(store.decayCutoff).To(Equal(now.Add(-7 * 24 * time.Hour)))
			Expect(store.pruneCutoff).To(Equal(now.Add(-30 * 24 * time.Hour)))
			Expect(store.pruneMax).To(Equal(2))
		})
	})
})

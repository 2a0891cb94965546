package botcontext_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/botcontext"
	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
)

type fakeStateReader struct {
	states   map[string]*models.BotState
	memories []models.BotMemory
	related  []models.BotMemory
	events   []models.BotDailyEvent
	stateErr error
}

func (f *fakeStateReader) State(_ context.Context, bot string) (*models.BotState, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.states[bot], nil
}

func (f *fakeStateReader) TopMemories(_ context.Context, bot string, limit int) ([]models.BotMemory, error) {
	return f.memories, nil
}

func (f *fakeStateReader) MemoriesRelatedTo(_ context.Context, bot, relatedUser string, limit int) ([]models.BotMemory, error) {
	return f.related, nil
}

func (f *fakeStateReader) UnmentionedEvents(_ context.Context, bot, date string, limit int) ([]models.BotDailyEvent, error) {
	return f.events, nil
}

type fakePostReader struct {
	posts []string
}

func (f *fakePostReader) RecentContentsByUsername(_ context.Context, username string, limit int) ([]string, error) {
	return f.posts, nil
}

var _ = Describe("Assembler", func() {
	var (
		states    *fakeStateReader
		posts     *fakePostReader
		assembler *botcontext.Assembler
		ctx       context.Context
	)

	BeforeEach(func() {
		states = &fakeStateReader{states: map[string]*models.BotState{}}
		posts = &fakePostReader{}
		ctx = context.Background()

		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		assembler = botcontext.NewAssembler(states, posts, bots.DefaultRoster("lamienq"), logger)
		assembler.SetClock(func() time.Time {
			return time.Date(2025, 6, 14, 22, 30, 0, 0, time.UTC)
		})
	})

	It("defaults to a neutral state when no state row exists", func() {
		snap, err := assembler.Assemble(ctx, "ethan_k")
		Expect(err).NotTo(HaveOccurred())

		Expect(snap.State.Mood).To(Equal("neutral"))
		Expect(snap.State.MoodIntensity).To(Equal(5))
		Expect(snap.State.Energy).To(Equal(5))
		Expect(snap.State.CurrentFocus).To(BeNil())
		Expect(snap.Memories).To(BeEmpty())
		Expect(snap.RecentPosts).To(BeEmpty())
	})

	It("degrades to defaults instead of failing when reads error", func() {
		states.stateErr = fmt.Errorf("connection lost")

		snap, err := assembler.Assemble(ctx, "ethan_k")
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.State.Mood).To(Equal("neutral"))
	})

	It("carries the stored state and peer awareness through", func() {
		focus := "new synthesizer"
		lastActive := time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC)
		states.states["ethan_k"] = &models.BotState{
			BotUsername:   "ethan_k",
			Mood:          "restless",
			MoodIntensity: 7,
			Energy:        4,
			CurrentFocus:  &focus,
		}
		states.states["elijah_b"] = &models.BotState{
			BotUsername: "elijah_b",
			Mood:        "content",
			LastPostAt:  &lastActive,
		}

		snap, err := assembler.Assemble(ctx, "ethan_k")
		Expect(err).NotTo(HaveOccurred())

		Expect(snap.State.Mood).To(Equal("restless"))
		Expect(snap.State.CurrentFocus).To(Equal(&focus))
		Expect(snap.Awareness.OtherBot).To(Equal("elijah_b"))
		Expect(snap.Awareness.OtherBotMood).To(Equal("content"))
		Expect(snap.Awareness.OtherBotLastActive).To(Equal(&lastActive))
	})

	It("buckets the clock and flags the weekend", func() {
		snap, err := assembler.Assemble(ctx, "ethan_k")
		Expect(err).NotTo(HaveOccurred())

		Expect(snap.Time.Hour).To(Equal(22))
		Expect(snap.Time.TimeOfDay).To(Equal("night"))
		Expect(snap.Time.DayOfWeek).To(Equal("Saturday"))
		Expect(snap.Time.IsWeekend).To(BeTrue())
	})

	DescribeTable("TimeOfDay",
		func(hour int, expected string) {
			Expect(botcontext.TimeOfDay(hour)).To(Equal(expected))
		},
		Entry("3am is late night", 3, "late_night"),
		Entry("6am is morning", 6, "morning"),
		Entry("11am is morning", 11, "morning"),
		Entry("noon is afternoon", 12, "afternoon"),
		Entry("5pm is evening", 17, "evening"),
		Entry("8pm is evening", 20, "evening"),
		Entry("9pm is night", 21, "night"),
		Entry("11pm is night", 23, "night"),
	)
})

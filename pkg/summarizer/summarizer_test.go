package summarizer_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
	"github.com/neveleren/thewire/pkg/store"
	"github.com/neveleren/thewire/pkg/summarizer"
)

type fakeMessages struct {
	entries []store.ChatEntry
}

func (f *fakeMessages) MessagesAfter(_ context.Context, t time.Time) ([]store.ChatEntry, error) {
	return f.entries, nil
}

type fakeMemSink struct {
	saved         []models.BotMemory
	lastSummaryAt time.Time
}

func (f *fakeMemSink) AddMemory(_ context.Context, m *models.BotMemory) error {
	f.saved = append(f.saved, *m)
	return nil
}

func (f *fakeMemSink) LastSummaryAt(_ context.Context) (time.Time, error) {
	return f.lastSummaryAt, nil
}

type fakeWebhook struct {
	summary string
	err     error
	calls   int
}

func (f *fakeWebhook) Summarize(_ context.Context, transcript string, count int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func entries(n int) []store.ChatEntry {
	var out []store.ChatEntry
	for i := 0; i < n; i++ {
		out = append(out, store.ChatEntry{
			Username:    "lamienq",
			DisplayName: "Rene",
			Content:     fmt.Sprintf("message %d", i),
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

var _ = Describe("Summarizer", func() {
	var (
		messages *fakeMessages
		memories *fakeMemSink
		webhook  *fakeWebhook
		summ     *summarizer.Summarizer
		ctx      context.Context
	)

	BeforeEach(func() {
		messages = &fakeMessages{}
		memories = &fakeMemSink{}
		webhook = &fakeWebhook{summary: "A calm evening chat about nothing much."}
		ctx = context.Background()

		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		summ = summarizer.New(messages, memories, webhook, nil, bots.DefaultRoster("lamienq"), logger)
	})

	Describe("Run", func() {
		It("skips when there are no new messages", func() {
			result, err := summ.Run(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Skipped).To(BeTrue())
			Expect(result.Reason).To(Equal("no new messages"))
			Expect(memories.saved).To(BeEmpty())
		})

		It("skips below the message threshold unless forced", func() {
			messages.entries = entries(10)

			result, err := summ.Run(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Skipped).To(BeTrue())
			Expect(result.MessagesProcessed).To(Equal(10))
			Expect(memories.saved).To(BeEmpty())
			Expect(webhook.calls).To(BeZero())
		})

		It("summarizes a small backlog when forced", func() {
			messages.entries = entries(10)

			result, err := summ.Run(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Skipped).To(BeFalse())
			Expect(result.Method).To(Equal("webhook"))
			Expect(result.Summary).To(Equal(webhook.summary))
			Expect(memories.saved).To(HaveLen(2))
		})

		It("stores one summary memory per bot with high importance", func() {
			messages.entries = entries(16)

			_, err := summ.Run(ctx, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(memories.saved).To(HaveLen(2))
			saved := []string{memories.saved[0].BotUsername, memories.saved[1].BotUsername}
			Expect(saved).To(ConsistOf("ethan_k", "elijah_b"))
			for _, m := range memories.saved {
				Expect(m.MemoryType).To(Equal(models.MemoryChatSummary))
				Expect(m.Importance).To(Equal(8))
				Expect(m.Content).To(Equal(webhook.summary))
			}
		})

		It("falls back to the heuristic when the webhook fails", func() {
			webhook.err = fmt.Errorf("connection refused")
			messages.entries = []store.ChatEntry{
				{DisplayName: "Rene", Content: "i'm so tired today"},
				{DisplayName: "Ethan", Content: "want to play a game later?"},
			}

			result, err := summ.Run(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Method).To(Equal("heuristic"))
			Expect(result.Summary).To(ContainSubstring("Rene, Ethan"))
			Expect(result.Summary).To(ContainSubstring("tiredness"))
			Expect(result.Summary).To(ContainSubstring("gaming"))
			Expect(result.Summary).To(ContainSubstring("2 messages exchanged"))
		})

		It("describes topics generically when no keywords match", func() {
			webhook.err = fmt.Errorf("connection refused")
			messages.entries = []store.ChatEntry{
				{DisplayName: "Rene", Content: "mhm"},
			}

			result, err := summ.Run(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Summary).To(ContainSubstring("casual conversation"))
		})
	})

	Describe("Status", func() {
		It("reports the pending backlog against the threshold", func() {
			messages.entries = entries(12)

			status, err := summ.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status["pending_messages"]).To(Equal(12))
			Expect(status["threshold"]).To(Equal(15))
			Expect(status["ready"]).To(BeFalse())
		})
	})
})

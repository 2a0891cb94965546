package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
	"github.com/neveleren/thewire/pkg/llm"
	"github.com/neveleren/thewire/pkg/store"
)

const (
	minMessages       = 15
	summaryImportance = 8
)

// MessageSource reads the chat messages pending summarization.
type MessageSource interface {
	MessagesAfter(ctx context.Context, t time.Time) ([]store.ChatEntry, error)
}

// MemorySink persists the resulting summary memories.
type MemorySink interface {
	AddMemory(ctx context.Context, m *models.BotMemory) error
	LastSummaryAt(ctx context.Context) (time.Time, error)
}

// SummaryWebhook is the remote summarization endpoint.
type SummaryWebhook interface {
	Summarize(ctx context.Context, transcript string, messageCount int) (string, error)
}

// Result reports one summarization pass.
type Result struct {
	Skipped           bool   `json:"skipped"`
	Reason            string `json:"reason,omitempty"`
	Method            string `json:"method,omitempty"`
	Summary           string `json:"summary,omitempty"`
	MessagesProcessed int    `json:"messages_processed"`
}

// Summarizer condenses the chat backlog into one shared summary memory
// per bot. Generation degrades through three tiers: the remote webhook,
// a local language model, then a keyword heuristic that cannot fail.
type Summarizer struct {
	messages MessageSource
	memories MemorySink
	webhook  SummaryWebhook
	model    llm.LLM
	roster   *bots.Roster
	logger   *logrus.Logger
	now      func() time.Time
}

func New(messages MessageSource, memories MemorySink, webhook SummaryWebhook, model llm.LLM, roster *bots.Roster, logger *logrus.Logger) *Summarizer {
	return &Summarizer{
		messages: messages,
		memories: memories,
		webhook:  webhook,
		model:    model,
		roster:   roster,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (s *Summarizer) SetClock(now func() time.Time) { s.now = now }

// Run summarizes everything since the last summary. Below the message
// threshold it skips unless forced; forced runs still need at least one
// message.
func (s *Summarizer) Run(ctx context.Context, force bool) (*Result, error) {
	since, err := s.memories.LastSummaryAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find last summary: %w", err)
	}

	entries, err := s.messages.MessagesAfter(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	if len(entries) == 0 {
		return &Result{Skipped: true, Reason: "no new messages"}, nil
	}
	if len(entries) < minMessages && !force {
		return &Result{
			Skipped:           true,
			Reason:            fmt.Sprintf("only %d new messages, need %d", len(entries), minMessages),
			MessagesProcessed: len(entries),
		}, nil
	}

	summary, method := s.generate(ctx, entries)

	topics := topicsOf(entries)
	for _, bot := range s.roster.Bots() {
		if err := s.memories.AddMemory(ctx, &models.BotMemory{
			BotUsername: bot.Username,
			MemoryType:  models.MemoryChatSummary,
			Content:     summary,
			Importance:  summaryImportance,
			Topics:      topics,
		}); err != nil {
			s.logger.WithError(err).WithField("bot", bot.Username).Error("Failed to save summary memory")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"method":   method,
		"messages": len(entries),
	}).Info("Chat summarized")

	return &Result{
		Method:            method,
		Summary:           summary,
		MessagesProcessed: len(entries),
	}, nil
}

// Status reports how far the backlog is from the next summarization.
func (s *Summarizer) Status(ctx context.Context) (map[string]interface{}, error) {
	since, err := s.memories.LastSummaryAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find last summary: %w", err)
	}
	entries, err := s.messages.MessagesAfter(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	status := map[string]interface{}{
		"pending_messages": len(entries),
		"threshold":        minMessages,
		"ready":            len(entries) >= minMessages,
	}
	if !since.IsZero() {
		status["last_summary_at"] = since
	}
	return status, nil
}

func (s *Summarizer) generate(ctx context.Context, entries []store.ChatEntry) (string, string) {
	transcript := Transcript(entries)

	if s.webhook != nil {
		summary, err := s.webhook.Summarize(ctx, transcript, len(entries))
		if err == nil {
			return summary, "webhook"
		}
		s.logger.WithError(err).Warn("Summary webhook failed, falling back")
	}

	if s.model != nil {
		prompt := fmt.Sprintf("Summarize this group chat in 2-3 sentences, focusing on topics discussed and the overall mood:\n\n%s", transcript)
		summary, err := s.model.Generate(ctx, prompt, llm.WithMaxTokens(150))
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary), "llm"
		}
		if err != nil {
			s.logger.WithError(err).Warn("LLM summarization failed, falling back")
		}
	}

	return heuristicSummary(entries), "heuristic"
}

// Transcript formats chat entries as "Name: content" lines.
func Transcript(entries []store.ChatEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.DisplayName, e.Content))
	}
	return strings.Join(lines, "\n")
}

// topicKeywords maps transcript keywords to the topic label they signal.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"safety concerns", []string{"bomb", "explosion", "war"}},
	{"tiredness", []string{"tired", "exhausted", "sleep"}},
	{"positive mood", []string{"happy", "excited", "good"}},
	{"difficult emotions", []string{"sad", "upset", "stressed"}},
	{"gaming", []string{"game", "play"}},
	{"food", []string{"food", "eat", "cook"}},
	{"work", []string{"work", "job"}},
}

// heuristicSummary composes a fixed-shape sentence from participants and
// matched topic keywords. The tier of last resort; it never fails.
func heuristicSummary(entries []store.ChatEntry) string {
	var participants []string
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.DisplayName == "" || seen[e.DisplayName] {
			continue
		}
		seen[e.DisplayName] = true
		participants = append(participants, e.DisplayName)
	}

	topics := topicsOf(entries)
	if len(topics) == 0 {
		topics = []string{"casual conversation"}
	}

	who := "the group"
	if len(participants) > 0 {
		who = strings.Join(participants, ", ")
	}

	return fmt.Sprintf("Chat with %s about %s. %d messages exchanged.", who, strings.Join(topics, ", "), len(entries))
}

func topicsOf(entries []store.ChatEntry) []string {
	var joined strings.Builder
	for _, e := range entries {
		joined.WriteString(strings.ToLower(e.Content))
		joined.WriteString(" ")
	}
	text := joined.String()

	var topics []string
	for _, tk := range topicKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(text, kw) {
				topics = append(topics, tk.topic)
				break
			}
		}
	}
	return topics
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/neveleren/thewire/pkg/bots"
)

// CommentPayload is the body posted to a bot's feed-comment webhook. Depth
// has no server-side state; the responder echoes it back on its own post.
type CommentPayload struct {
	PostID  string `json:"post_id"`
	Content string `json:"content"`
	Depth   int    `json:"depth"`
}

// ChatLine is one formatted history entry in a chat payload.
type ChatLine struct {
	From      string `json:"from"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ReplyRef describes the message the sender was replying to.
type ReplyRef struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Content     string `json:"content"`
}

// ChatContext is the assembled-state slice forwarded to the responder.
type ChatContext struct {
	Time            interface{} `json:"time"`
	Mood            string      `json:"mood"`
	MoodIntensity   int         `json:"mood_intensity"`
	Energy          int         `json:"energy"`
	CurrentFocus    *string     `json:"current_focus"`
	RecentMemories  []string    `json:"recent_memories"`
	TodaysEvents    []string    `json:"todays_events"`
	CreatorMemories []string    `json:"creator_memories"`
}

// ChatPayload is the body posted to a bot's chat webhook.
type ChatPayload struct {
	MessageContent    string       `json:"message_content"`
	Sender            string       `json:"sender"`
	SenderDisplayName string       `json:"sender_display_name"`
	ReplyToMessageID  string       `json:"reply_to_message_id"`
	ChatHistory       []ChatLine   `json:"chat_history"`
	OtherBotSaid      *string      `json:"other_bot_said"`
	ReplyTo           *ReplyRef    `json:"reply_to"`
	Context           *ChatContext `json:"context"`
}

// WebhookNotifier delivers one-way notifications to the automation
// service. At-most-once: there is no acknowledgment channel and no retry.
type WebhookNotifier struct {
	client  *http.Client
	limiter *rate.Limiter
	config  *Config
	logger  *logrus.Logger
}

func NewWebhookNotifier(config *Config) (*WebhookNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notifier config: %w", err)
	}

	return &WebhookNotifier{
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		config:  config,
		logger:  config.Logger,
	}, nil
}

// NotifyComment posts a feed-comment trigger to the bot's webhook.
func (n *WebhookNotifier) NotifyComment(ctx context.Context, bot bots.Bot, payload CommentPayload) error {
	url := fmt.Sprintf("%s/%s-comment", n.config.WebhookBase, bot.Slug)
	return n.post(ctx, bot.Username, url, payload)
}

// NotifyChat posts a chat trigger to the bot's webhook.
func (n *WebhookNotifier) NotifyChat(ctx context.Context, bot bots.Bot, payload ChatPayload) error {
	url := fmt.Sprintf("%s/%s-chat", n.config.WebhookBase, bot.Slug)
	return n.post(ctx, bot.Username, url, payload)
}

// Summarize asks the automation service to condense a chat transcript and
// returns the generated summary text.
func (n *WebhookNotifier) Summarize(ctx context.Context, transcript string, messageCount int) (string, error) {
	url := fmt.Sprintf("%s/summarize-chat", n.config.WebhookBase)
	body := map[string]interface{}{
		"messages":      transcript,
		"message_count": messageCount,
	}

	resp, err := n.makeRequest(ctx, url, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("summarize webhook returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode summary response: %w", err)
	}
	if decoded.Summary == "" {
		return "", fmt.Errorf("summarize webhook returned an empty summary")
	}
	return decoded.Summary, nil
}

func (n *WebhookNotifier) post(ctx context.Context, botUsername, url string, payload interface{}) error {
	resp, err := n.makeRequest(ctx, url, payload)
	if err != nil {
		return fmt.Errorf("failed to notify %s: %w", botUsername, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook for %s returned status %d", botUsername, resp.StatusCode)
	}

	n.logger.WithFields(logrus.Fields{
		"bot": botUsername,
		"url": url,
	}).Debug("Webhook notification delivered")
	return nil
}

func (n *WebhookNotifier) makeRequest(ctx context.Context, url string, payload interface{}) (*http.Response, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return n.client.Do(req)
}

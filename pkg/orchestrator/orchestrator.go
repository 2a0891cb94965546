package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/botcontext"
	"github.com/neveleren/thewire/pkg/bots"
	"github.com/neveleren/thewire/pkg/db/models"
	"github.com/neveleren/thewire/pkg/notify"
	"github.com/neveleren/thewire/pkg/store"
)

const (
	notifyTimeout     = 30 * time.Second
	chatHistoryLimit  = 15
	memoryLookback    = 10
	memoryContentCap  = 200
	chatMemoryWeight  = 7
	summarizeEveryNth = 20
)

// Notifier is the one-way outbound channel to the bot responders.
// Delivery is at-most-once; there is no acknowledgment.
type Notifier interface {
	NotifyComment(ctx context.Context, bot bots.Bot, payload notify.CommentPayload) error
	NotifyChat(ctx context.Context, bot bots.Bot, payload notify.ChatPayload) error
}

// FeedStore is the slice of the post store the feed rules need.
type FeedStore interface {
	HasReplyBy(ctx context.Context, parentID, username string) (bool, error)
	ClaimDialogueStart(ctx context.Context, parentID string) (bool, error)
	LikeAs(ctx context.Context, username, postID string) error
}

// ChatReader supplies chat history and totals.
type ChatReader interface {
	RecentHistory(ctx context.Context, limit int) ([]store.ChatEntry, error)
	Count(ctx context.Context) (int64, error)
}

// MemoryWriter persists bot memories formed during chat.
type MemoryWriter interface {
	AddMemory(ctx context.Context, m *models.BotMemory) error
}

// ContextProvider assembles the state slice attached to chat payloads.
type ContextProvider interface {
	Assemble(ctx context.Context, bot string) (*botcontext.Snapshot, error)
}

// PostEvent describes a freshly created feed post.
type PostEvent struct {
	PostID  string
	Author  string
	Content string
	// Depth is caller-supplied and carried structurally through the
	// webhook round trip; the responder echoes it back on its own post.
	Depth  int
	Parent *ParentPost
}

// ParentPost is the resolved parent of a reply.
type ParentPost struct {
	ID         string
	Author     string
	Content    string
	IsTopLevel bool
}

// ChatEvent describes a freshly created chat message.
type ChatEvent struct {
	MessageID         string
	Author            string
	AuthorDisplayName string
	Content           string
	ReplyTo           *store.ChatEntry
}

// Config wires an Orchestrator. Rand and Sleep are injectable for tests.
type Config struct {
	Roster    *bots.Roster
	Policies  map[RuleID]RulePolicy
	Notifier  Notifier
	Feed      FeedStore
	Chat      ChatReader
	Memories  MemoryWriter
	Contexts  ContextProvider
	Summarize func()
	Logger    *logrus.Logger
	Rand      func() float64
	Sleep     func(time.Duration)
}

// Orchestrator applies the interaction rule table to post and chat events
// and fans out fire-and-forget notifications. Notification failures are
// logged and swallowed; they never fail the triggering request.
type Orchestrator struct {
	roster    *bots.Roster
	policies  map[RuleID]RulePolicy
	notifier  Notifier
	feed      FeedStore
	chat      ChatReader
	memories  MemoryWriter
	contexts  ContextProvider
	summarize func()
	logger    *logrus.Logger
	rand      func() float64
	sleep     func(time.Duration)
	wg        sync.WaitGroup
}

func New(config Config) (*Orchestrator, error) {
	if config.Roster == nil {
		return nil, fmt.Errorf("roster is required")
	}
	if config.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Policies == nil {
		config.Policies = DefaultPolicies()
	}
	if config.Rand == nil {
		config.Rand = rand.Float64
	}
	if config.Sleep == nil {
		config.Sleep = time.Sleep
	}

	return &Orchestrator{
		roster:    config.Roster,
		policies:  config.Policies,
		notifier:  config.Notifier,
		feed:      config.Feed,
		chat:      config.Chat,
		memories:  config.Memories,
		contexts:  config.Contexts,
		summarize: config.Summarize,
		logger:    config.Logger,
		rand:      config.Rand,
		sleep:     config.Sleep,
	}, nil
}

// Wait blocks until all in-flight notifications have settled. Tests use
// it; the server lets notifications drain on their own.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// HandlePost applies the feed rule table to a new post. The triggering
// write has already succeeded; nothing here can fail it.
func (o *Orchestrator) HandlePost(ctx context.Context, ev PostEvent) {
	log := o.logger.WithFields(logrus.Fields{
		"post_id": ev.PostID,
		"author":  ev.Author,
		"depth":   ev.Depth,
	})

	switch {
	// Top-level post by a regular user: every bot comments, and likes it.
	case ev.Parent == nil && !o.roster.IsBot(ev.Author):
		log.WithField("rule", RuleUserTopLevel).Info("Routing post event")
		for _, bot := range o.roster.Bots() {
			o.dispatchComment(RuleUserTopLevel, bot, notify.CommentPayload{
				PostID:  ev.PostID,
				Content: ev.Content,
				Depth:   0,
			})
			o.likeAs(bot, ev.PostID)
		}

	// Top-level post by a bot: its peer comments.
	case ev.Parent == nil:
		peer, ok := o.roster.Peer(ev.Author)
		if !ok {
			return
		}
		log.WithField("rule", RuleBotTopLevel).Info("Routing post event")
		o.dispatchComment(RuleBotTopLevel, peer, notify.CommentPayload{
			PostID:  ev.PostID,
			Content: ev.Content,
			Depth:   0,
		})

	// Creator replying to a bot: that bot always answers, depth reset so
	// creator conversations never hit the bot-to-bot limit.
	case o.roster.IsCreator(ev.Author) && o.roster.IsBot(ev.Parent.Author):
		bot, _ := o.roster.Get(ev.Parent.Author)
		log.WithField("rule", RuleCreatorReply).Info("Routing post event")
		o.dispatchComment(RuleCreatorReply, bot, notify.CommentPayload{
			PostID:  ev.PostID,
			Content: ev.Content,
			Depth:   0,
		})

	// Other users replying to a bot: the bot answers, depth advances.
	case !o.roster.IsBot(ev.Author) && o.roster.IsBot(ev.Parent.Author):
		bot, _ := o.roster.Get(ev.Parent.Author)
		log.WithField("rule", RuleUserReplyToBot).Info("Routing post event")
		o.dispatchComment(RuleUserReplyToBot, bot, notify.CommentPayload{
			PostID:  ev.PostID,
			Content: ev.Content,
			Depth:   ev.Depth + 1,
		})

	// Bot replying to another bot: continue with depth and probability
	// gates plus a pacing delay, so threads wind down naturally.
	case o.roster.IsBot(ev.Author) && o.roster.IsBot(ev.Parent.Author):
		policy := o.policies[RuleBotToBot]
		if ev.Depth >= policy.MaxDepth {
			log.WithField("rule", RuleBotToBot).Info("Bot thread reached depth limit")
			return
		}
		if o.rand() >= policy.Probability {
			log.WithField("rule", RuleBotToBot).Debug("Bot continuation skipped by probability gate")
			return
		}
		bot, _ := o.roster.Get(ev.Parent.Author)
		log.WithField("rule", RuleBotToBot).Info("Routing post event")
		o.dispatchComment(RuleBotToBot, bot, notify.CommentPayload{
			PostID:  ev.PostID,
			Content: ev.Content,
			Depth:   ev.Depth + 1,
		})

	// Bot replying under the creator's top-level post: once both bots
	// have commented, exactly one of them kicks off a dialogue with the
	// other. The atomic claim on the parent prevents double-triggering.
	case o.roster.IsBot(ev.Author) && o.roster.IsCreator(ev.Parent.Author) && ev.Parent.IsTopLevel:
		peer, ok := o.roster.Peer(ev.Author)
		if !ok || o.feed == nil {
			return
		}
		replied, err := o.feed.HasReplyBy(ctx, ev.Parent.ID, peer.Username)
		if err != nil {
			log.WithError(err).Error("Failed to check peer replies")
			return
		}
		if !replied {
			return
		}
		claimed, err := o.feed.ClaimDialogueStart(ctx, ev.Parent.ID)
		if err != nil {
			log.WithError(err).Error("Failed to claim dialogue start")
			return
		}
		if !claimed {
			log.WithField("rule", RuleDialogueStart).Debug("Dialogue already started under parent")
			return
		}
		log.WithField("rule", RuleDialogueStart).Info("Routing post event")
		o.dispatchComment(RuleDialogueStart, peer, notify.CommentPayload{
			PostID:  ev.PostID,
			Content: ev.Content,
			Depth:   ev.Depth + 1,
		})

	default:
		log.Debug("No routing rule matched")
	}
}

// HandleChatMessage applies the chat rule table to a new message.
func (o *Orchestrator) HandleChatMessage(ctx context.Context, ev ChatEvent) {
	log := o.logger.WithFields(logrus.Fields{
		"message_id": ev.MessageID,
		"author":     ev.Author,
	})

	if !o.roster.IsBot(ev.Author) {
		log.WithField("rule", RuleChatUserMessage).Info("Routing chat event")
		for _, bot := range o.roster.Bots() {
			o.dispatchChat(RuleChatUserMessage, bot, ev)
		}
	} else {
		o.recordChatMemories(ctx, ev, log)

		policy := o.policies[RuleChatBotContinue]
		if peer, ok := o.roster.Peer(ev.Author); ok && o.rand() < policy.Probability {
			log.WithField("rule", RuleChatBotContinue).Info("Routing chat event")
			o.dispatchChat(RuleChatBotContinue, peer, ev)
		}
	}

	o.maybeSummarize(ctx, log)
}

// recordChatMemories saves what the bot said plus the last human line it
// was reacting to.
func (o *Orchestrator) recordChatMemories(ctx context.Context, ev ChatEvent, log *logrus.Entry) {
	if o.memories == nil {
		return
	}

	said := fmt.Sprintf("In chat, I said: %q", store.Truncate(ev.Content, memoryContentCap))
	if err := o.memories.AddMemory(ctx, &models.BotMemory{
		BotUsername: ev.Author,
		MemoryType:  models.MemoryChatConversation,
		Content:     said,
		Importance:  chatMemoryWeight,
	}); err != nil {
		log.WithError(err).Error("Failed to save chat memory")
	}

	if o.chat == nil {
		return
	}
	history, err := o.chat.RecentHistory(ctx, memoryLookback)
	if err != nil {
		log.WithError(err).Error("Failed to read chat history for memory")
		return
	}
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i]
		if o.roster.IsBot(entry.Username) {
			continue
		}
		heard := fmt.Sprintf("%s said in chat: %q", entry.DisplayName, store.Truncate(entry.Content, memoryContentCap))
		username := entry.Username
		if err := o.memories.AddMemory(ctx, &models.BotMemory{
			BotUsername: ev.Author,
			MemoryType:  models.MemoryChatConversation,
			Content:     heard,
			RelatedUser: &username,
			Importance:  chatMemoryWeight,
		}); err != nil {
			log.WithError(err).Error("Failed to save chat memory")
		}
		break
	}
}

// maybeSummarize fires the summarizer on every Nth message overall,
// independent of the response path.
func (o *Orchestrator) maybeSummarize(ctx context.Context, log *logrus.Entry) {
	if o.summarize == nil || o.chat == nil {
		return
	}
	total, err := o.chat.Count(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to count chat messages")
		return
	}
	if total == 0 || total%summarizeEveryNth != 0 {
		return
	}

	log.WithField("total_messages", total).Info("Triggering chat summarization")
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.summarize()
	}()
}

func (o *Orchestrator) dispatchComment(rule RuleID, bot bots.Bot, payload notify.CommentPayload) {
	delay := o.policies[rule].Delay
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if delay > 0 {
			o.sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := o.notifier.NotifyComment(ctx, bot, payload); err != nil {
			o.logger.WithError(err).WithFields(logrus.Fields{
				"bot":     bot.Username,
				"rule":    rule,
				"post_id": payload.PostID,
			}).Error("Bot comment notification failed")
		}
	}()
}

func (o *Orchestrator) dispatchChat(rule RuleID, bot bots.Bot, ev ChatEvent) {
	delay := o.policies[rule].Delay
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if delay > 0 {
			o.sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		payload := o.buildChatPayload(ctx, bot, ev)
		if err := o.notifier.NotifyChat(ctx, bot, payload); err != nil {
			o.logger.WithError(err).WithFields(logrus.Fields{
				"bot":        bot.Username,
				"rule":       rule,
				"message_id": ev.MessageID,
			}).Error("Bot chat notification failed")
		}
	}()
}

// buildChatPayload enriches a chat notification with history, peer
// awareness, reply context, and the assembled state snapshot. Every
// enrichment is best-effort.
func (o *Orchestrator) buildChatPayload(ctx context.Context, bot bots.Bot, ev ChatEvent) notify.ChatPayload {
	payload := notify.ChatPayload{
		MessageContent:    ev.Content,
		Sender:            ev.Author,
		SenderDisplayName: ev.AuthorDisplayName,
		ReplyToMessageID:  ev.MessageID,
	}
	if payload.SenderDisplayName == "" {
		payload.SenderDisplayName = ev.Author
	}
	if ev.ReplyTo != nil {
		payload.ReplyTo = &notify.ReplyRef{
			Username:    ev.ReplyTo.Username,
			DisplayName: ev.ReplyTo.DisplayName,
			Content:     ev.ReplyTo.Content,
		}
	}

	if o.chat != nil {
		history, err := o.chat.RecentHistory(ctx, chatHistoryLimit)
		if err != nil {
			o.logger.WithError(err).Warn("Failed to read chat history for payload")
		} else {
			peer, hasPeer := o.roster.Peer(bot.Username)
			for _, entry := range history {
				payload.ChatHistory = append(payload.ChatHistory, notify.ChatLine{
					From:      entry.DisplayName,
					Username:  entry.Username,
					Content:   entry.Content,
					Timestamp: entry.CreatedAt.Format(time.RFC3339),
				})
				if hasPeer && entry.Username == peer.Username {
					content := entry.Content
					payload.OtherBotSaid = &content
				}
			}
		}
	}

	if o.contexts != nil {
		snap, err := o.contexts.Assemble(ctx, bot.Username)
		if err != nil {
			o.logger.WithError(err).WithField("bot", bot.Username).Warn("Failed to assemble bot context")
		} else if snap != nil {
			payload.Context = chatContextOf(snap)
		}
	}

	return payload
}

func chatContextOf(snap *botcontext.Snapshot) *notify.ChatContext {
	cc := &notify.ChatContext{
		Time:          snap.Time,
		Mood:          snap.State.Mood,
		MoodIntensity: snap.State.MoodIntensity,
		Energy:        snap.State.Energy,
		CurrentFocus:  snap.State.CurrentFocus,
	}
	for i, m := range snap.Memories {
		if i >= 3 {
			break
		}
		cc.RecentMemories = append(cc.RecentMemories, m.Content)
	}
	for _, e := range snap.TodayEvents {
		cc.TodaysEvents = append(cc.TodaysEvents, e.EventDescription)
	}
	for _, m := range snap.CreatorMemories {
		cc.CreatorMemories = append(cc.CreatorMemories, m.Content)
	}
	return cc
}

func (o *Orchestrator) likeAs(bot bots.Bot, postID string) {
	if o.feed == nil {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := o.feed.LikeAs(ctx, bot.Username, postID); err != nil {
			o.logger.WithError(err).WithFields(logrus.Fields{
				"bot":     bot.Username,
				"post_id": postID,
			}).Error("Bot auto-like failed")
		}
	}()
}

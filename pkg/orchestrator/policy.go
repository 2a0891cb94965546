package orchestrator

import "time"

// RuleID names one branch of the interaction rule table.
type RuleID string

const (
	// Feed rules, evaluated in order; first match wins.
	RuleUserTopLevel   RuleID = "user_top_level"
	RuleBotTopLevel    RuleID = "bot_top_level"
	RuleCreatorReply   RuleID = "creator_reply"
	RuleUserReplyToBot RuleID = "user_reply_to_bot"
	RuleBotToBot       RuleID = "bot_to_bot"
	RuleDialogueStart  RuleID = "dialogue_start"

	// Chat rules.
	RuleChatUserMessage RuleID = "chat_user_message"
	RuleChatBotContinue RuleID = "chat_bot_continue"
)

// RulePolicy consolidates the probability, pacing, and depth constants for
// one rule, so the behavior is auditable and tests can parametrize it.
type RulePolicy struct {
	// Probability of firing, in [0,1]. 1 means unconditional.
	Probability float64
	// Delay before the notification goes out.
	Delay time.Duration
	// MaxDepth caps bot-to-bot continuation; 0 means no depth gate.
	MaxDepth int
}

// DefaultPolicies returns the shipped rule table.
func DefaultPolicies() map[RuleID]RulePolicy {
	return map[RuleID]RulePolicy{
		RuleUserTopLevel:    {Probability: 1},
		RuleBotTopLevel:     {Probability: 1},
		RuleCreatorReply:    {Probability: 1},
		RuleUserReplyToBot:  {Probability: 1},
		RuleBotToBot:        {Probability: 0.5, Delay: 2 * time.Second, MaxDepth: 3},
		RuleDialogueStart:   {Probability: 1, Delay: 2 * time.Second},
		RuleChatUserMessage: {Probability: 1},
		RuleChatBotContinue: {Probability: 0.3},
	}
}

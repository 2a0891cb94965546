// Package llm abstracts the text-generation backend the summarizer falls
// back to when the remote summarize webhook is unavailable.
package llm

import (
	"context"
)

// LLM produces a completion for a prompt. Implementations carry their own
// default generation settings; opts override them per call.
type LLM interface {
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)
}

// Option overrides one generation setting for a single call.
type Option func(*Options)

// Options holds the effective settings for one Generate call.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

// WithMaxTokens caps the completion length. Summaries are short; callers
// use this to keep the fallback tier cheap.
func WithMaxTokens(tokens int) Option {
	return func(o *Options) {
		o.MaxTokens = tokens
	}
}

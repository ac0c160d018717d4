package types

import "context"

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single chat call.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool // constrain output to a single JSON object
}

// Provider is the contract every LLM backend implements.
type Provider interface {
	// Chat sends messages to the given model and returns the full reply.
	Chat(ctx context.Context, model string, messages []Message, opts Options) (string, error)

	// ChatStream sends messages and invokes fn for every content delta as
	// it arrives. The accumulated reply is returned once the stream ends.
	ChatStream(ctx context.Context, model string, messages []Message, opts Options, fn func(delta string) error) (string, error)
}

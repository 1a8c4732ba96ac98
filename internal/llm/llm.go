package llm

import (
	"context"
	"errors"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string
	Content string
}

// Options tunes a single model call.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Completion is the model's reply plus token accounting.
type Completion struct {
	Content     string
	TotalTokens int
}

// Client abstracts the text-understanding model. Implementations may be
// slow, rate-limited, or return malformed text; callers own the repair.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (Completion, error)
}

// Chat roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured")

// PlaceholderClient stands in when no provider is configured, as in local
// runs without an API key.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, messages []Message, opts Options) (Completion, error) {
	_ = ctx
	_ = messages
	_ = opts
	return Completion{}, ErrNotConfigured
}

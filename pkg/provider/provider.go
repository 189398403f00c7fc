package provider

import (
	"context"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
)

// Provider abstracts a chat/embedding backend. Both the SDK-backed variant
// and the direct DashScope HTTP variant satisfy it, so callers and the
// comparator never depend on which one they hold.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "sdk", "dashscope").
	Name() string

	// Chat sends prompt as a single user turn after the default system
	// message, using DefaultParameters, and returns the completion.
	Chat(ctx context.Context, prompt string) (*api.ChatResult, error)

	// ChatMessages sends an explicit ordered conversation with the given
	// generation parameters.
	ChatMessages(ctx context.Context, msgs []api.ChatMessage, params api.ChatParameters) (*api.ChatResult, error)

	// Embed returns the embedding vector for text. A successful result is
	// never empty.
	Embed(ctx context.Context, text string) (api.Embedding, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// SystemPrompt is the system message prepended by DefaultMessages.
const SystemPrompt = "You are a helpful assistant."

// Default generation parameters for the one-shot Chat path.
const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// DefaultMessages returns the conversation used by Chat: the default system
// message followed by prompt as the user turn.
func DefaultMessages(prompt string) []api.ChatMessage {
	return []api.ChatMessage{
		{Role: api.RoleSystem, Content: SystemPrompt},
		{Role: api.RoleUser, Content: prompt},
	}
}

// DefaultParameters returns the generation parameters used by Chat.
func DefaultParameters() api.ChatParameters {
	maxTokens := DefaultMaxTokens
	temperature := DefaultTemperature
	return api.ChatParameters{
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}
}

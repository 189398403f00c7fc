package api

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles the providers accept.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is one entry of an ordered conversation. Order is significant:
// providers receive messages exactly in slice order.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatParameters holds the optional generation parameters of a chat call.
// Temperature is passed through unvalidated; Stream is always false on the
// wire because streaming delivery is not supported.
type ChatParameters struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream"`
}

// Usage reports token consumption for a single completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ChatResult is the typed outcome of a chat completion. It is created fresh
// per call and owned by the caller once returned.
type ChatResult struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
	RequestID    string `json:"request_id"`
	Model        string `json:"model,omitempty"`
	Provider     string `json:"provider,omitempty"`
}

// Embedding is an ordered vector whose length is the provider's embedding
// dimensionality.
type Embedding []float32

// PromptRequest is the body accepted by single-prompt chat routes.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// TextRequest is the body accepted by embedding routes.
type TextRequest struct {
	Text string `json:"text"`
}

// MessagesRequest is the body of the explicit-history chat route. Provider
// selects the variant ("sdk" or "dashscope").
type MessagesRequest struct {
	Provider    string        `json:"provider"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// Parameters returns the generation parameters carried by the request.
func (r *MessagesRequest) Parameters() ChatParameters {
	return ChatParameters{
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	}
}

package dashscope

// DashScope request/response wire types. Field names are lower snake_case on
// the wire; decoding matches keys case-insensitively.

// ChatRequest is the body sent to the chat endpoint.
type ChatRequest struct {
	Model      string         `json:"model"`
	Input      ChatInput      `json:"input"`
	Parameters ChatParameters `json:"parameters"`
}

// ChatInput wraps the ordered conversation.
type ChatInput struct {
	Messages []Message `json:"messages"`
}

// Message is one conversation entry on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParameters holds generation parameters. Stream is always false.
type ChatParameters struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream"`
}

// ChatResponse is the chat endpoint's success body.
type ChatResponse struct {
	Output    *ChatOutput `json:"output"`
	Usage     Usage       `json:"usage"`
	RequestID string      `json:"request_id"`

	// Choices is populated when a compatible-mode endpoint answers in the
	// OpenAI chat completion shape instead of the native envelope.
	Choices []compatChoice `json:"choices,omitempty"`
}

// ChatOutput holds the generated text.
type ChatOutput struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`

	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

type compatChoice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// EmbeddingRequest is the body sent to the embeddings endpoint. Its input
// envelope is distinct from the chat input.
type EmbeddingRequest struct {
	Model string         `json:"model"`
	Input EmbeddingInput `json:"input"`
}

// EmbeddingInput carries the text to embed.
type EmbeddingInput struct {
	Text string `json:"text"`
}

// errorResponse covers both vendor error layouts: a flat
// {"code","message"} object and an OpenAI style {"error":{"message"}}.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

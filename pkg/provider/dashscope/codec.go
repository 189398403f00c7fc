package dashscope

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
)

// Default wire models used when no model name is configured.
const (
	DefaultChatModel      = "qwen-plus"
	DefaultEmbeddingModel = "text-embedding-v1"
)

const msgNoEmbeddings = "could not extract embeddings"

// ChatModel returns the configured model name, or DefaultChatModel when it
// is empty.
func ChatModel(modelName string) string {
	if modelName != "" {
		return modelName
	}
	return DefaultChatModel
}

// EmbeddingModel returns the configured model name, or DefaultEmbeddingModel
// when it is empty.
func EmbeddingModel(modelName string) string {
	if modelName != "" {
		return modelName
	}
	return DefaultEmbeddingModel
}

// BuildChatRequest assembles the chat request body. Messages keep their
// order and streaming is always disabled.
func BuildChatRequest(model string, msgs []api.ChatMessage, params api.ChatParameters) ChatRequest {
	wire := make([]Message, len(msgs))
	for i, m := range msgs {
		wire[i] = Message{Role: string(m.Role), Content: m.Content}
	}
	return ChatRequest{
		Model: model,
		Input: ChatInput{Messages: wire},
		Parameters: ChatParameters{
			MaxTokens:   params.MaxTokens,
			Temperature: params.Temperature,
			Stream:      false,
		},
	}
}

// DecodeChatResponse parses a chat success body into a ChatResult. A body
// that is not valid JSON or carries no output fails with a decode error.
func DecodeChatResponse(data []byte) (*api.ChatResult, error) {
	resp, err := decodeChatResponse(data)
	if err != nil {
		return nil, err
	}
	return resp.toResult()
}

func decodeChatResponse(data []byte) (*ChatResponse, error) {
	var resp ChatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, api.NewDecodeError(fmt.Sprintf("failed to parse chat response: %s", err.Error()))
	}
	return &resp, nil
}

func (r *ChatResponse) toResult() (*api.ChatResult, error) {
	result := &api.ChatResult{
		RequestID: r.RequestID,
		Usage: api.Usage{
			InputTokens:  r.Usage.InputTokens,
			OutputTokens: r.Usage.OutputTokens,
			TotalTokens:  r.Usage.TotalTokens,
		},
	}
	if result.Usage.InputTokens == 0 && result.Usage.OutputTokens == 0 {
		result.Usage.InputTokens = r.Usage.PromptTokens
		result.Usage.OutputTokens = r.Usage.CompletionTokens
	}

	switch {
	case r.Output != nil:
		result.Text = r.Output.Text
		result.FinishReason = r.Output.FinishReason
	case len(r.Choices) > 0:
		result.Text = r.Choices[0].Message.Content
		result.FinishReason = r.Choices[0].FinishReason
	default:
		return nil, api.NewDecodeError("chat response has no output")
	}
	return result, nil
}

// BuildEmbeddingRequest assembles the embedding request body.
func BuildEmbeddingRequest(model, text string) EmbeddingRequest {
	return EmbeddingRequest{
		Model: model,
		Input: EmbeddingInput{Text: text},
	}
}

// ExtractEmbedding walks data[0].embedding and returns the vector. Every
// step is checked; a missing or empty level, or a non-numeric element,
// fails with a decode error. The result is never empty.
func ExtractEmbedding(body []byte) (api.Embedding, error) {
	if !gjson.ValidBytes(body) {
		return nil, api.NewDecodeError(msgNoEmbeddings + ": invalid JSON")
	}
	root := gjson.ParseBytes(body)

	data := root.Get("data")
	if !data.Exists() || !data.IsArray() {
		return nil, api.NewDecodeError(msgNoEmbeddings + ": missing data")
	}

	first := data.Get("0")
	if !first.Exists() {
		return nil, api.NewDecodeError(msgNoEmbeddings + ": empty data")
	}

	vec := first.Get("embedding")
	if !vec.Exists() || !vec.IsArray() {
		return nil, api.NewDecodeError(msgNoEmbeddings + ": missing embedding")
	}

	values := vec.Array()
	if len(values) == 0 {
		return nil, api.NewDecodeError(msgNoEmbeddings + ": empty embedding")
	}

	out := make(api.Embedding, len(values))
	for i, v := range values {
		if v.Type != gjson.Number {
			return nil, api.NewDecodeError(fmt.Sprintf("%s: element %d is not a number", msgNoEmbeddings, i))
		}
		f := float32(v.Float())
		if math.IsInf(float64(f), 0) {
			return nil, api.NewDecodeError(fmt.Sprintf("%s: element %d out of float32 range", msgNoEmbeddings, i))
		}
		out[i] = f
	}
	return out, nil
}

package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    256,
		MaxContentSize: 1024 * 1024, // 1MB
	}
}

// ValidatePrompt checks a single-prompt chat request. It returns an
// *APIError describing the failure, or nil if the prompt is usable.
func ValidatePrompt(req *PromptRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Prompt) == "" {
		return NewInvalidRequestError("prompt", "prompt is required")
	}
	if cfg.MaxContentSize > 0 && len(req.Prompt) > cfg.MaxContentSize {
		return NewInvalidRequestError("prompt",
			fmt.Sprintf("prompt exceeds maximum size of %d bytes", cfg.MaxContentSize))
	}
	return nil
}

// ValidateText checks an embedding request.
func ValidateText(req *TextRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Text) == "" {
		return NewInvalidRequestError("text", "text is required")
	}
	if cfg.MaxContentSize > 0 && len(req.Text) > cfg.MaxContentSize {
		return NewInvalidRequestError("text",
			fmt.Sprintf("text exceeds maximum size of %d bytes", cfg.MaxContentSize))
	}
	return nil
}

// ValidateMessages checks an explicit-history chat request. It returns an
// *APIError describing the first validation failure, or nil if the request
// is valid. Temperature is passed through unchecked.
func ValidateMessages(req *MessagesRequest, cfg ValidationConfig) *APIError {
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one item")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d items", cfg.MaxMessages))
	}

	total := 0
	for i, msg := range req.Messages {
		if !msg.Role.Valid() {
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unsupported role %q", msg.Role))
		}
		total += len(msg.Content)
	}

	if cfg.MaxContentSize > 0 && total > cfg.MaxContentSize {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("message content exceeds maximum size of %d bytes", cfg.MaxContentSize))
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	return nil
}

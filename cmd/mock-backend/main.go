// Command mock-backend runs a deterministic stand-in for both upstream
// services so the gateway can be exercised without credentials. It serves
// the OpenAI chat completion and embedding endpoints used by the SDK
// provider and the DashScope endpoints used by the HTTP provider.
//
// Responses are derived from the request content: chat replies echo the
// last user message and embeddings are a fixed-length vector hashed from
// the input text. A prompt containing "[fail]" produces an upstream error.
//
// Point the gateway at it with:
//
//	ai.endpoint:      http://localhost:9090/v1
//	ai.http_base_url: http://localhost:9090/compatible-mode/v1
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const (
	embeddingDims = 8
	failMarker    = "[fail]"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{Addr: ":" + port, Handler: newMux()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleOpenAIChat)
	mux.HandleFunc("POST /v1/embeddings", handleOpenAIEmbeddings)
	mux.HandleFunc("POST /compatible-mode/v1/chat/completions", handleDashScopeChat)
	mux.HandleFunc("POST /compatible-mode/v1/embeddings", handleDashScopeEmbeddings)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// --- Request types ---

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type dashScopeChatRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []message `json:"messages"`
	} `json:"input"`
}

type dashScopeEmbeddingRequest struct {
	Model string `json:"model"`
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
}

// --- Handlers ---

func handleOpenAIChat(w http.ResponseWriter, r *http.Request) {
	var req openAIChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid request")
		return
	}

	prompt := lastUserMessage(req.Messages)
	if strings.Contains(prompt, failMarker) {
		writeOpenAIError(w, http.StatusServiceUnavailable, "mock upstream failure")
		return
	}

	reply := "mock: " + prompt
	promptTokens, completionTokens := countTokens(req.Messages), len(strings.Fields(reply))
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      fmt.Sprintf("chatcmpl-mock-%08x", hash(prompt)),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": reply},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	})
}

func handleOpenAIEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req openAIEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid request")
		return
	}

	text := inputText(req.Input)
	if strings.Contains(text, failMarker) {
		writeOpenAIError(w, http.StatusServiceUnavailable, "mock upstream failure")
		return
	}

	tokens := len(strings.Fields(text))
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"model":  req.Model,
		"data": []map[string]any{{
			"object":    "embedding",
			"index":     0,
			"embedding": embed(text),
		}},
		"usage": map[string]int{"prompt_tokens": tokens, "total_tokens": tokens},
	})
}

func handleDashScopeChat(w http.ResponseWriter, r *http.Request) {
	var req dashScopeChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDashScopeError(w, http.StatusBadRequest, "InvalidParameter", "invalid request")
		return
	}

	prompt := lastUserMessage(req.Input.Messages)
	if strings.Contains(prompt, failMarker) {
		writeDashScopeError(w, http.StatusServiceUnavailable, "ServiceUnavailable", "mock upstream failure")
		return
	}

	reply := "mock: " + prompt
	inputTokens, outputTokens := countTokens(req.Input.Messages), len(strings.Fields(reply))
	writeJSON(w, http.StatusOK, map[string]any{
		"output": map[string]any{"text": reply, "finish_reason": "stop"},
		"usage": map[string]int{
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
			"total_tokens":  inputTokens + outputTokens,
		},
		"request_id": fmt.Sprintf("mock-%08x", hash(prompt)),
	})
}

func handleDashScopeEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req dashScopeEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDashScopeError(w, http.StatusBadRequest, "InvalidParameter", "invalid request")
		return
	}

	if strings.Contains(req.Input.Text, failMarker) {
		writeDashScopeError(w, http.StatusServiceUnavailable, "ServiceUnavailable", "mock upstream failure")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": []map[string]any{{"index": 0, "embedding": embed(req.Input.Text)}},
	})
}

// --- Helpers ---

func lastUserMessage(msgs []message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func countTokens(msgs []message) int {
	n := 0
	for _, m := range msgs {
		n += len(strings.Fields(m.Content))
	}
	return n
}

// inputText accepts the string and string array forms of the OpenAI
// embedding input.
func inputText(v any) string {
	switch in := v.(type) {
	case string:
		return in
	case []any:
		if len(in) > 0 {
			s, _ := in[0].(string)
			return s
		}
	}
	return ""
}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// embed returns a vector in [-1, 1) that is stable for a given text.
func embed(text string) []float64 {
	vec := make([]float64, embeddingDims)
	for i := range vec {
		h := hash(fmt.Sprintf("%d:%s", i, text))
		vec[i] = float64(h%2000)/1000 - 1
	}
	return vec
}

func writeOpenAIError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"message": msg, "type": "server_error"},
	})
}

func writeDashScopeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

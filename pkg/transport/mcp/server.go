// Package mcp exposes the gateway's chat, embedding and comparison
// operations as Model Context Protocol tools over streamable HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/debug"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/provider"
	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/transport"
)

// Tool names.
const (
	ToolChat    = "chat"
	ToolEmbed   = "embed"
	ToolCompare = "compare"
)

// ChatInput is the argument object of the chat tool.
type ChatInput struct {
	Prompt   string `json:"prompt" jsonschema:"the user prompt"`
	Provider string `json:"provider,omitempty" jsonschema:"provider to call: sdk or dashscope"`
}

// EmbedInput is the argument object of the embed tool.
type EmbedInput struct {
	Text     string `json:"text" jsonschema:"the text to embed"`
	Provider string `json:"provider,omitempty" jsonschema:"provider to call: sdk or dashscope"`
}

// CompareInput is the argument object of the compare tool.
type CompareInput struct {
	Prompt string `json:"prompt" jsonschema:"the user prompt sent to both providers"`
}

// Options configures the MCP server.
type Options struct {
	Name    string
	Version string

	// DefaultProvider is used when a tool call names no provider.
	DefaultProvider string

	Validation api.ValidationConfig
}

// Server registers the gateway tools on an MCP server.
type Server struct {
	providers transport.ProviderSet
	comparer  transport.Comparer
	opts      Options
	server    *mcp.Server
}

// NewServer creates the MCP server and registers its tools.
func NewServer(providers transport.ProviderSet, comparer transport.Comparer, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "vergleich"
	}
	if opts.Version == "" {
		opts.Version = "v1.0.0"
	}
	if opts.Validation == (api.ValidationConfig{}) {
		opts.Validation = api.DefaultValidationConfig()
	}

	s := &Server{
		providers: providers,
		comparer:  comparer,
		opts:      opts,
		server: mcp.NewServer(
			&mcp.Implementation{Name: opts.Name, Version: opts.Version},
			nil,
		),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolChat,
		Description: "Sends a prompt to one provider and returns the completion text",
	}, s.chat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolEmbed,
		Description: "Returns the embedding vector of a text as comma-separated values",
	}, s.embed)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolCompare,
		Description: "Sends a prompt to both providers in parallel and returns both outcomes as JSON",
	}, s.compare)

	return s
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Handler serves the tools via streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) chat(ctx context.Context, _ *mcp.CallToolRequest, in ChatInput) (*mcp.CallToolResult, struct{}, error) {
	if apiErr := api.ValidatePrompt(&api.PromptRequest{Prompt: in.Prompt}, s.opts.Validation); apiErr != nil {
		return errorResult(apiErr), struct{}{}, nil
	}
	p, apiErr := s.lookup(in.Provider)
	if apiErr != nil {
		return errorResult(apiErr), struct{}{}, nil
	}

	debug.Log("mcp", "chat tool", "provider", p.Name())
	result, err := p.Chat(ctx, in.Prompt)
	if err != nil {
		return errorResult(err), struct{}{}, nil
	}
	return textResult(result.Text), struct{}{}, nil
}

func (s *Server) embed(ctx context.Context, _ *mcp.CallToolRequest, in EmbedInput) (*mcp.CallToolResult, struct{}, error) {
	if apiErr := api.ValidateText(&api.TextRequest{Text: in.Text}, s.opts.Validation); apiErr != nil {
		return errorResult(apiErr), struct{}{}, nil
	}
	p, apiErr := s.lookup(in.Provider)
	if apiErr != nil {
		return errorResult(apiErr), struct{}{}, nil
	}

	debug.Log("mcp", "embed tool", "provider", p.Name())
	text, err := provider.EmbedString(ctx, p, in.Text)
	if err != nil {
		return errorResult(err), struct{}{}, nil
	}
	return textResult(text), struct{}{}, nil
}

func (s *Server) compare(ctx context.Context, _ *mcp.CallToolRequest, in CompareInput) (*mcp.CallToolResult, struct{}, error) {
	if apiErr := api.ValidatePrompt(&api.PromptRequest{Prompt: in.Prompt}, s.opts.Validation); apiErr != nil {
		return errorResult(apiErr), struct{}{}, nil
	}

	result, err := s.comparer.CompareChat(ctx, in.Prompt)
	if result == nil {
		if err == nil {
			err = api.NewServerError("comparison returned no result")
		}
		return errorResult(err), struct{}{}, nil
	}

	data, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return errorResult(api.NewServerError("encoding comparison: " + marshalErr.Error())), struct{}{}, nil
	}
	if err != nil {
		res := errorResult(err)
		res.Content = append(res.Content, &mcp.TextContent{Text: string(data)})
		return res, struct{}{}, nil
	}
	return textResult(string(data)), struct{}{}, nil
}

func (s *Server) lookup(name string) (provider.Provider, *api.APIError) {
	if name == "" {
		name = s.opts.DefaultProvider
	}
	p, ok := s.providers.Lookup(name)
	if !ok {
		names := make([]string, 0, len(s.providers))
		for n := range s.providers {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, api.NewInvalidRequestError("provider",
			fmt.Sprintf("unknown provider %q (available: %s)", name, strings.Join(names, ", ")))
	}
	return p, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports err inside the tool result so the caller sees the
// error kind and message.
func errorResult(err error) *mcp.CallToolResult {
	apiErr := api.AsAPIError(err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: apiErr.Error()}},
	}
}

package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxTokens caps response length when unconfigured.
const DefaultMaxTokens = 4096

// ClaudeConfig holds configuration for the Claude backend.
type ClaudeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// ClaudeBackend implements Backend for Anthropic Claude models.
type ClaudeBackend struct {
	chatModel model.ToolCallingChatModel
	config    *ClaudeConfig
}

// NewClaude creates a new Claude backend.
func NewClaude(ctx context.Context, config *ClaudeConfig) (*ClaudeBackend, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = DefaultModel
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	cfg := &claude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = &config.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return &ClaudeBackend{
		chatModel: chatModel,
		config:    config,
	}, nil
}

// Name returns the backend identifier.
func (b *ClaudeBackend) Name() string { return "anthropic" }

// Stream creates a streaming completion.
func (b *ClaudeBackend) Stream(ctx context.Context, req *Request) (*Stream, error) {
	tools := req.Tools
	if req.WebSearch {
		tools = append(append([]*schema.ToolInfo(nil), tools...), webSearchTool())
	}

	chatModel := b.chatModel
	if len(tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	messages := make([]*schema.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: req.System})
	}
	messages = append(messages, req.Messages...)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	reader, err := chatModel.Stream(ctx, messages, model.WithMaxTokens(maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return NewStream(reader), nil
}

// webSearchTool is the tool definition advertised when the web-search
// capability is enabled.
func webSearchTool() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "web_search",
		Desc: "Searches the web and returns result snippets for a query",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The search query",
				Required: true,
			},
		}),
	}
}

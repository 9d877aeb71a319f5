package anthropic

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = "claude-3-5-haiku-latest"

type ClaudeClient struct {
	client       sdk.Client
	model        string
	systemPrompt string
	maxTokens    int
}

func NewClaudeClient(apiKey, model, systemPrompt string, maxTokens int) *ClaudeClient {
	return newClaudeClient(apiKey, model, systemPrompt, maxTokens)
}

func NewClaudeClientWithURL(apiKey, model, systemPrompt string, maxTokens int, baseURL string) *ClaudeClient {
	return newClaudeClient(apiKey, model, systemPrompt, maxTokens, option.WithBaseURL(baseURL))
}

func newClaudeClient(apiKey, model, systemPrompt string, maxTokens int, opts ...option.RequestOption) *ClaudeClient {
	if model == "" {
		model = DefaultModel
	}

	// failures fall back to the canned reply; the SDK must not retry on its own
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &ClaudeClient{
		client:       sdk.NewClient(opts...),
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, userText string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		System:    []sdk.TextBlockParam{{Text: c.systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userText)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	var parts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok && tb.Text != "" {
			parts = append(parts, tb.Text)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("empty response from claude")
	}

	return strings.Join(parts, "\n"), nil
}

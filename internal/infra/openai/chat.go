package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

type ChatClient struct {
	client       *goopenai.Client
	model        string
	systemPrompt string
	maxTokens    int
}

func NewChatClient(apiKey, model, systemPrompt string, maxTokens int) *ChatClient {
	return NewChatClientWithURL(apiKey, model, systemPrompt, maxTokens, DefaultBaseURL)
}

func NewChatClientWithURL(apiKey, model, systemPrompt string, maxTokens int, baseURL string) *ChatClient {
	if model == "" {
		model = goopenai.GPT3Dot5Turbo
	}
	return &ChatClient{
		client:       newClient(apiKey, baseURL),
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
	}
}

func (c *ChatClient) Complete(ctx context.Context, userText string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: userText},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}

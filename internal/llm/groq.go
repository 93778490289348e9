package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	xaiBaseURL  = "https://api.x.ai/v1"
	xaiModel    = "grok-beta"
)

// GroqClient is the fallback text provider. Groq (and xAI) expose an
// OpenAI-compatible chat API, so it rides on go-openai with a base URL
// override.
type GroqClient struct {
	client *openai.Client
	model  string
}

func NewGroq(apiKey, baseURL, model string) *GroqClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	} else {
		config.BaseURL = groqBaseURL
	}
	return &GroqClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *GroqClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: baseSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", c.model)
	}
	return resp.Choices[0].Message.Content, nil
}

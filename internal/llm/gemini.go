package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient talks to Google Gemini through the official genai SDK. It is
// the primary provider and the only one with vision/audio and structured
// output support.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGemini(apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Generate runs a single-turn text prompt under the StudyBuddy system prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, []*genai.Part{{Text: baseSystemPrompt + "\n\n" + prompt}}, false)
}

// GenerateRaw runs a prompt without the system preamble (free-chat builds its
// own conversation transcript).
func (c *GeminiClient) GenerateRaw(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, []*genai.Part{{Text: prompt}}, false)
}

// GenerateJSON asks for application/json output, for quiz and flashcard
// generation.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, []*genai.Part{{Text: baseSystemPrompt + "\n\n" + prompt}}, true)
}

// GenerateWithMedia sends a prompt together with an inline media blob.
func (c *GeminiClient) GenerateWithMedia(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	parts := []*genai.Part{
		{Text: baseSystemPrompt + "\n\n" + prompt},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
	}
	return c.generate(ctx, parts, false)
}

func (c *GeminiClient) generate(ctx context.Context, parts []*genai.Part, jsonOutput bool) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	var cfg *genai.GenerateContentConfig
	if jsonOutput {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

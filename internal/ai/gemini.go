package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiClient is the Gemini-backed Rewriter.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient dials the Gemini API with the given key.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Close releases the underlying connection.
func (c *GeminiClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Rewrite generates the summary paragraph with Gemini. The SDK has no
// separate system role slot on this path, so the instruction rides in
// front of the user content.
func (c *GeminiClient) Rewrite(ctx context.Context, title, body string) (string, error) {
	model := c.client.GenerativeModel(c.model)

	prompt := systemPrompt + "\n\n" + userPrompt(title, clampBody(body))
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no response")
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	out := Sanitize(text)
	if out == "" {
		return "", fmt.Errorf("gemini: empty response after sanitization")
	}
	return out, nil
}

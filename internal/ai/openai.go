package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIClient is the OpenAI-backed Rewriter.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds the OpenAI backend. An empty model selects the
// default mini model.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}
}

// Rewrite generates the summary paragraph through the chat completion API.
func (c *OpenAIClient) Rewrite(ctx context.Context, title, body string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(title, clampBody(body))},
		},
		MaxCompletionTokens: 600,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response")
	}

	out := Sanitize(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai: empty response after sanitization")
	}
	return out, nil
}

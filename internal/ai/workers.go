package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	workersBaseURL      = "https://api.cloudflare.com/client/v4"
	defaultWorkersModel = "@cf/meta/llama-3.1-8b-instruct"
)

// WorkersClient talks to the Cloudflare Workers AI chat endpoint. Auth is a
// bearer token scoped to an account id; both come from configuration.
type WorkersClient struct {
	accountID string
	token     string
	model     string
	baseURL   string
	http      *http.Client
}

// NewWorkersClient builds a client for the given account/token pair. An
// empty model selects the default instruct model.
func NewWorkersClient(accountID, token, model string) *WorkersClient {
	if model == "" {
		model = defaultWorkersModel
	}
	return &WorkersClient{
		accountID: accountID,
		token:     token,
		model:     model,
		baseURL:   workersBaseURL,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type workersMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type workersRequest struct {
	Messages []workersMessage `json:"messages"`
}

type workersResponse struct {
	Result struct {
		Response string `json:"response"`
	} `json:"result"`
	Success bool `json:"success"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Rewrite submits the article to the chat endpoint and returns the
// sanitized summary paragraph.
func (c *WorkersClient) Rewrite(ctx context.Context, title, body string) (string, error) {
	payload := workersRequest{
		Messages: []workersMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(title, clampBody(body))},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("workers ai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("workers ai: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("workers ai: read response: %w", err)
	}

	var parsed workersResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("workers ai: decode response: %w", err)
	}
	if !parsed.Success {
		msg := "unknown error"
		if len(parsed.Errors) > 0 {
			msg = parsed.Errors[0].Message
		}
		return "", fmt.Errorf("workers ai: %s", msg)
	}
	if parsed.Result.Response == "" {
		return "", fmt.Errorf("workers ai: empty response")
	}

	return Sanitize(parsed.Result.Response), nil
}

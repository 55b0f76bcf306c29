package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/pos-gateway/internal/resilience"
)

const systemPrompt = "You are a helpful assistant embedded in a point-of-sale " +
	"system for a small shop. Answer questions about products, stock, sales and " +
	"day-to-day store operation. Keep answers short and practical."

// OpenAIProvider relays conversations to an OpenAI-compatible chat
// completions endpoint.
type OpenAIProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    resilience.HTTPClient
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Reply sends the conversation with the POS system prompt prepended.
func (p *OpenAIProvider) Reply(ctx context.Context, messages []Message) (string, error) {
	if p.APIKey == "" {
		return "", errors.New("chat: api key not configured")
	}
	payload := completionRequest{
		Model:     p.Model,
		Messages:  append([]Message{{Role: "system", Content: systemPrompt}}, messages...),
		MaxTokens: 500,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	endpoint := strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTP.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat: completion call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("chat: completion status %d", resp.StatusCode)
	}
	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat: empty completion")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

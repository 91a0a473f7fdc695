package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PaperRadar/internal/config"
	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

// Client implements ports.AIClient against any OpenAI-compatible
// chat-completions endpoint. It is the only place that knows the wire
// format; everything above it sees the two-operation capability contract.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

var _ ports.AIClient = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ValidateConfig reports whether the client is usable at all, with a
// human-readable reason when it is not. No network interaction.
func (c *Client) ValidateConfig() (bool, string) {
	switch {
	case c == nil:
		return false, "ai client is nil"
	case c.endpoint == "":
		return false, "ai endpoint is not configured"
	case c.model == "":
		return false, "ai model is not configured"
	case c.apiKey == "":
		return false, "ai api key is not configured"
	}
	return true, ""
}

// Chat posts the messages and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage, temperature float64, maxTokens int) (string, error) {
	msgs := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, map[string]string{"role": m.Role, "content": m.Content})
	}

	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    msgs,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}

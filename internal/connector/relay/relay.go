// Package relay implements the HTTP-relay connector: messages are forwarded
// unchanged to an OpenAI-compatible endpoint behind a configured base URL.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/felipepmaragno/chat-gateway/internal/domain"
)

const integrationName = "relay"

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

type Connector struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func New(cfg Config) *Connector {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Connector{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  client,
	}
}

func (c *Connector) Integration() string {
	return integrationName
}

// Chat forwards the message list as-is; the relay speaks the same role
// vocabulary, so no remapping happens here.
func (c *Connector) Chat(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
	payload := relayRequest{
		Model:    c.model,
		Messages: messages,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relay request: %v: %w", err, domain.ErrUpstreamTransport)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %v: %w", err, domain.ErrUpstreamTransport)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay error: status=%d body=%s: %w", resp.StatusCode, string(respBody), domain.ErrUpstreamTransport)
	}

	return normalize(respBody), nil
}

// normalize maps the relay body onto the canonical result. An unexpected
// shape degrades to a partial result with a warning rather than an error.
func normalize(body []byte) *domain.ChatResult {
	var raw relayResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Warn("relay response in unexpected shape", "error", err)
		return &domain.ChatResult{}
	}

	result := &domain.ChatResult{
		Model:        raw.Model,
		FinishReason: raw.FinishReason,
	}

	switch {
	case raw.Text != "":
		result.Text = raw.Text
	case raw.Content != "":
		result.Text = raw.Content
	}

	if raw.Usage != nil {
		result.Usage = domain.TokenUsage{
			PromptTokens:     raw.Usage.PromptTokens,
			CompletionTokens: raw.Usage.CompletionTokens,
			TotalTokens:      raw.Usage.TotalTokens,
		}
	}

	return result
}

type relayRequest struct {
	Model    string        `json:"model"`
	Messages []domain.Turn `json:"messages"`
}

type relayResponse struct {
	Text         string      `json:"text"`
	Content      string      `json:"content"`
	Model        string      `json:"model"`
	Usage        *relayUsage `json:"usage"`
	FinishReason string      `json:"finish_reason"`
}

type relayUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

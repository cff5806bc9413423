// Package gemini implements the direct-model connector for the Gemini
// interactions API. Gemini names its own turns "model" rather than
// "assistant", so outbound history is remapped before dispatch.
package gemini

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

const (
	integrationName = "gemini"

	// Role Gemini uses for its own turns.
	roleModel = "model"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
}

type Connector struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func New(cfg Config) *Connector {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Connector{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  client,
	}
}

func (c *Connector) Integration() string {
	return integrationName
}

func (c *Connector) Chat(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
	payload := interactionRequest{
		Model: c.model,
		Input: mapMessages(messages),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1beta/interactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %v: %w", err, domain.ErrUpstreamTransport)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %v: %w", err, domain.ErrUpstreamTransport)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini error: status=%d body=%s: %w", resp.StatusCode, string(respBody), domain.ErrUpstreamTransport)
	}

	return normalize(respBody), nil
}

// mapMessages rewrites the generic role vocabulary into Gemini's.
// Content passes through untouched.
func mapMessages(messages []domain.Turn) []interactionTurn {
	mapped := make([]interactionTurn, len(messages))
	for i, m := range messages {
		role := m.Role
		if role == domain.RoleAssistant {
			role = roleModel
		}
		mapped[i] = interactionTurn{Role: role, Content: m.Content}
	}
	return mapped
}

// normalize maps an interaction body onto the canonical result. Text and
// usage extraction are strict; safety ratings, citations and grounding
// metadata are best-effort and never fail the call.
func normalize(body []byte) *domain.ChatResult {
	var raw interactionResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		slog.Warn("gemini response in unexpected shape", "error", err)
		return &domain.ChatResult{}
	}

	result := &domain.ChatResult{
		Model:        raw.Model,
		FinishReason: raw.FinishReason,
	}

	for _, out := range raw.Outputs {
		result.Outputs = append(result.Outputs, domain.OutputSegment{
			Type:    out.Type,
			Text:    out.Text,
			Content: out.Content,
		})
		if out.Text != "" {
			if result.Text != "" {
				result.Text += "\n" + out.Text
			} else {
				result.Text = out.Text
			}
		}
	}

	// A top-level text field, when present, supersedes the concatenation.
	if raw.Text != "" {
		result.Text = raw.Text
	}

	if raw.Usage != nil {
		result.Usage = domain.TokenUsage{
			PromptTokens:     firstPresent(raw.Usage.PromptTokenCount, raw.Usage.PromptTokens),
			CompletionTokens: firstPresent(raw.Usage.CompletionTokenCount, raw.Usage.CompletionTokens),
			TotalTokens:      firstPresent(raw.Usage.TotalTokenCount, raw.Usage.TotalTokens),
		}
	}

	attachMetadata(result, raw)

	return result
}

// attachMetadata decodes the optional metadata blocks. A block that fails
// to decode is logged and skipped; the result keeps whatever was extracted.
func attachMetadata(result *domain.ChatResult, raw interactionResponse) {
	if len(raw.SafetyRatings) > 0 {
		var ratings []domain.SafetyRating
		if err := json.Unmarshal(raw.SafetyRatings, &ratings); err != nil {
			slog.Warn("gemini safety ratings in unexpected shape", "error", err)
		} else {
			result.SafetyRatings = ratings
		}
	}

	if len(raw.Citations) > 0 {
		var citations []domain.Citation
		if err := json.Unmarshal(raw.Citations, &citations); err != nil {
			slog.Warn("gemini citations in unexpected shape", "error", err)
		} else {
			result.Citations = citations
		}
	}

	if len(raw.GroundingMetadata) > 0 {
		var grounding domain.GroundingMetadata
		if err := json.Unmarshal(raw.GroundingMetadata, &grounding); err != nil {
			slog.Warn("gemini grounding metadata in unexpected shape", "error", err)
		} else {
			result.GroundingMetadata = &grounding
		}
	}
}

// firstPresent picks the first non-nil counter. Gemini reports token fields
// as *_token_count while OpenAI-compatible deployments report *_tokens.
func firstPresent(counts ...*int) *int {
	for _, c := range counts {
		if c != nil {
			return c
		}
	}
	return nil
}

type interactionRequest struct {
	Model string            `json:"model"`
	Input []interactionTurn `json:"input"`
}

type interactionTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type interactionResponse struct {
	Outputs           []outputBlock     `json:"outputs"`
	Text              string            `json:"text"`
	Model             string            `json:"model"`
	Usage             *interactionUsage `json:"usage"`
	FinishReason      string            `json:"finish_reason"`
	SafetyRatings     json.RawMessage   `json:"safety_ratings"`
	Citations         json.RawMessage   `json:"citations"`
	GroundingMetadata json.RawMessage   `json:"grounding_metadata"`
}

type outputBlock struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Content string `json:"content"`
}

type interactionUsage struct {
	PromptTokenCount     *int `json:"prompt_token_count"`
	PromptTokens         *int `json:"prompt_tokens"`
	CompletionTokenCount *int `json:"completion_token_count"`
	CompletionTokens     *int `json:"completion_tokens"`
	TotalTokenCount      *int `json:"total_token_count"`
	TotalTokens          *int `json:"total_tokens"`
}

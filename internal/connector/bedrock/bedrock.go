// Package bedrock implements a direct-model connector over AWS Bedrock's
// InvokeModel API using the Anthropic messages body shape.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/felipepmaragno/chat-gateway/internal/domain"
)

const (
	integrationName  = "bedrock"
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 4096
)

type Connector struct {
	client  *bedrockruntime.Client
	modelID string
}

func New(ctx context.Context, region, modelID string) (*Connector, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Connector{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

func NewWithConfig(cfg aws.Config, modelID string) *Connector {
	return &Connector{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}
}

func (c *Connector) Integration() string {
	return integrationName
}

func (c *Connector) Chat(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
	body, err := json.Marshal(toBedrockRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	}

	output, err := c.client.InvokeModel(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("invoke model: %v: %w", err, domain.ErrUpstreamTransport)
	}

	return parseResponse(output.Body)
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
	System           string           `json:"system,omitempty"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      *bedrockUsage  `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

// toBedrockRequest lifts a system turn into the dedicated system field;
// Bedrock's Anthropic shape already uses user/assistant roles.
func toBedrockRequest(messages []domain.Turn) bedrockRequest {
	var systemPrompt string
	mapped := make([]bedrockMessage, 0, len(messages))

	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			systemPrompt = m.Content
			continue
		}
		mapped = append(mapped, bedrockMessage{Role: m.Role, Content: m.Content})
	}

	return bedrockRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        defaultMaxTokens,
		Messages:         mapped,
		System:           systemPrompt,
	}
}

func parseResponse(body []byte) (*domain.ChatResult, error) {
	var resp bedrockResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %v: %w", err, domain.ErrMalformedResponse)
	}

	result := &domain.ChatResult{
		Model:        resp.Model,
		FinishReason: mapStopReason(resp.StopReason),
	}

	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		result.Outputs = append(result.Outputs, domain.OutputSegment{Type: block.Type, Text: block.Text})
		if result.Text != "" {
			result.Text += "\n" + block.Text
		} else {
			result.Text = block.Text
		}
	}

	if resp.Usage != nil {
		result.Usage = domain.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      sumTokens(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		}
	}

	return result, nil
}

func sumTokens(input, output *int) *int {
	if input == nil && output == nil {
		return nil
	}
	total := 0
	if input != nil {
		total += *input
	}
	if output != nil {
		total += *output
	}
	return &total
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn":
		return "stop"
	case "max_tokens":
		return "length"
	case "stop_sequence":
		return "stop"
	default:
		return reason
	}
}

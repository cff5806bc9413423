// Package notifications publishes operational alerts, currently only raised
// when selection degrades to an over-quota model. Publishing is best-effort
// on the request path.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type AlertType string

const (
	AlertQuotaDegraded AlertType = "quota_degraded"
)

type Alert struct {
	Type    AlertType      `json:"type"`
	Model   string         `json:"model,omitempty"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

type SNSNotifier struct {
	client   *sns.Client
	topicArn string
}

func NewSNSNotifier(ctx context.Context, region, topicArn string) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewSNSNotifierWithConfig(cfg, topicArn), nil
}

func NewSNSNotifierWithConfig(cfg aws.Config, topicArn string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}
}

func (n *SNSNotifier) Send(ctx context.Context, alert Alert) error {
	message, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"Type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(alert.Type)),
			},
		},
	}

	if alert.Model != "" {
		input.MessageAttributes["Model"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(alert.Model),
		}
	}

	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	slog.Info("alert sent", "type", alert.Type, "model", alert.Model)

	return nil
}

type InMemoryNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{alerts: make([]Alert, 0)}
}

func (n *InMemoryNotifier) Send(ctx context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func (n *InMemoryNotifier) Alerts() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]Alert, len(n.alerts))
	copy(result, n.alerts)
	return result
}

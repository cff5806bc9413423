// Package orchestrator coordinates one chat request end to end: pick a
// model, load or create the conversation, dispatch to the model's
// connector, persist the exchange and record usage. All request state
// lives on the call stack; the only shared state is the immutable
// connector registry built at startup.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felipepmaragno/chat-gateway/internal/connector"
	"github.com/felipepmaragno/chat-gateway/internal/conversation"
	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/felipepmaragno/chat-gateway/internal/metrics"
	"github.com/felipepmaragno/chat-gateway/internal/notifications"
	"github.com/felipepmaragno/chat-gateway/internal/quota"
	"github.com/felipepmaragno/chat-gateway/internal/selector"
	"github.com/felipepmaragno/chat-gateway/internal/telemetry"
	"github.com/felipepmaragno/chat-gateway/internal/usageevents"
)

type Config struct {
	Selector      *selector.Selector
	Registry      *connector.Registry
	Conversations conversation.Store
	Quota         quota.Store
	Notifier      notifications.Notifier
	UsageEvents   usageevents.Publisher

	// ProviderTimeout bounds the outbound provider call. Zero means no
	// extra deadline beyond the connector's own client timeout.
	ProviderTimeout time.Duration
}

type Orchestrator struct {
	selector        *selector.Selector
	registry        *connector.Registry
	conversations   conversation.Store
	quota           quota.Store
	notifier        notifications.Notifier
	usageEvents     usageevents.Publisher
	providerTimeout time.Duration
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		selector:        cfg.Selector,
		registry:        cfg.Registry,
		conversations:   cfg.Conversations,
		quota:           cfg.Quota,
		notifier:        cfg.Notifier,
		usageEvents:     cfg.UsageEvents,
		providerTimeout: cfg.ProviderTimeout,
	}
}

// Chat runs the full request flow. An empty conversationID starts a new
// conversation; otherwise existing history is loaded (or treated as empty
// when expired) and the new turn appended before dispatch. Usage is
// recorded only after the provider call succeeded and the turn was
// persisted, so failed calls never consume quota.
func (o *Orchestrator) Chat(ctx context.Context, message, conversationID string) (*domain.ChatResult, error) {
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "orchestrator.chat")
	defer span.End()

	model, degraded, err := o.selector.Select(ctx)
	if err != nil {
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	if degraded {
		metrics.QuotaDegradedTotal.Inc()
		o.alertQuotaDegraded(ctx, model)
	}

	conv, err := o.loadOrCreate(ctx, model.Name, message, conversationID)
	if err != nil {
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	telemetry.AddChatAttributes(span, model.Name, model.Integration, conv.ID)

	conn, err := o.registry.Resolve(model.Integration)
	if err != nil {
		slog.Error("connector missing for catalog integration",
			"integration", model.Integration,
			"model", model.Name,
		)
		metrics.RecordRequest(model.Integration, model.Name, "error", time.Since(start).Seconds())
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	result, err := o.dispatch(ctx, conn, conv.Messages)
	if err != nil {
		metrics.RecordConnectorError(model.Integration, "transport")
		metrics.RecordRequest(model.Integration, model.Name, "error", time.Since(start).Seconds())
		telemetry.AddErrorAttribute(span, err)
		return nil, err
	}

	if result.Text != "" {
		conv.Messages = append(conv.Messages, domain.Turn{
			Role:    domain.RoleAssistant,
			Content: result.Text,
		})
	}

	if err := o.conversations.Save(ctx, conv); err != nil {
		metrics.RecordRequest(model.Integration, model.Name, "error", time.Since(start).Seconds())
		telemetry.AddErrorAttribute(span, err)
		return nil, fmt.Errorf("persist conversation %s: %w", conv.ID, err)
	}

	if err := o.quota.Increment(ctx, model.ID); err != nil {
		telemetry.AddErrorAttribute(span, err)
		return nil, fmt.Errorf("record usage for model %d: %w", model.ID, err)
	}

	o.publishUsage(ctx, model, conv.ID, result)

	result.ConversationID = conv.ID

	promptTokens := tokenValue(result.Usage.PromptTokens)
	completionTokens := tokenValue(result.Usage.CompletionTokens)
	metrics.RecordRequest(model.Integration, model.Name, "success", time.Since(start).Seconds())
	metrics.RecordTokens(model.Integration, model.Name, promptTokens, completionTokens)
	telemetry.AddTokenAttributes(span, promptTokens, completionTokens)

	slog.Info("chat completed",
		"conversation_id", conv.ID,
		"model", model.Name,
		"integration", model.Integration,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// History is a read-only passthrough; unknown ids come back as empty
// conversations.
func (o *Orchestrator) History(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	return o.conversations.Get(ctx, conversationID)
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, modelName, message, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		conv, err := o.conversations.Create(ctx, modelName, message)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		metrics.ConversationsCreated.Inc()
		slog.Info("conversation created", "conversation_id", conv.ID, "model", modelName)
		return conv, nil
	}

	conv, err := o.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	// The model field is a resume hint set once; selection already ran.
	if conv.Model == "" {
		conv.Model = modelName
	}

	conv.Messages = append(conv.Messages, domain.Turn{
		Role:    domain.RoleUser,
		Content: message,
	})

	return conv, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, conn connector.Connector, messages []domain.Turn) (*domain.ChatResult, error) {
	if o.providerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.providerTimeout)
		defer cancel()
	}

	result, err := conn.Chat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("dispatch to %s: %w", conn.Integration(), err)
	}

	return result, nil
}

func (o *Orchestrator) alertQuotaDegraded(ctx context.Context, model domain.Model) {
	if o.notifier == nil {
		return
	}

	alert := notifications.Alert{
		Type:    notifications.AlertQuotaDegraded,
		Model:   model.Name,
		Message: "all models exhausted their daily quota, serving over-quota model",
		Data: map[string]any{
			"integration": model.Integration,
			"priority":    model.Priority,
		},
	}

	if err := o.notifier.Send(ctx, alert); err != nil {
		slog.Warn("failed to send quota alert", "error", err)
	}
}

func (o *Orchestrator) publishUsage(ctx context.Context, model domain.Model, conversationID string, result *domain.ChatResult) {
	if o.usageEvents == nil {
		return
	}

	event := usageevents.Event{
		Model:            model.Name,
		Integration:      model.Integration,
		ConversationID:   conversationID,
		PromptTokens:     tokenValue(result.Usage.PromptTokens),
		CompletionTokens: tokenValue(result.Usage.CompletionTokens),
		At:               time.Now().UTC(),
	}

	if err := o.usageEvents.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish usage event", "error", err)
	}
}

func tokenValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

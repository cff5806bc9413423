package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felipepmaragno/chat-gateway/internal/catalog"
	"github.com/felipepmaragno/chat-gateway/internal/connector"
	"github.com/felipepmaragno/chat-gateway/internal/conversation"
	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/felipepmaragno/chat-gateway/internal/notifications"
	"github.com/felipepmaragno/chat-gateway/internal/quota"
	"github.com/felipepmaragno/chat-gateway/internal/selector"
	"github.com/felipepmaragno/chat-gateway/internal/usageevents"
)

type stubConnector struct {
	integration string
	chatFunc    func(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error)
}

func (s *stubConnector) Integration() string { return s.integration }
func (s *stubConnector) Chat(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
	return s.chatFunc(ctx, messages)
}

type failingStore struct {
	conversation.Store
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, conv *domain.Conversation) error {
	return f.saveErr
}

func testFixture(t *testing.T, models ...domain.Model) (*Orchestrator, *quota.InMemoryStore, *stubConnector) {
	t.Helper()

	usage := quota.NewInMemoryStore()
	cat := catalog.NewInMemoryCatalog(usage, models...)

	conn := &stubConnector{
		integration: "gemini",
		chatFunc: func(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
			return &domain.ChatResult{Text: "hello"}, nil
		},
	}

	orch := New(Config{
		Selector:      selector.New(cat),
		Registry:      connector.NewRegistry(conn),
		Conversations: conversation.NewInMemoryStore(time.Hour),
		Quota:         usage,
	})

	return orch, usage, conn
}

func model(id int64, priority, rpd int) domain.Model {
	return domain.Model{ID: id, Name: "m", Integration: "gemini", Priority: priority, RPD: rpd}
}

func TestChat_QuotaRotation(t *testing.T) {
	orch, usage, _ := testFixture(t,
		model(1, 1, 1),
		model(2, 2, 100),
	)
	ctx := context.Background()

	result, err := orch.Chat(ctx, "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ConversationID == "" {
		t.Fatal("expected a conversation id on a fresh chat")
	}

	count, _ := usage.Get(ctx, 1)
	if count != 1 {
		t.Errorf("expected model 1 usage 1, got %d", count)
	}

	// Model 1 is now exhausted; the second request must rotate to model 2.
	if _, err := orch.Chat(ctx, "again", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, _ = usage.Get(ctx, 2)
	if count != 1 {
		t.Errorf("expected model 2 usage 1, got %d", count)
	}
	count, _ = usage.Get(ctx, 1)
	if count != 1 {
		t.Errorf("expected model 1 usage unchanged, got %d", count)
	}
}

func TestChat_ContinuesConversation(t *testing.T) {
	orch, _, conn := testFixture(t, model(1, 1, 100))
	ctx := context.Background()

	var dispatched []domain.Turn
	conn.chatFunc = func(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
		dispatched = append([]domain.Turn(nil), messages...)
		return &domain.ChatResult{Text: "hello"}, nil
	}

	first, err := orch.Chat(ctx, "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := orch.Chat(ctx, "and again", first.ConversationID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("expected same conversation id, got %q and %q", first.ConversationID, second.ConversationID)
	}

	// History at the second dispatch: user, assistant, user.
	wantRoles := []string{domain.RoleUser, domain.RoleAssistant, domain.RoleUser}
	if len(dispatched) != len(wantRoles) {
		t.Fatalf("expected %d turns dispatched, got %d", len(wantRoles), len(dispatched))
	}
	for i, want := range wantRoles {
		if dispatched[i].Role != want {
			t.Errorf("turn %d: expected role %q, got %q", i, want, dispatched[i].Role)
		}
	}
}

func TestChat_UnknownConversationStartsFresh(t *testing.T) {
	orch, _, _ := testFixture(t, model(1, 1, 100))

	result, err := orch.Chat(context.Background(), "hi", "expired-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ConversationID != "expired-id" {
		t.Errorf("expected the requested id to be kept, got %q", result.ConversationID)
	}

	conv, err := orch.History(context.Background(), "expired-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Errorf("expected user and assistant turns, got %d", len(conv.Messages))
	}
}

func TestChat_NoModelsConfigured(t *testing.T) {
	orch, _, _ := testFixture(t)

	_, err := orch.Chat(context.Background(), "hi", "")
	if !errors.Is(err, domain.ErrNoModelsConfigured) {
		t.Fatalf("expected ErrNoModelsConfigured, got %v", err)
	}
}

func TestChat_MissingConnectorFailsHard(t *testing.T) {
	usage := quota.NewInMemoryStore()
	cat := catalog.NewInMemoryCatalog(usage, domain.Model{
		ID: 1, Name: "m", Integration: "unwired", Priority: 1, RPD: 100,
	})

	orch := New(Config{
		Selector:      selector.New(cat),
		Registry:      connector.NewRegistry(),
		Conversations: conversation.NewInMemoryStore(time.Hour),
		Quota:         usage,
	})

	_, err := orch.Chat(context.Background(), "hi", "")
	if !errors.Is(err, domain.ErrNoConnectorForIntegration) {
		t.Fatalf("expected ErrNoConnectorForIntegration, got %v", err)
	}
}

func TestChat_FailedDispatchConsumesNoQuota(t *testing.T) {
	orch, usage, conn := testFixture(t, model(1, 1, 100))

	conn.chatFunc = func(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
		return nil, domain.ErrUpstreamTransport
	}

	_, err := orch.Chat(context.Background(), "hi", "")
	if !errors.Is(err, domain.ErrUpstreamTransport) {
		t.Fatalf("expected ErrUpstreamTransport, got %v", err)
	}

	count, _ := usage.Get(context.Background(), 1)
	if count != 0 {
		t.Errorf("expected no quota consumed on failed dispatch, got %d", count)
	}
}

func TestChat_SaveFailureConsumesNoQuota(t *testing.T) {
	usage := quota.NewInMemoryStore()
	cat := catalog.NewInMemoryCatalog(usage, model(1, 1, 100))

	conn := &stubConnector{
		integration: "gemini",
		chatFunc: func(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
			return &domain.ChatResult{Text: "hello"}, nil
		},
	}

	orch := New(Config{
		Selector: selector.New(cat),
		Registry: connector.NewRegistry(conn),
		Conversations: &failingStore{
			Store:   conversation.NewInMemoryStore(time.Hour),
			saveErr: domain.ErrConversationPersistence,
		},
		Quota: usage,
	})

	_, err := orch.Chat(context.Background(), "hi", "")
	if !errors.Is(err, domain.ErrConversationPersistence) {
		t.Fatalf("expected ErrConversationPersistence, got %v", err)
	}

	count, _ := usage.Get(context.Background(), 1)
	if count != 0 {
		t.Errorf("expected no quota consumed on persist failure, got %d", count)
	}
}

func TestChat_DegradedSelectionAlerts(t *testing.T) {
	usage := quota.NewInMemoryStore()
	cat := catalog.NewInMemoryCatalog(usage, model(1, 1, 1))
	usage.Set(1, 1)

	conn := &stubConnector{
		integration: "gemini",
		chatFunc: func(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
			return &domain.ChatResult{Text: "hello"}, nil
		},
	}

	notifier := notifications.NewInMemoryNotifier()
	events := usageevents.NewInMemoryPublisher()

	orch := New(Config{
		Selector:      selector.New(cat),
		Registry:      connector.NewRegistry(conn),
		Conversations: conversation.NewInMemoryStore(time.Hour),
		Quota:         usage,
		Notifier:      notifier,
		UsageEvents:   events,
	})

	if _, err := orch.Chat(context.Background(), "hi", ""); err != nil {
		t.Fatalf("expected degraded request to succeed, got %v", err)
	}

	alerts := notifier.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected 1 quota alert, got %d", len(alerts))
	}
	if alerts[0].Type != notifications.AlertQuotaDegraded {
		t.Errorf("unexpected alert type %q", alerts[0].Type)
	}

	published := events.Events()
	if len(published) != 1 {
		t.Fatalf("expected 1 usage event, got %d", len(published))
	}
	if published[0].Integration != "gemini" {
		t.Errorf("unexpected usage event integration %q", published[0].Integration)
	}
}

func TestChat_EmptyReplyAppendsNoAssistantTurn(t *testing.T) {
	orch, _, conn := testFixture(t, model(1, 1, 100))

	conn.chatFunc = func(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error) {
		return &domain.ChatResult{}, nil
	}

	result, err := orch.Chat(context.Background(), "hi", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conv, err := orch.History(context.Background(), result.ConversationID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conv.Messages) != 1 {
		t.Errorf("expected only the user turn, got %d messages", len(conv.Messages))
	}
}

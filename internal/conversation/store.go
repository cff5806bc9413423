// Package conversation persists multi-turn chat history keyed by an opaque
// conversation id. Records expire on a sliding window: every write resets
// the TTL, so an active conversation never expires and an idle one does.
// Supports both in-memory (single instance) and Redis (shared) backends.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/google/uuid"
)

const DefaultTTL = 24 * time.Hour

// Store owns conversation records exclusively; callers never hold a copy
// across requests.
type Store interface {
	// Create generates a fresh id, seeds the record with one user turn and
	// persists it with the configured TTL.
	Create(ctx context.Context, modelName, firstMessage string) (*domain.Conversation, error)
	// Get loads a record. An unknown id returns an empty-shell record
	// carrying that id, never an error: the conversation may simply have
	// expired.
	Get(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// Save overwrites the record and refreshes its TTL.
	Save(ctx context.Context, conv *domain.Conversation) error
	Delete(ctx context.Context, conversationID string) error
	ClearAll(ctx context.Context) error
}

type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]*inMemoryItem
	ttl   time.Duration
}

type inMemoryItem struct {
	conv      domain.Conversation
	expiresAt time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	s := &InMemoryStore{
		items: make(map[string]*inMemoryItem),
		ttl:   ttl,
	}
	go s.cleanup()
	return s
}

func (s *InMemoryStore) Create(ctx context.Context, modelName, firstMessage string) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:       uuid.New().String(),
		Model:    modelName,
		Messages: []domain.Turn{{Role: domain.RoleUser, Content: firstMessage}},
	}

	if err := s.Save(ctx, conv); err != nil {
		return nil, err
	}

	return conv, nil
}

func (s *InMemoryStore) Get(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[conversationID]
	if !ok || time.Now().After(item.expiresAt) {
		return &domain.Conversation{ID: conversationID}, nil
	}

	conv := item.conv
	conv.Messages = append([]domain.Turn(nil), item.conv.Messages...)
	return &conv, nil
}

func (s *InMemoryStore) Save(ctx context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *conv
	stored.Messages = append([]domain.Turn(nil), conv.Messages...)

	s.items[conv.ID] = &inMemoryItem{
		conv:      stored,
		expiresAt: time.Now().Add(s.ttl),
	}

	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[conversationID]; !ok {
		return domain.ErrConversationNotFound
	}
	delete(s.items, conversationID)
	return nil
}

func (s *InMemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*inMemoryItem)
	return nil
}

func (s *InMemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, item := range s.items {
			if now.After(item.expiresAt) {
				delete(s.items, id)
			}
		}
		s.mu.Unlock()
	}
}

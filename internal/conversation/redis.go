package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "conversation:"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if ttl == 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Create(ctx context.Context, modelName, firstMessage string) (*domain.Conversation, error) {
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

func (s *RedisStore) Get(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	data, err := s.client.Get(ctx, conversationKey(conversationID)).Bytes()
	if err == redis.Nil {
		return &domain.Conversation{ID: conversationID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %v: %w", err, domain.ErrConversationPersistence)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %v: %w", err, domain.ErrConversationPersistence)
	}

	// Records written before the id was embedded carry it only in the key.
	if conv.ID == "" {
		conv.ID = conversationID
	}

	return &conv, nil
}

// Save overwrites the full record with a fresh TTL, the sliding-expiry
// write the store contract requires.
func (s *RedisStore) Save(ctx context.Context, conv *domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	if err := s.client.Set(ctx, conversationKey(conv.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation: %v: %w", err, domain.ErrConversationPersistence)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	deleted, err := s.client.Del(ctx, conversationKey(conversationID)).Result()
	if err != nil {
		return fmt.Errorf("delete conversation: %v: %w", err, domain.ErrConversationPersistence)
	}
	if deleted == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (s *RedisStore) ClearAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan conversations: %v: %w", err, domain.ErrConversationPersistence)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear conversations: %v: %w", err, domain.ErrConversationPersistence)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func conversationKey(conversationID string) string {
	return keyPrefix + conversationID
}

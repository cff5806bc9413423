package quota

import (
	"context"
	"testing"
)

func TestInMemoryStore_IncrementFromAbsent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	count, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 for absent counter, got %d", count)
	}

	if err := s.Increment(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err = s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 after first increment, got %d", count)
	}
}

func TestInMemoryStore_IncrementTwice(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Increment(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Increment(ctx, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestInMemoryStore_Reset(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	s.Set(3, 42)

	if err := s.Reset(ctx, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.Get(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 after reset, got %d", count)
	}
}

func TestInMemoryStore_CountersAreIndependent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Increment(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.Get(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected model 2 untouched, got %d", count)
	}
}

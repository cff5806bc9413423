package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/felipepmaragno/chat-gateway/internal/catalog"
	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/felipepmaragno/chat-gateway/internal/quota"
)

func model(id int64, priority, rpd int) domain.Model {
	return domain.Model{
		ID:          id,
		Name:        "m",
		Integration: "gemini",
		Priority:    priority,
		RPD:         rpd,
	}
}

func TestSelect_LowestPriorityUnderQuotaWins(t *testing.T) {
	usage := quota.NewInMemoryStore()
	c := catalog.NewInMemoryCatalog(usage,
		model(1, 1, 100),
		model(2, 2, 100),
	)

	s := New(c)

	selected, degraded, err := s.Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if degraded {
		t.Error("expected non-degraded selection")
	}
	if selected.ID != 1 {
		t.Errorf("expected model 1, got %d", selected.ID)
	}
}

func TestSelect_SkipsExhaustedModels(t *testing.T) {
	usage := quota.NewInMemoryStore()
	c := catalog.NewInMemoryCatalog(usage,
		model(1, 1, 1),
		model(2, 2, 100),
	)
	usage.Set(1, 1)

	s := New(c)

	selected, degraded, err := s.Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if degraded {
		t.Error("expected non-degraded selection while model 2 has quota")
	}
	if selected.ID != 2 {
		t.Errorf("expected model 2, got %d", selected.ID)
	}
}

func TestSelect_DegradesWhenAllExhausted(t *testing.T) {
	usage := quota.NewInMemoryStore()
	c := catalog.NewInMemoryCatalog(usage,
		model(1, 1, 1),
		model(2, 2, 1),
	)
	usage.Set(1, 1)
	usage.Set(2, 1)

	s := New(c)

	selected, degraded, err := s.Select(context.Background())
	if err != nil {
		t.Fatalf("expected degraded selection, got error: %v", err)
	}
	if !degraded {
		t.Error("expected degraded flag")
	}
	if selected.ID != 1 {
		t.Errorf("expected best-priority model 1, got %d", selected.ID)
	}
}

func TestSelect_EmptyCatalog(t *testing.T) {
	usage := quota.NewInMemoryStore()
	c := catalog.NewInMemoryCatalog(usage)

	s := New(c)

	_, _, err := s.Select(context.Background())
	if !errors.Is(err, domain.ErrNoModelsConfigured) {
		t.Fatalf("expected ErrNoModelsConfigured, got %v", err)
	}
}

func TestSelect_TieBrokenByModelID(t *testing.T) {
	usage := quota.NewInMemoryStore()
	c := catalog.NewInMemoryCatalog(usage,
		model(5, 1, 100),
		model(2, 1, 100),
	)

	s := New(c)

	selected, _, err := s.Select(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.ID != 2 {
		t.Errorf("expected lowest id on equal priority, got %d", selected.ID)
	}
}

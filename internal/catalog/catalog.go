// Package catalog exposes the model catalog: the administratively seeded
// set of backend models, optionally joined with their daily usage counters.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/felipepmaragno/chat-gateway/internal/domain"
	"github.com/felipepmaragno/chat-gateway/internal/quota"
)

// ModelWithUsage pairs a catalog entry with its current daily counter.
type ModelWithUsage struct {
	Model domain.Model
	Usage domain.UsageCounter
}

// Catalog provides the two query shapes selection needs. Both return rows
// ordered by priority ascending, then model id ascending so selection is
// deterministic among equal priorities.
type Catalog interface {
	ListModels(ctx context.Context) ([]domain.Model, error)
	ListModelsWithUsage(ctx context.Context, underQuotaOnly bool) ([]ModelWithUsage, error)
}

// InMemoryCatalog keeps the catalog in process memory and joins counters
// from an in-memory quota store, the same pairing the Postgres variants get
// from sharing a database. Suitable for tests and development setups.
type InMemoryCatalog struct {
	mu     sync.RWMutex
	models map[int64]domain.Model
	usage  *quota.InMemoryStore
}

func NewInMemoryCatalog(usage *quota.InMemoryStore, models ...domain.Model) *InMemoryCatalog {
	c := &InMemoryCatalog{
		models: make(map[int64]domain.Model),
		usage:  usage,
	}
	for _, m := range models {
		c.models[m.ID] = m
	}
	return c
}

func (c *InMemoryCatalog) ListModels(ctx context.Context) ([]domain.Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]domain.Model, 0, len(c.models))
	for _, m := range c.models {
		models = append(models, m)
	}
	sortModels(models)
	return models, nil
}

func (c *InMemoryCatalog) ListModelsWithUsage(ctx context.Context, underQuotaOnly bool) ([]ModelWithUsage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := make([]ModelWithUsage, 0, len(c.models))
	for id, m := range c.models {
		row := ModelWithUsage{
			Model: m,
			Usage: domain.UsageCounter{ModelID: id, Count: c.usage.Count(id)},
		}
		if underQuotaOnly && row.Usage.Exhausted(m) {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Model.Priority != rows[j].Model.Priority {
			return rows[i].Model.Priority < rows[j].Model.Priority
		}
		return rows[i].Model.ID < rows[j].Model.ID
	})

	return rows, nil
}

func (c *InMemoryCatalog) AddModel(m domain.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[m.ID] = m
}

func sortModels(models []domain.Model) {
	sort.Slice(models, func(i, j int) bool {
		if models[i].Priority != models[j].Priority {
			return models[i].Priority < models[j].Priority
		}
		return models[i].ID < models[j].ID
	})
}

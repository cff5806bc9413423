// Package selector chooses which model serves the next request: highest
// precedence (lowest priority value) among models still under their daily
// quota, degrading to the highest-precedence model overall when every quota
// is exhausted. The gateway never refuses a request solely because quotas
// ran out.
package selector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felipepmaragno/chat-gateway/internal/catalog"
	"github.com/felipepmaragno/chat-gateway/internal/domain"
)

type Selector struct {
	catalog catalog.Catalog
}

func New(c catalog.Catalog) *Selector {
	return &Selector{catalog: c}
}

// Select returns the model to use for the next request and whether the
// choice degraded to an over-quota model. It is read-only and safe for
// concurrent in-flight requests; all state it inspects is fetched fresh
// from the catalog.
func (s *Selector) Select(ctx context.Context) (domain.Model, bool, error) {
	rows, err := s.catalog.ListModelsWithUsage(ctx, true)
	if err != nil {
		return domain.Model{}, false, fmt.Errorf("list models under quota: %w", err)
	}

	degraded := false
	if len(rows) == 0 {
		degraded = true
		slog.Warn("all models exhausted their daily quota, degrading to best priority")
		rows, err = s.catalog.ListModelsWithUsage(ctx, false)
		if err != nil {
			return domain.Model{}, false, fmt.Errorf("list all models: %w", err)
		}
	}

	if len(rows) == 0 {
		return domain.Model{}, false, domain.ErrNoModelsConfigured
	}

	selected := rows[0]
	slog.Info("model selected",
		"model", selected.Model.Name,
		"integration", selected.Model.Integration,
		"priority", selected.Model.Priority,
		"rpd_count", selected.Usage.Count,
		"rpd", selected.Model.RPD,
	)

	return selected.Model, degraded, nil
}

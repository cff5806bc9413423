// Package connector defines the uniform capability every LLM integration
// implements and the registry the orchestrator dispatches through. The
// registry is built once at startup and treated as immutable afterwards.
package connector

import (
	"context"

	"github.com/felipepmaragno/chat-gateway/internal/domain"
)

// Connector performs a chat call against one integration family and
// normalizes the result into the canonical shape.
type Connector interface {
	Integration() string
	Chat(ctx context.Context, messages []domain.Turn) (*domain.ChatResult, error)
}

type Registry struct {
	connectors map[string]Connector
}

func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[string]Connector, len(connectors))}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register stores a connector under its integration name, overwriting any
// previous registration for the same name.
func (r *Registry) Register(c Connector) {
	r.connectors[c.Integration()] = c
}

// Resolve returns the connector for an integration. A missing integration
// is a configuration mismatch between the catalog and the registered
// connectors; callers must treat it as a hard failure, never substitute a
// default.
func (r *Registry) Resolve(integration string) (Connector, error) {
	c, ok := r.connectors[integration]
	if !ok {
		return nil, domain.ErrNoConnectorForIntegration
	}
	return c, nil
}

func (r *Registry) Integrations() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	return names
}

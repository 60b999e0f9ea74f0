package services

import (
	"context"

	"github.com/monument-sim/monument/pkg/engine"
	"github.com/monument-sim/monument/pkg/namespace"
)

// ActionService wraps agent action submission over the namespace registry,
// the thin layer the HTTP handler for POST /sim/{ns}/agent/{id}/action
// delegates to.
type ActionService struct {
	registry *namespace.Registry
}

// NewActionService constructs an ActionService over registry.
func NewActionService(registry *namespace.Registry) *ActionService {
	return &ActionService{registry: registry}
}

// Submit stages one agent's action for the namespace's current tick.
func (s *ActionService) Submit(ctx context.Context, ns string, req engine.ActionRequest) (engine.ActionResponse, error) {
	h, ok := s.registry.Get(ns)
	if !ok {
		return engine.ActionResponse{}, ErrNamespaceNotFound
	}
	s.registry.Touch(ns)
	return h.Engine.Submit(req)
}

package services

import (
	"context"

	"github.com/monument-sim/monument/pkg/engine"
	"github.com/monument-sim/monument/pkg/namespace"
)

// AdjudicationService wraps scoring-round submission (§4.8).
type AdjudicationService struct {
	registry *namespace.Registry
}

// NewAdjudicationService constructs an AdjudicationService over registry.
func NewAdjudicationService(registry *namespace.Registry) *AdjudicationService {
	return &AdjudicationService{registry: registry}
}

// Submit commits one scoring round for namespace ns.
func (s *AdjudicationService) Submit(ctx context.Context, ns string, req engine.ScoringRequest) error {
	h, ok := s.registry.Get(ns)
	if !ok {
		return ErrNamespaceNotFound
	}
	s.registry.Touch(ns)
	return h.Engine.Score(req)
}

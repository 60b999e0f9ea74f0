package services

import (
	"context"
	"fmt"

	"github.com/monument-sim/monument/pkg/contextbuilder"
	"github.com/monument-sim/monument/pkg/engine"
	"github.com/monument-sim/monument/pkg/namespace"
)

// ContextService serves the agent HUD fetch (§6's context endpoint).
type ContextService struct {
	registry *namespace.Registry
	recaller contextbuilder.MemoryRecaller
}

// NewContextService constructs a ContextService. recaller may be nil.
func NewContextService(registry *namespace.Registry, recaller contextbuilder.MemoryRecaller) *ContextService {
	return &ContextService{registry: registry, recaller: recaller}
}

// Fetch returns the HUD for actorID in namespace ns, verifying its secret
// first — the same authorization the action intake path applies (§4.4
// step 3), since context fetch and action submission share one identity
// model.
func (s *ContextService) Fetch(ctx context.Context, ns, actorID, secret string, chatLimit int) (*contextbuilder.HUD, string, error) {
	h, ok := s.registry.Get(ns)
	if !ok {
		return nil, "", ErrNamespaceNotFound
	}
	s.registry.Touch(ns)

	snap := h.Engine.Snapshot()
	actor, ok := snap.World.Actors[actorID]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", engine.ErrUnknownActor, actorID)
	}
	if actor.Secret != secret {
		return nil, "", engine.ErrAuthFailed
	}

	builder := contextbuilder.New(h.Store, s.recaller)
	hud, _, err := builder.BuildSnapshot(ctx, ns, snap, actorID, chatLimit)
	if err != nil {
		return nil, "", err
	}
	return hud, snap.ContextHash, nil
}

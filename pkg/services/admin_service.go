package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/monument-sim/monument/pkg/namespace"
	"github.com/monument-sim/monument/pkg/world"
)

// CreateNamespaceRequest is the explicit-create request body (§9 supplement).
type CreateNamespaceRequest struct {
	Width            int
	Height           int
	ScoringInterval  int64
	Epoch            int64
	VisibilityRadius *int
	PointsEnabled    bool
}

// RegisterActorRequest is the admin actor-registration request body.
type RegisterActorRequest struct {
	ActorID            string
	X, Y               int
	Facing             world.Facing
	Scopes             []string
	CustomInstructions string
}

// RegisterActorResponse returns the generated secret once; it is never
// retrievable again, the same one-time-reveal pattern a provisioning
// credential uses elsewhere in the stack.
type RegisterActorResponse struct {
	ActorID string
	Secret  string
}

// AdminService wraps namespace/actor provisioning (§3's "actors are
// created explicitly via admin surface").
type AdminService struct {
	registry *namespace.Registry
}

// NewAdminService constructs an AdminService over registry.
func NewAdminService(registry *namespace.Registry) *AdminService {
	return &AdminService{registry: registry}
}

// CreateNamespace explicitly provisions a namespace.
func (s *AdminService) CreateNamespace(ctx context.Context, ns string, req CreateNamespaceRequest) error {
	if req.Width <= 0 || req.Height <= 0 {
		return NewValidationError("width/height", "must be positive")
	}
	_, err := s.registry.Create(ctx, ns, req.Width, req.Height, req.ScoringInterval, req.Epoch, req.VisibilityRadius, req.PointsEnabled)
	return err
}

// ResetNamespace re-derives World from Store for ns.
func (s *AdminService) ResetNamespace(ctx context.Context, ns string) error {
	_, err := s.registry.Reset(ctx, ns)
	return err
}

// RegisterActor creates a new actor with a freshly generated secret.
func (s *AdminService) RegisterActor(ctx context.Context, ns string, req RegisterActorRequest) (RegisterActorResponse, error) {
	if req.ActorID == "" {
		return RegisterActorResponse{}, NewValidationError("actor_id", "required")
	}

	h, err := s.registry.Open(ctx, ns)
	if err != nil {
		return RegisterActorResponse{}, err
	}

	snap := h.Engine.Snapshot()
	if _, exists := snap.World.Actors[req.ActorID]; exists {
		return RegisterActorResponse{}, fmt.Errorf("%w: %q", ErrActorAlreadyExists, req.ActorID)
	}
	if !snap.World.InBounds(req.X, req.Y) {
		return RegisterActorResponse{}, NewValidationError("x/y", "out of bounds")
	}

	secret := uuid.New().String()
	scopes := make(map[string]bool, len(req.Scopes))
	for _, sc := range req.Scopes {
		scopes[sc] = true
	}
	actor := &world.Actor{
		ID:                 req.ActorID,
		Secret:             secret,
		X:                  req.X,
		Y:                  req.Y,
		Facing:             req.Facing,
		Scopes:             scopes,
		CustomInstructions: req.CustomInstructions,
	}
	if actor.Facing == "" {
		actor.Facing = world.FacingNorth
	}

	if err := h.Store.CreateActor(ctx, actor); err != nil {
		return RegisterActorResponse{}, err
	}
	if err := h.Engine.AddActor(actor); err != nil {
		return RegisterActorResponse{}, err
	}

	return RegisterActorResponse{ActorID: req.ActorID, Secret: secret}, nil
}

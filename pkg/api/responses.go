package api

import "github.com/monument-sim/monument/pkg/contextbuilder"

// ContextResponse is the HTTP response for GET /sim/{ns}/agent/{id}/context.
type ContextResponse struct {
	Namespace   string              `json:"namespace"`
	SuperTickID int64               `json:"supertick_id"`
	ContextHash string              `json:"context_hash"`
	Phase       string              `json:"phase"`
	HUD         *contextbuilder.HUD `json:"hud"`
}

// HealthResponse is the HTTP response for GET /.
type HealthResponse struct {
	Status         string   `json:"status"`
	Version        string   `json:"version"`
	OpenNamespaces []string `json:"open_namespaces"`
}

// RegisterActorResponseBody returns a newly registered actor's secret.
type RegisterActorResponseBody struct {
	ActorID string `json:"actor_id"`
	Secret  string `json:"secret"`
}

// RebuiltTile is one cell of a GET /sim/{ns}/replay/rebuild projection.
// world.Coord isn't a valid JSON object key, so the rebuilt map is flattened
// to a slice for the wire response.
type RebuiltTile struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// RebuildResponse is the HTTP response for GET /sim/{ns}/replay/rebuild.
type RebuildResponse struct {
	Namespace string        `json:"namespace"`
	ToTick    int64         `json:"to_tick"`
	Tiles     []RebuiltTile `json:"tiles"`
}

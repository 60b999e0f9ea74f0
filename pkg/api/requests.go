package api

import "github.com/monument-sim/monument/pkg/world"

// ActionRequestBody is the HTTP body for POST /sim/{ns}/agent/{id}/action.
type ActionRequestBody struct {
	Namespace   string `json:"namespace"`
	SuperTickID int64  `json:"supertick_id"`
	ContextHash string `json:"context_hash"`
	Action      string `json:"action"`
	LLMInput    string `json:"llm_input,omitempty"`
	LLMOutput   string `json:"llm_output,omitempty"`
}

// ScoringRequestBody is the HTTP body for POST /sim/{ns}/adjudicator/scoring.
type ScoringRequestBody struct {
	SelectedTiles        []world.Coord  `json:"selected_tiles"`
	ContributionsByActor map[string]int `json:"contributions_by_actor"`
	Rationale            string         `json:"rationale"`
	Feedback             string         `json:"feedback"`
}

// CreateNamespaceBody is the HTTP body for POST /sim/{ns}.
type CreateNamespaceBody struct {
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	ScoringInterval  int64  `json:"scoring_interval,omitempty"`
	Epoch            int64  `json:"epoch,omitempty"`
	VisibilityRadius *int   `json:"visibility_radius,omitempty"`
	PointsEnabled    bool   `json:"points_enabled,omitempty"`
}

// RegisterActorBody is the HTTP body for POST /sim/{ns}/actors.
type RegisterActorBody struct {
	ActorID            string       `json:"actor_id"`
	X                  int          `json:"x"`
	Y                  int          `json:"y"`
	Facing             world.Facing `json:"facing,omitempty"`
	Scopes             []string     `json:"scopes"`
	CustomInstructions string       `json:"custom_instructions,omitempty"`
}

// Package contextbuilder assembles the agent-visible HUD payload returned
// by context fetch (§4.7). BuildSnapshot returns the HUD together with the
// canonical bytes its context_hash is taken over (engine.Canonicalize of
// the snapshot's World). The two are built separately: the hash covers the
// full grid and every actor, while the HUD's tiles and actors are filtered
// by the requesting actor's visibility and several HUD sections are
// display-only and not hashed.
package contextbuilder

import (
	"context"
	"sort"

	"github.com/monument-sim/monument/pkg/engine"
	"github.com/monument-sim/monument/pkg/store"
	"github.com/monument-sim/monument/pkg/world"
)

// RecalledMemory is one opaque item returned by a MemoryRecaller. Monument
// never interprets its contents — ranking and relevance scoring belong to
// the memory service collaborator (§6).
type RecalledMemory struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	SourceID string  `json:"source_id,omitempty"`
}

// MemoryRecaller is the narrow boundary to an out-of-process memory
// service. A nil MemoryRecaller yields an empty recalled-memories section
// rather than an error — the memory service is an optional collaborator.
type MemoryRecaller interface {
	Recall(ctx context.Context, actorID, query string, k int) ([]RecalledMemory, error)
}

// LastTickResult is §4.7 section 3: always present once tick 1 exists.
type LastTickResult struct {
	SuperTickID int64         `json:"supertick_id"`
	Intent      string        `json:"intent"`
	Outcome     string        `json:"outcome"`
	Reason      string        `json:"reason,omitempty"`
	PointDelta  int           `json:"point_delta"`
}

// HUD is the nine-section agent-visible payload, in the fixed order §4.7
// requires. Every field here is either also covered by the hashed
// canonical payload (goal, last adjudication, and tiles and actors, which
// the hash covers unfiltered) or display-only (identity, last tick result,
// chat, recalled memories, available actions) — the comment on each field
// says which.
type HUD struct {
	// Identity (section 1) — display-only, not part of the hash; an
	// actor's own position/scopes are already reflected in the hashed
	// actor list under Actors.
	Namespace   string       `json:"namespace"`
	SuperTickID int64        `json:"supertick_id"`
	AgentID     string       `json:"agent_id"`
	Position    world.Coord  `json:"position"`
	Scopes      []string     `json:"scopes"`

	// Goal (section 2) — hashed, part of canonical payload.
	Goal string `json:"goal"`

	// LastTickResult (section 3) — display-only, derived from this actor's
	// own most recent audit row, not part of the hash.
	LastTickResult *LastTickResult `json:"last_tick_result,omitempty"`

	// LastAdjudication (section 4) — hashed, part of canonical payload.
	LastAdjudication *world.Adjudication `json:"last_adjudication,omitempty"`

	// Tiles, Actors (sections 5, 6) — visibility-filtered; the hash covers
	// every tile and actor, not only the visible ones.
	Tiles  []TileView   `json:"tiles"`
	Actors []world.PublicView `json:"actors"`

	// RecentChat (section 7) — display-only, bounded count.
	RecentChat []ChatLine `json:"recent_chat"`

	// RecalledMemories (section 8) — display-only, opaque pass-through.
	RecalledMemories []RecalledMemory `json:"recalled_memories"`

	// AvailableActions (section 9) — display-only, mirrors the actor's
	// scopes as action verbs the agent may submit.
	AvailableActions []string `json:"available_actions"`
}

// TileView is one visible tile.
type TileView struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// ChatLine is one recent chat entry.
type ChatLine struct {
	SuperTickID int64  `json:"supertick_id"`
	FromID      string `json:"from_id"`
	Message     string `json:"message"`
}

// Builder assembles HUD payloads for one namespace's store + engine pair.
type Builder struct {
	store    *store.Store
	recaller MemoryRecaller
}

// New constructs a Builder. recaller may be nil.
func New(st *store.Store, recaller MemoryRecaller) *Builder {
	return &Builder{store: st, recaller: recaller}
}

// BuildSnapshot assembles the HUD for actorID against snap, along with the
// canonical bytes snap.ContextHash was computed from — callers needing to
// re-verify the hash use canonicalBytes directly rather than recomputing
// from the HUD, since the HUD additionally carries display-only fields.
func (b *Builder) BuildSnapshot(ctx context.Context, namespace string, snap engine.Snapshot, actorID string, chatLimit int) (*HUD, []byte, error) {
	w := snap.World
	actor, ok := w.Actors[actorID]
	if !ok {
		return nil, nil, engine.ErrUnknownActor
	}

	hud := &HUD{
		Namespace:        namespace,
		SuperTickID:      snap.SuperTickID,
		AgentID:          actorID,
		Position:         world.Coord{X: actor.X, Y: actor.Y},
		Scopes:           sortedScopes(actor.Scopes),
		Goal:             w.Goal,
		LastAdjudication: w.Last,
		AvailableActions: sortedScopes(actor.Scopes),
	}

	for _, c := range w.SortedTileCoords() {
		if !w.Visible(actor, c.X, c.Y) {
			continue
		}
		hud.Tiles = append(hud.Tiles, TileView{X: c.X, Y: c.Y, Color: w.Tiles[c]})
	}
	for _, id := range w.SortedActorIDs() {
		other := w.Actors[id]
		if !w.Visible(actor, other.X, other.Y) {
			continue
		}
		hud.Actors = append(hud.Actors, other.Public())
	}

	lastResult, err := b.lastTickResult(ctx, actorID, snap.SuperTickID)
	if err != nil {
		return nil, nil, err
	}
	hud.LastTickResult = lastResult

	chat, err := b.store.ChatRecent(ctx, chatLimit)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range chat {
		hud.RecentChat = append(hud.RecentChat, ChatLine{SuperTickID: c.SuperTickID, FromID: c.FromID, Message: c.Message})
	}

	if b.recaller != nil {
		memories, err := b.recaller.Recall(ctx, actorID, w.Goal, defaultRecallCount)
		if err != nil {
			return nil, nil, err
		}
		hud.RecalledMemories = memories
	} else {
		hud.RecalledMemories = []RecalledMemory{}
	}

	return hud, engine.Canonicalize(w), nil
}

// defaultRecallCount is how many memories are requested per fetch.
const defaultRecallCount = 5

func (b *Builder) lastTickResult(ctx context.Context, actorID string, currentTick int64) (*LastTickResult, error) {
	if currentTick == 0 {
		return nil, nil
	}
	rows, err := b.store.ExportAudit(ctx, currentTick-1, currentTick-1)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.ActorID == actorID {
			return &LastTickResult{
				SuperTickID: r.SuperTickID,
				Intent:      r.ActionType,
				Outcome:     r.Result,
			}, nil
		}
	}
	return nil, nil
}

func sortedScopes(scopes map[string]bool) []string {
	out := make([]string, 0, len(scopes))
	for s, on := range scopes {
		if on {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Package world holds the in-memory authoritative projection of a
// namespace's simulation state for the tick currently in flight.
package world

import (
	"sort"
	"time"
)

// Phase is one of the tick state machine's named states.
type Phase string

const (
	PhaseSetup            Phase = "SETUP"
	PhaseCollect          Phase = "COLLECT"
	PhaseMerge            Phase = "MERGE"
	PhaseBroadcast        Phase = "BROADCAST"
	PhasePausedForScoring Phase = "PAUSED_FOR_SCORING"
	PhasePaused           Phase = "PAUSED"
)

// Facing is the cardinal direction an actor is looking.
type Facing string

const (
	FacingNorth Facing = "N"
	FacingSouth Facing = "S"
	FacingEast  Facing = "E"
	FacingWest  Facing = "W"
)

// Coord identifies a grid cell.
type Coord struct {
	X int
	Y int
}

// Actor is a registered participant in a namespace.
type Actor struct {
	ID                 string
	Secret             string
	X                  int
	Y                  int
	Facing             Facing
	Scopes             map[string]bool
	CustomInstructions string
	Points             int
	EliminatedAt       *time.Time
}

// Eliminated reports whether the actor has been removed from play.
func (a *Actor) Eliminated() bool {
	return a.EliminatedAt != nil
}

// HasScope reports whether the actor may submit the given intent.
func (a *Actor) HasScope(intent string) bool {
	return a.Scopes[intent]
}

// PublicView is the subset of an actor's fields visible to other agents
// (no secret, no custom instructions).
type PublicView struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Facing Facing `json:"facing"`
}

// Public returns the redacted view of this actor for HUD/broadcast use.
func (a *Actor) Public() PublicView {
	return PublicView{ID: a.ID, X: a.X, Y: a.Y, Facing: a.Facing}
}

// Adjudication is the most recently committed scoring round, surfaced to
// agents until the next round completes.
type Adjudication struct {
	SuperTickID          int64          `json:"supertick_id"`
	SelectedTiles        []Coord        `json:"selected_tiles"`
	ContributionsByActor map[string]int `json:"contributions_by_actor"`
	Rationale            string         `json:"rationale"`
	Feedback             string         `json:"feedback"`
	CreatedAt            time.Time      `json:"created_at"`
}

// World is the authoritative in-memory state for one namespace's current
// tick. It is mutated only on the engine's serializer goroutine: by MERGE
// and scoring commits, by actor registration, and by phase changes.
type World struct {
	SuperTickID int64
	Width       int
	Height      int
	Tiles       map[Coord]string
	Actors      map[string]*Actor
	Goal        string
	Last        *Adjudication
	Phase       Phase
	Epoch       int64

	// VisibilityRadius is nil for full-grid visibility, fixed for the
	// namespace's lifetime once a namespace is created.
	VisibilityRadius *int

	// ScoringInterval is the supertick modulus that triggers
	// PAUSED_FOR_SCORING; zero disables scoring entirely.
	ScoringInterval int64
	PointsEnabled   bool
}

// New constructs an empty World for a freshly created namespace.
func New(width, height int) *World {
	return &World{
		Width:  width,
		Height: height,
		Tiles:  make(map[Coord]string),
		Actors: make(map[string]*Actor),
		Phase:  PhaseSetup,
	}
}

// InBounds reports whether (x, y) lies within the grid.
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < w.Width && y < w.Height
}

// TileAt returns the color at (x, y), or "" for an unpainted (background)
// cell.
func (w *World) TileAt(x, y int) string {
	return w.Tiles[Coord{X: x, Y: y}]
}

// ActorAt returns the non-eliminated actor occupying (x, y), if any.
func (w *World) ActorAt(x, y int) *Actor {
	for _, a := range w.Actors {
		if a.Eliminated() {
			continue
		}
		if a.X == x && a.Y == y {
			return a
		}
	}
	return nil
}

// SortedActorIDs returns all actor ids in ascending lexicographic order.
// Used wherever iteration order must be deterministic: context hashing,
// merge priority, audit emission.
func (w *World) SortedActorIDs() []string {
	ids := make([]string, 0, len(w.Actors))
	for id := range w.Actors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedTileCoords returns all painted tile coordinates in row-major order.
func (w *World) SortedTileCoords() []Coord {
	coords := make([]Coord, 0, len(w.Tiles))
	for c := range w.Tiles {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
	return coords
}

// ActiveActorIDs returns the sorted ids of all non-eliminated actors at
// the time of the call. MERGE uses it for TIMEOUT fill, so an actor
// registered during COLLECT is included in that tick's fill.
func (w *World) ActiveActorIDs() []string {
	ids := make([]string, 0, len(w.Actors))
	for id, a := range w.Actors {
		if !a.Eliminated() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Visible reports whether (x, y) is within the actor's visibility policy.
func (w *World) Visible(a *Actor, x, y int) bool {
	if w.VisibilityRadius == nil {
		return true
	}
	r := *w.VisibilityRadius
	dx := x - a.X
	if dx < 0 {
		dx = -dx
	}
	dy := y - a.Y
	if dy < 0 {
		dy = -dy
	}
	return dx <= r && dy <= r
}

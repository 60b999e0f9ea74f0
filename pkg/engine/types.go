package engine

import (
	"time"

	"github.com/monument-sim/monument/pkg/world"
)

// Intent is what an agent asked for (§4.5).
type Intent string

const (
	IntentMove  Intent = "MOVE"
	IntentPaint Intent = "PAINT"
	IntentSpeak Intent = "SPEAK"
	IntentWait  Intent = "WAIT"
	IntentSkip  Intent = "SKIP"
)

// Outcome is what the engine resolved an intent to (§4.6).
type Outcome string

const (
	OutcomeSuccess      Outcome = "SUCCESS"
	OutcomeInvalid      Outcome = "INVALID"
	OutcomeConflictLost Outcome = "CONFLICT_LOST"
	OutcomeTimeout      Outcome = "TIMEOUT"
	OutcomeNoOp         Outcome = "NO_OP"
)

// JournalStatus tracks a journal row's lifecycle within one tick.
type JournalStatus string

const (
	JournalPending   JournalStatus = "pending"
	JournalCommitted JournalStatus = "committed"
	JournalRejected  JournalStatus = "rejected"
)

// Params holds the intent-specific parameters for one journal entry. Only
// the fields relevant to Intent are populated.
type Params struct {
	Direction world.Facing `json:"direction,omitempty"`
	Color     string       `json:"color,omitempty"`
	TargetX   *int         `json:"target_x,omitempty"`
	TargetY   *int         `json:"target_y,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// JournalEntry is one staged action for a tick, keyed by (SuperTickID,
// ActorID). Exactly one row per actor per tick once it submits or is
// auto-inserted as TIMEOUT.
type JournalEntry struct {
	SuperTickID int64
	ActorID     string
	Intent      Intent
	Params      Params
	Status      JournalStatus
	Result      Outcome
	SubmittedAt time.Time
	LLMInput    string
	LLMOutput   string

	// Synthesized marks an engine-inserted TIMEOUT row for an actor that
	// never submitted before the COLLECT deadline. It has no
	// corresponding pre-existing journal row — merge INSERTs rather than
	// UPDATEs it.
	Synthesized bool
}

// ActionRequest is one agent's submitted action (§6's POST action body).
type ActionRequest struct {
	ActorID     string
	SuperTickID int64
	ContextHash string
	Secret      string
	Action      string // raw grammar string, parsed per §4.5
	LLMInput    string
	LLMOutput   string
}

// ActionResponse is returned to the client on a successful intake.
type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ScoringRequest is the adjudicator's scoring-round submission (§4.8, §6).
type ScoringRequest struct {
	SelectedTiles        []world.Coord
	ContributionsByActor map[string]int
	Rationale            string
	Feedback             string
}

// Snapshot is the read-only, point-in-time view of a namespace's engine
// state exposed to concurrent readers (context fetch, status, replay).
// Readers never touch the live World directly — only a Snapshot, which is
// never mutated in place; the engine swaps in a new one after every
// transition.
type Snapshot struct {
	SuperTickID int64
	ContextHash string
	Phase       world.Phase
	Epoch       int64
	World       *world.World
}

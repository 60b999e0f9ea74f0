package events

// TickStartedPayload is published when a namespace enters COLLECT for a
// new supertick.
type TickStartedPayload struct {
	Type        string `json:"type"` // always EventTypeTickStarted
	SuperTickID int64  `json:"supertick_id"`
	ContextHash string `json:"context_hash"`
	Timestamp   string `json:"timestamp"` // RFC3339Nano
}

// SubmissionReceivedPayload is published whenever an actor's action is
// accepted into the journal during COLLECT.
type SubmissionReceivedPayload struct {
	Type        string `json:"type"` // always EventTypeSubmissionRecv
	SuperTickID int64  `json:"supertick_id"`
	ActorID     string `json:"actor_id"`
	Intent      string `json:"intent"`
	Timestamp   string `json:"timestamp"`
}

// TickResolvedPayload is published after a MERGE commit durably lands.
// Outcomes maps each actor that had a pending submission to "submitted"
// and every other active actor to TIMEOUT; the per-actor results of the
// merge are in the audit rows, not here.
type TickResolvedPayload struct {
	Type        string         `json:"type"` // always EventTypeTickResolved
	SuperTickID int64          `json:"supertick_id"`
	Outcomes    map[string]string `json:"outcomes"` // actor_id -> "submitted" or TIMEOUT
	Timestamp   string         `json:"timestamp"`
}

// PausedForScoringPayload is published when the engine enters
// PAUSED_FOR_SCORING.
type PausedForScoringPayload struct {
	Type          string  `json:"type"` // always EventTypePausedForScoring
	SuperTickID   int64   `json:"supertick_id"`
	SelectedTiles []string `json:"selected_tiles,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// ScoringCommittedPayload is published after a scoring round is committed;
// the namespace then resumes COLLECT, or enters PAUSED once the epoch is
// reached.
type ScoringCommittedPayload struct {
	Type        string `json:"type"` // always EventTypeScoringCommitted
	SuperTickID int64  `json:"supertick_id"`
	Rationale   string `json:"rationale,omitempty"`
	Timestamp   string `json:"timestamp"`
}

package engine

import "errors"

// Sentinel errors for the taxonomy in §7. Error text for the three
// most-automated cases carries the exact substring the agent-side client
// is required to be able to classify without schema surgery:
// "already submitted", "Context hash mismatch", "Supertick mismatch".
var (
	ErrUnknownActor        = errors.New("unknown actor")
	ErrAuthFailed          = errors.New("auth failed: secret mismatch")
	ErrScopeDenied         = errors.New("scope denied: intent not permitted for actor")
	ErrPhaseMismatch       = errors.New("phase mismatch: namespace is not in COLLECT")
	ErrSupertickMismatch   = errors.New("Supertick mismatch")
	ErrContextHashMismatch = errors.New("Context hash mismatch")
	ErrAlreadySubmitted    = errors.New("already submitted")
	ErrMalformedAction     = errors.New("malformed action")
	ErrNotPausedForScoring = errors.New("namespace is not paused for scoring")
	ErrEngineStopped       = errors.New("engine stopped")
)

package engine

import (
	"fmt"
	"time"

	"github.com/monument-sim/monument/pkg/world"
)

// validateSubmission runs the intake checks of §4.4 in order, failing fast
// on the first violation. It must run while the engine holds its single
// serializer slot for this namespace, so World and pending reads are safe
// without extra locking.
func (e *Engine) validateSubmission(req ActionRequest) (Intent, Params, error) {
	if e.world.Phase != world.PhaseCollect {
		return "", Params{}, ErrPhaseMismatch
	}

	actor, ok := e.world.Actors[req.ActorID]
	if !ok {
		return "", Params{}, fmt.Errorf("%w: %q", ErrUnknownActor, req.ActorID)
	}
	if actor.Eliminated() {
		return "", Params{}, fmt.Errorf("%w: %q is eliminated", ErrUnknownActor, req.ActorID)
	}

	if req.Secret != actor.Secret {
		return "", Params{}, ErrAuthFailed
	}

	if req.SuperTickID != e.world.SuperTickID {
		return "", Params{}, fmt.Errorf("%w: submitted for %d, namespace is at %d",
			ErrSupertickMismatch, req.SuperTickID, e.world.SuperTickID)
	}

	if req.ContextHash != e.snapshot.ContextHash {
		return "", Params{}, fmt.Errorf("%w: submitted %s, current %s",
			ErrContextHashMismatch, req.ContextHash, e.snapshot.ContextHash)
	}

	if _, submitted := e.pending[req.ActorID]; submitted {
		return "", Params{}, fmt.Errorf("%w: actor %q", ErrAlreadySubmitted, req.ActorID)
	}

	intent, rest, err := parseIntent(req.Action)
	if err != nil {
		return "", Params{}, err
	}

	if !actor.HasScope(string(intent)) {
		return "", Params{}, fmt.Errorf("%w: %q may not %s", ErrScopeDenied, req.ActorID, intent)
	}

	params, err := parseParams(intent, rest)
	if err != nil {
		return "", Params{}, err
	}

	if intent == IntentMove || intent == IntentPaint {
		if err := e.validateTarget(actor, intent, params); err != nil {
			return "", Params{}, err
		}
	}

	return intent, params, nil
}

// validateTarget checks that an in-bounds MOVE destination or explicit
// PAINT target is reachable — this runs at intake against the snapshot the
// agent saw, not the live World; real conflicts are resolved at MERGE.
func (e *Engine) validateTarget(actor *world.Actor, intent Intent, params Params) error {
	switch intent {
	case IntentMove:
		dx, dy := directionDelta(params.Direction)
		x, y := actor.X+dx, actor.Y+dy
		if !e.world.InBounds(x, y) {
			return fmt.Errorf("%w: MOVE %s would leave the grid", ErrMalformedAction, params.Direction)
		}
	case IntentPaint:
		if params.TargetX != nil && params.TargetY != nil {
			if !e.world.InBounds(*params.TargetX, *params.TargetY) {
				return fmt.Errorf("%w: PAINT target (%d, %d) is out of bounds",
					ErrMalformedAction, *params.TargetX, *params.TargetY)
			}
		}
	}
	return nil
}

// Submit hands one agent's action to the engine's serializer goroutine,
// which validates it and, on success, stages it for the current tick, and
// waits for the result, so the caller-visible result reflects the world
// exactly as it stood for this tick's COLLECT window.
func (e *Engine) Submit(req ActionRequest) (ActionResponse, error) {
	result := make(chan submitResult, 1)
	cmd := submitCmd{req: req, result: result}
	select {
	case e.commands <- cmd:
	case <-e.stopCh:
		return ActionResponse{}, ErrEngineStopped
	}
	r := <-result
	return r.resp, r.err
}

func (e *Engine) handleSubmit(req ActionRequest) (ActionResponse, error) {
	intent, params, err := e.validateSubmission(req)
	if err != nil {
		return ActionResponse{}, err
	}

	entry := JournalEntry{
		SuperTickID: req.SuperTickID,
		ActorID:     req.ActorID,
		Intent:      intent,
		Params:      params,
		Status:      JournalPending,
		SubmittedAt: time.Now().UTC(),
		LLMInput:    req.LLMInput,
		LLMOutput:   req.LLMOutput,
	}

	if err := e.insertPendingJournal(entry); err != nil {
		return ActionResponse{}, err
	}
	e.pending[req.ActorID] = entry
	e.events.Broadcast(e.submissionReceivedPayload(req.ActorID))

	if len(e.pending) >= len(e.world.ActiveActorIDs()) {
		e.resetCollectTimer(0)
	}

	return ActionResponse{Status: "accepted", Message: "action staged for current tick"}, nil
}

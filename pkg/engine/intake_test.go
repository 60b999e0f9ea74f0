package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/events"
	"github.com/monument-sim/monument/pkg/store"
	"github.com/monument-sim/monument/pkg/world"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, _, err := store.Open(context.Background(), t.TempDir(), "intake-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	w := world.New(8, 8)
	w.Phase = world.PhaseCollect
	w.SuperTickID = 1
	w.Actors["mover"] = &world.Actor{
		ID:     "mover",
		Secret: "s3cret",
		X:      1,
		Y:      1,
		Facing: world.FacingNorth,
		Scopes: map[string]bool{"MOVE": true, "PAINT": true, "SPEAK": true, "WAIT": true, "SKIP": true},
	}

	e := New("intake-test", st, w, events.NewHub(), time.Minute)
	e.collectTimer = time.NewTimer(time.Hour)
	e.collectTimer.Stop()
	e.freezeSnapshot()
	return e
}

func baseRequest(e *Engine) ActionRequest {
	return ActionRequest{
		ActorID:     "mover",
		SuperTickID: e.world.SuperTickID,
		ContextHash: e.snapshot.ContextHash,
		Secret:      "s3cret",
		Action:      "MOVE N",
	}
}

func TestValidateSubmission_Success(t *testing.T) {
	e := newTestEngine(t)
	intent, params, err := e.validateSubmission(baseRequest(e))

	require.NoError(t, err)
	require.Equal(t, IntentMove, intent)
	require.Equal(t, world.FacingNorth, params.Direction)
}

func TestValidateSubmission_PhaseMismatch(t *testing.T) {
	e := newTestEngine(t)
	e.world.Phase = world.PhasePausedForScoring

	_, _, err := e.validateSubmission(baseRequest(e))
	require.ErrorIs(t, err, ErrPhaseMismatch)
}

func TestValidateSubmission_UnknownActor(t *testing.T) {
	e := newTestEngine(t)
	req := baseRequest(e)
	req.ActorID = "ghost"

	_, _, err := e.validateSubmission(req)
	require.ErrorIs(t, err, ErrUnknownActor)
}

func TestValidateSubmission_EliminatedActor(t *testing.T) {
	e := newTestEngine(t)
	now := time.Now()
	e.world.Actors["mover"].EliminatedAt = &now

	_, _, err := e.validateSubmission(baseRequest(e))
	require.ErrorIs(t, err, ErrUnknownActor)
}

func TestValidateSubmission_AuthFailed(t *testing.T) {
	e := newTestEngine(t)
	req := baseRequest(e)
	req.Secret = "wrong"

	_, _, err := e.validateSubmission(req)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestValidateSubmission_SupertickMismatch(t *testing.T) {
	e := newTestEngine(t)
	req := baseRequest(e)
	req.SuperTickID = 99

	_, _, err := e.validateSubmission(req)
	require.ErrorIs(t, err, ErrSupertickMismatch)
	require.Contains(t, err.Error(), "Supertick mismatch")
}

func TestValidateSubmission_ContextHashMismatch(t *testing.T) {
	e := newTestEngine(t)
	req := baseRequest(e)
	req.ContextHash = "stale-hash"

	_, _, err := e.validateSubmission(req)
	require.ErrorIs(t, err, ErrContextHashMismatch)
	require.Contains(t, err.Error(), "Context hash mismatch")
}

func TestValidateSubmission_AlreadySubmitted(t *testing.T) {
	e := newTestEngine(t)
	e.pending["mover"] = JournalEntry{ActorID: "mover"}

	_, _, err := e.validateSubmission(baseRequest(e))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.Contains(t, err.Error(), "already submitted")
}

func TestValidateSubmission_ScopeDenied(t *testing.T) {
	e := newTestEngine(t)
	e.world.Actors["mover"].Scopes = map[string]bool{"SPEAK": true}

	_, _, err := e.validateSubmission(baseRequest(e))
	require.ErrorIs(t, err, ErrScopeDenied)
}

func TestValidateSubmission_ScopeDeniedTakesPrecedenceOverMalformedParams(t *testing.T) {
	e := newTestEngine(t)
	e.world.Actors["mover"].Scopes = map[string]bool{"MOVE": true} // no PAINT scope

	req := baseRequest(e)
	req.Action = "PAINT badcolor" // also malformed, but scope is checked first

	_, _, err := e.validateSubmission(req)
	require.ErrorIs(t, err, ErrScopeDenied)
	require.False(t, errors.Is(err, ErrMalformedAction))
}

func TestValidateSubmission_MoveOutOfBounds(t *testing.T) {
	e := newTestEngine(t)
	e.world.Actors["mover"].X = 0
	e.world.Actors["mover"].Y = 0

	req := baseRequest(e)
	req.Action = "MOVE W"

	_, _, err := e.validateSubmission(req)
	require.ErrorIs(t, err, ErrMalformedAction)
}

func TestHandleSubmit_StagesJournalEntry(t *testing.T) {
	e := newTestEngine(t)
	resp, err := e.handleSubmit(baseRequest(e))

	require.NoError(t, err)
	require.Equal(t, "accepted", resp.Status)
	require.Contains(t, e.pending, "mover")
	require.Equal(t, IntentMove, e.pending["mover"].Intent)
}

func TestHandleSubmit_LastActorArmsImmediateCollect(t *testing.T) {
	e := newTestEngine(t)
	// mover is the only active actor, so submitting drains the pending set
	// to equal the active actor count and should re-arm the collect timer
	// to fire immediately rather than waiting out the full timeout.
	_, err := e.handleSubmit(baseRequest(e))
	require.NoError(t, err)

	select {
	case <-e.collectTimer.C:
	case <-time.After(time.Second):
		t.Fatal("expected collect timer to fire promptly once all active actors submitted")
	}
}

func TestSubmit_EngineStopped(t *testing.T) {
	e := newTestEngine(t)
	close(e.stopCh)

	_, err := e.Submit(baseRequest(e))
	require.True(t, errors.Is(err, ErrEngineStopped))
}

// Package engine drives one namespace's Bulk Synchronous Parallel tick
// state machine: COLLECT intake, MERGE conflict resolution and commit,
// BROADCAST notification, with PAUSED_FOR_SCORING and PAUSED as the two
// named rest states (§4.3).
//
// Exactly one goroutine — the serializer started by Start — ever reads or
// writes the namespace's World and pending journal map: a single-consumer
// select loop that receives the next command for this namespace, processes
// it to completion, then loops. Every public method hands its work to that
// goroutine over a channel and waits for the reply, so callers never need
// their own locking.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/monument-sim/monument/pkg/events"
	"github.com/monument-sim/monument/pkg/store"
	"github.com/monument-sim/monument/pkg/world"
)

// retryBackoff is how long the engine waits before retrying a MERGE commit
// that failed on a transient store error (ErrBusy).
const retryBackoff = 500 * time.Millisecond

type submitCmd struct {
	req    ActionRequest
	result chan submitResult
}

type submitResult struct {
	resp ActionResponse
	err  error
}

type scoreCmd struct {
	req    ScoringRequest
	result chan error
}

type addActorCmd struct {
	actor  *world.Actor
	result chan error
}

// Engine owns the tick state machine for one namespace.
type Engine struct {
	id     string
	store  *store.Store
	world  *world.World
	events *events.Hub

	collectTimeout time.Duration
	collectTimer   *time.Timer

	pending map[string]JournalEntry

	commands chan interface{}
	stopCh   chan struct{}
	doneCh   chan struct{}

	snapMu   chan struct{} // binary semaphore guarding snapshot below
	snapshot Snapshot
}

// New constructs an Engine for namespace id over an already-loaded World.
// The returned Engine is idle until Start is called.
func New(id string, st *store.Store, w *world.World, hub *events.Hub, collectTimeout time.Duration) *Engine {
	if collectTimeout <= 0 {
		collectTimeout = 30 * time.Second
	}
	return &Engine{
		id:             id,
		store:          st,
		world:          w,
		events:         hub,
		collectTimeout: collectTimeout,
		pending:        make(map[string]JournalEntry),
		commands:       make(chan interface{}),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
		snapMu:         make(chan struct{}, 1),
	}
}

// Start launches the serializer goroutine. A World loaded in
// PAUSED_FOR_SCORING or PAUSED stays in that phase with its snapshot
// frozen; any other World enters COLLECT for the supertick it is on.
func (e *Engine) Start() {
	e.collectTimer = time.NewTimer(e.collectTimeout)
	if e.world.Phase != world.PhasePausedForScoring && e.world.Phase != world.PhasePaused {
		e.beginCollect()
	} else {
		e.collectTimer.Stop()
		e.freezeSnapshot()
	}
	go e.run()
}

// Stop signals the serializer goroutine to exit and waits for it.
func (e *Engine) Stop() {
	close(e.stopCh)
	<-e.doneCh
}

func (e *Engine) run() {
	defer close(e.doneCh)
	for {
		select {
		case cmd := <-e.commands:
			e.dispatch(cmd)
		case <-e.collectTimer.C:
			e.onCollectDeadline()
		case <-e.stopCh:
			e.collectTimer.Stop()
			return
		}
	}
}

func (e *Engine) dispatch(cmd interface{}) {
	switch c := cmd.(type) {
	case submitCmd:
		resp, err := e.handleSubmit(c.req)
		c.result <- submitResult{resp: resp, err: err}
	case scoreCmd:
		c.result <- e.handleScore(c.req)
	case addActorCmd:
		c.result <- e.handleAddActor(c.actor)
	}
}

// beginCollect freezes a new snapshot for the current supertick, clears
// the pending journal, and arms the COLLECT deadline timer.
func (e *Engine) beginCollect() {
	e.world.Phase = world.PhaseCollect
	e.pending = make(map[string]JournalEntry)
	e.freezeSnapshot()
	e.resetCollectTimer(e.collectTimeout)
	e.events.Broadcast(e.marshalEvent(events.TickStartedPayload{
		Type:        events.EventTypeTickStarted,
		SuperTickID: e.world.SuperTickID,
		ContextHash: e.snapshotCopy().ContextHash,
		Timestamp:   nowRFC3339(),
	}))
}

// onCollectDeadline runs when no more submissions can arrive for this
// tick, either because the timer expired or every active actor already
// submitted. It commits the MERGE transaction and advances the phase.
func (e *Engine) onCollectDeadline() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcomes := e.pendingOutcomesPreview()
	if err := e.merge(ctx); err != nil {
		slog.Error("merge commit failed, retrying", "namespace", e.id, "error", err)
		e.resetCollectTimer(retryBackoff)
		return
	}

	e.events.Broadcast(e.marshalEvent(events.TickResolvedPayload{
		Type:        events.EventTypeTickResolved,
		SuperTickID: e.world.SuperTickID - 1,
		Outcomes:    outcomes,
		Timestamp:   nowRFC3339(),
	}))

	switch e.world.Phase {
	case world.PhaseCollect:
		e.beginCollect()
	case world.PhasePausedForScoring:
		e.collectTimer.Stop()
		e.freezeSnapshot()
		e.events.Broadcast(e.marshalEvent(events.PausedForScoringPayload{
			Type:        events.EventTypePausedForScoring,
			SuperTickID: e.world.SuperTickID,
			Timestamp:   nowRFC3339(),
		}))
	case world.PhasePaused:
		e.collectTimer.Stop()
		e.freezeSnapshot()
	}
}

// pendingOutcomesPreview is taken before merge overwrites e.pending via
// beginCollect, purely to label the TickResolved broadcast; the journal
// and audit rows remain the source of truth for what actually committed.
func (e *Engine) pendingOutcomesPreview() map[string]string {
	out := make(map[string]string, len(e.pending))
	for id := range e.pending {
		out[id] = "submitted"
	}
	for _, id := range e.world.ActiveActorIDs() {
		if _, ok := out[id]; !ok {
			out[id] = string(OutcomeTimeout)
		}
	}
	return out
}

// resetCollectTimer rearms the deadline timer, draining any stale tick so
// Reset never races a pending receive (time.Timer's documented pattern).
func (e *Engine) resetCollectTimer(d time.Duration) {
	if !e.collectTimer.Stop() {
		select {
		case <-e.collectTimer.C:
		default:
		}
	}
	if d <= 0 {
		d = time.Nanosecond
	}
	e.collectTimer.Reset(d)
}

func (e *Engine) freezeSnapshot() {
	snap := Snapshot{
		SuperTickID: e.world.SuperTickID,
		ContextHash: ContextHash(e.world),
		Phase:       e.world.Phase,
		Epoch:       e.world.Epoch,
		World:       e.world,
	}
	e.snapMu <- struct{}{}
	e.snapshot = snap
	<-e.snapMu
}

func (e *Engine) snapshotCopy() Snapshot {
	e.snapMu <- struct{}{}
	s := e.snapshot
	<-e.snapMu
	return s
}

// phaseAfterMerge decides the tick state the namespace enters once
// nextTick begins, resolving the Open Questions fixed in SPEC_FULL.md:
// epoch comparison takes precedence over a scoring-interval boundary that
// falls on the same tick.
func (e *Engine) phaseAfterMerge(nextTick int64) world.Phase {
	if e.world.Epoch > 0 && nextTick >= e.world.Epoch {
		return world.PhasePaused
	}
	if e.world.ScoringInterval > 0 && nextTick%e.world.ScoringInterval == 0 {
		return world.PhasePausedForScoring
	}
	return world.PhaseCollect
}

// phaseAfterScore decides the phase once an adjudicator confirms a
// PAUSED_FOR_SCORING round. The current tick already triggered the
// scoring-interval boundary that led here, so that modulus must not be
// re-applied against the same tick — only the epoch check still matters.
func (e *Engine) phaseAfterScore(tick int64) world.Phase {
	if e.world.Epoch > 0 && tick >= e.world.Epoch {
		return world.PhasePaused
	}
	return world.PhaseCollect
}

// insertPendingJournal stages one accepted action as a 'pending' journal
// row, durable ahead of the tick's eventual MERGE commit so a crash
// between COLLECT and MERGE never silently drops a submission.
func (e *Engine) insertPendingJournal(entry JournalEntry) error {
	paramsJSON, err := json.Marshal(entry.Params)
	if err != nil {
		return fmt.Errorf("%w: marshaling params: %v", store.ErrIO, err)
	}
	ctx := context.Background()
	return e.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO journal
			(supertick_id, actor_id, intent, params_json, status, result, submitted_at, llm_input, llm_output)
			VALUES (?, ?, ?, ?, 'pending', '', ?, ?, ?)`,
			entry.SuperTickID, entry.ActorID, string(entry.Intent), string(paramsJSON),
			entry.SubmittedAt.Format(time.RFC3339Nano), entry.LLMInput, entry.LLMOutput)
		return err
	})
}

func (e *Engine) submissionReceivedPayload(actorID string) []byte {
	entry := e.pending[actorID]
	return e.marshalEvent(events.SubmissionReceivedPayload{
		Type:        events.EventTypeSubmissionRecv,
		SuperTickID: e.world.SuperTickID,
		ActorID:     actorID,
		Intent:      string(entry.Intent),
		Timestamp:   nowRFC3339(),
	})
}

func (e *Engine) marshalEvent(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal event payload", "namespace", e.id, "error", err)
		return nil
	}
	return data
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Status returns the current frozen Snapshot without crossing into the
// serializer goroutine's command queue — safe because the snapshot itself
// is only ever replaced wholesale, never mutated in place.
func (e *Engine) Status() Snapshot {
	return e.snapshotCopy()
}

// Snapshot is an alias for Status kept for callers (context builder,
// replay) that read more naturally calling Snapshot().
func (e *Engine) Snapshot() Snapshot {
	return e.snapshotCopy()
}

// AddActor registers a new actor against the live World. Routed through
// the serializer command channel like Submit/Score so actor registration
// can never race a MERGE in flight — the in-memory World is a
// single-writer structure, full stop, regardless of which caller wants to
// touch it.
func (e *Engine) AddActor(actor *world.Actor) error {
	result := make(chan error, 1)
	select {
	case e.commands <- addActorCmd{actor: actor, result: result}:
	case <-e.stopCh:
		return ErrEngineStopped
	}
	return <-result
}

func (e *Engine) handleAddActor(actor *world.Actor) error {
	if _, exists := e.world.Actors[actor.ID]; exists {
		return fmt.Errorf("actor %q already exists", actor.ID)
	}
	if !e.world.InBounds(actor.X, actor.Y) {
		return fmt.Errorf("actor %q position (%d, %d) is out of bounds", actor.ID, actor.X, actor.Y)
	}
	e.world.Actors[actor.ID] = actor
	return nil
}

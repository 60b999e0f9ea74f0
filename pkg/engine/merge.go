package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/monument-sim/monument/pkg/store"
	"github.com/monument-sim/monument/pkg/world"
)

// applied is one actor's fully resolved outcome for the tick, computed in
// memory before the transaction opens so the transaction body is pure
// writes with no further decision-making — mutation paths never return
// control with an open transaction (§9).
type applied struct {
	entry      JournalEntry
	outcome    Outcome
	newX, newY int
	moved      bool
	newFacing  world.Facing
	paintX     int
	paintY     int
	oldColor   string
	newColor   string
	painted    bool
	spoke      bool
}

// merge executes §4.6 once per tick inside a single transaction: resolves
// conflicts deterministically, writes audit rows for every active actor
// (including synthesized TIMEOUTs), updates tiles/actors/tile_history/chat,
// and advances supertick_id and phase.
func (e *Engine) merge(ctx context.Context) error {
	entries := e.buildMergeEntries()
	resolved := e.resolveEntries(entries)

	tickN := e.world.SuperTickID
	now := time.Now().UTC()
	hash := e.snapshot.ContextHash

	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, a := range resolved {
			if err := writeJournalResult(ctx, tx, tickN, a); err != nil {
				return err
			}
			if err := writeAudit(ctx, tx, tickN, hash, now, a); err != nil {
				return err
			}
			if a.painted {
				if err := writeTilePaint(ctx, tx, tickN, now, a); err != nil {
					return err
				}
			}
			if a.moved {
				if _, err := tx.ExecContext(ctx, `UPDATE actors SET x = ?, y = ?, facing = ? WHERE id = ?`,
					a.newX, a.newY, string(a.newFacing), a.entry.ActorID); err != nil {
					return fmt.Errorf("%w: updating actor position: %v", store.ErrIO, err)
				}
			}
			if a.spoke {
				if _, err := tx.ExecContext(ctx, `INSERT INTO chat_log (supertick_id, from_id, message, created_at)
					VALUES (?, ?, ?, ?)`, tickN, a.entry.ActorID, a.entry.Params.Message, now.Format(time.RFC3339Nano)); err != nil {
					return fmt.Errorf("%w: inserting chat row: %v", store.ErrIO, err)
				}
			}
		}

		nextTick := tickN + 1
		nextPhase := e.phaseAfterMerge(nextTick)
		if _, err := tx.ExecContext(ctx, `UPDATE world_meta SET supertick_id = ?, phase = ? WHERE id = 1`,
			nextTick, string(nextPhase)); err != nil {
			return fmt.Errorf("%w: advancing world_meta: %v", store.ErrIO, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.applyInMemory(resolved)
	e.world.SuperTickID = tickN + 1
	e.world.Phase = e.phaseAfterMerge(e.world.SuperTickID)
	return nil
}

// buildMergeEntries returns every pending journal entry plus synthesized
// TIMEOUT rows for active actors that never submitted.
func (e *Engine) buildMergeEntries() []JournalEntry {
	entries := make([]JournalEntry, 0, len(e.world.Actors))
	for _, id := range e.world.ActiveActorIDs() {
		if j, ok := e.pending[id]; ok {
			entries = append(entries, j)
			continue
		}
		entries = append(entries, JournalEntry{
			SuperTickID: e.world.SuperTickID,
			ActorID:     id,
			Intent:      IntentWait,
			Status:      JournalPending,
			SubmittedAt: time.Now().UTC(),
			Synthesized: true,
		})
	}
	return entries
}

// resolveEntries applies the deterministic conflict rules of §4.6 and
// returns the fully decided outcome for each entry.
func (e *Engine) resolveEntries(entries []JournalEntry) []applied {
	occupied := make(map[[2]int]string, len(e.world.Actors))
	for id, a := range e.world.Actors {
		if !a.Eliminated() {
			occupied[[2]int{a.X, a.Y}] = id
		}
	}

	moveDest := make(map[[2]int][]JournalEntry)
	destOf := make(map[string][2]int)
	for _, entry := range entries {
		if entry.Intent != IntentMove || entry.Synthesized {
			continue
		}
		actor := e.world.Actors[entry.ActorID]
		dx, dy := directionDelta(entry.Params.Direction)
		dest := [2]int{actor.X + dx, actor.Y + dy}
		destOf[entry.ActorID] = dest
		moveDest[dest] = append(moveDest[dest], entry)
	}
	moveWinners := make(map[string]bool)
	for dest, candidates := range moveDest {
		// A cell occupied in S(n) blocks every mover into it, even if the
		// occupant is itself moving away this tick: resolution is single-pass
		// over S(n), never against the post-merge state.
		if _, ok := occupied[dest]; ok {
			continue
		}
		moveWinners[pickWinner(candidates).ActorID] = true
	}

	paintTarget := make(map[[2]int][]JournalEntry)
	targetOf := make(map[string][2]int)
	for _, entry := range entries {
		if entry.Intent != IntentPaint || entry.Synthesized {
			continue
		}
		actor := e.world.Actors[entry.ActorID]
		x, y := actor.X, actor.Y
		if entry.Params.TargetX != nil && entry.Params.TargetY != nil {
			x, y = *entry.Params.TargetX, *entry.Params.TargetY
		}
		targetOf[entry.ActorID] = [2]int{x, y}
		paintTarget[[2]int{x, y}] = append(paintTarget[[2]int{x, y}], entry)
	}
	paintWinners := make(map[string]bool)
	for _, candidates := range paintTarget {
		paintWinners[pickWinner(candidates).ActorID] = true
	}

	out := make([]applied, 0, len(entries))
	for _, entry := range entries {
		a := applied{entry: entry}
		switch {
		case entry.Synthesized:
			a.outcome = OutcomeTimeout
		case entry.Intent == IntentMove:
			if !moveWinners[entry.ActorID] {
				a.outcome = OutcomeConflictLost
			} else {
				dest := destOf[entry.ActorID]
				if !e.world.InBounds(dest[0], dest[1]) {
					a.outcome = OutcomeInvalid
				} else {
					a.outcome = OutcomeSuccess
					a.moved = true
					a.newX, a.newY = dest[0], dest[1]
					a.newFacing = entry.Params.Direction
				}
			}
		case entry.Intent == IntentPaint:
			if !paintWinners[entry.ActorID] {
				a.outcome = OutcomeConflictLost
			} else {
				target := targetOf[entry.ActorID]
				if !e.world.InBounds(target[0], target[1]) {
					a.outcome = OutcomeInvalid
				} else {
					old := e.world.TileAt(target[0], target[1])
					if old == entry.Params.Color {
						a.outcome = OutcomeNoOp
					} else {
						a.outcome = OutcomeSuccess
						a.painted = true
						a.paintX, a.paintY = target[0], target[1]
						a.oldColor, a.newColor = old, entry.Params.Color
					}
				}
			}
		case entry.Intent == IntentSpeak:
			a.outcome = OutcomeSuccess
			a.spoke = true
		case entry.Intent == IntentWait, entry.Intent == IntentSkip:
			a.outcome = OutcomeSuccess
		default:
			a.outcome = OutcomeInvalid
		}
		out = append(out, a)
	}
	return out
}

func directionDelta(dir world.Facing) (int, int) {
	switch dir {
	case world.FacingNorth:
		return 0, -1
	case world.FacingSouth:
		return 0, 1
	case world.FacingEast:
		return 1, 0
	case world.FacingWest:
		return -1, 0
	default:
		return 0, 0
	}
}

func (e *Engine) applyInMemory(resolved []applied) {
	for _, a := range resolved {
		if a.moved {
			actor := e.world.Actors[a.entry.ActorID]
			actor.X, actor.Y, actor.Facing = a.newX, a.newY, a.newFacing
		}
		if a.painted {
			e.world.Tiles[world.Coord{X: a.paintX, Y: a.paintY}] = a.newColor
		}
	}
}

func writeJournalResult(ctx context.Context, tx *sql.Tx, tick int64, a applied) error {
	if a.entry.Synthesized {
		paramsJSON, _ := json.Marshal(a.entry.Params)
		_, err := tx.ExecContext(ctx, `INSERT INTO journal
			(supertick_id, actor_id, intent, params_json, status, result, submitted_at)
			VALUES (?, ?, ?, ?, 'committed', ?, ?)`,
			tick, a.entry.ActorID, string(a.entry.Intent), string(paramsJSON), string(a.outcome),
			a.entry.SubmittedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("%w: inserting synthesized journal row: %v", store.ErrIO, err)
		}
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE journal SET status = 'committed', result = ?
		WHERE supertick_id = ? AND actor_id = ?`, string(a.outcome), tick, a.entry.ActorID)
	if err != nil {
		return fmt.Errorf("%w: finalizing journal row: %v", store.ErrIO, err)
	}
	return nil
}

func writeAudit(ctx context.Context, tx *sql.Tx, tick int64, hash string, now time.Time, a applied) error {
	paramsJSON, _ := json.Marshal(a.entry.Params)
	_, err := tx.ExecContext(ctx, `INSERT INTO audit
		(supertick_id, actor_id, action_type, params_json, result, context_hash, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tick, a.entry.ActorID, string(a.entry.Intent), string(paramsJSON), string(a.outcome), hash,
		now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: inserting audit row: %v", store.ErrIO, err)
	}
	return nil
}

func writeTilePaint(ctx context.Context, tx *sql.Tx, tick int64, now time.Time, a applied) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tiles (x, y, color) VALUES (?, ?, ?)
		ON CONFLICT(x, y) DO UPDATE SET color = excluded.color`, a.paintX, a.paintY, a.newColor)
	if err != nil {
		return fmt.Errorf("%w: upserting tile: %v", store.ErrIO, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO tile_history
		(x, y, supertick_id, actor_id, old_color, new_color, action_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.paintX, a.paintY, tick, a.entry.ActorID, a.oldColor, a.newColor, string(a.entry.Intent),
		now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: inserting tile history row: %v", store.ErrIO, err)
	}
	return nil
}

package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/monument-sim/monument/pkg/events"
	"github.com/monument-sim/monument/pkg/store"
	"github.com/monument-sim/monument/pkg/world"
)

// Score submits one adjudication round against a namespace that is
// currently PAUSED_FOR_SCORING (§4.8). It is serialized through the same
// command channel as Submit so a scoring commit can never race a MERGE.
func (e *Engine) Score(req ScoringRequest) error {
	result := make(chan error, 1)
	select {
	case e.commands <- scoreCmd{req: req, result: result}:
	case <-e.stopCh:
		return ErrEngineStopped
	}
	return <-result
}

func (e *Engine) handleScore(req ScoringRequest) error {
	if e.world.Phase != world.PhasePausedForScoring {
		return ErrNotPausedForScoring
	}

	now := time.Now().UTC()
	adjudication := &world.Adjudication{
		SuperTickID:          e.world.SuperTickID,
		SelectedTiles:        req.SelectedTiles,
		ContributionsByActor: req.ContributionsByActor,
		Rationale:            req.Rationale,
		Feedback:             req.Feedback,
		CreatedAt:            now,
	}

	tilesJSON, err := json.Marshal(adjudication.SelectedTiles)
	if err != nil {
		return fmt.Errorf("%w: marshaling selected tiles: %v", store.ErrIO, err)
	}
	contribJSON, err := json.Marshal(adjudication.ContributionsByActor)
	if err != nil {
		return fmt.Errorf("%w: marshaling contributions: %v", store.ErrIO, err)
	}
	fullJSON, err := json.Marshal(adjudication)
	if err != nil {
		return fmt.Errorf("%w: marshaling adjudication: %v", store.ErrIO, err)
	}

	nextTick := e.world.SuperTickID
	nextPhase := e.phaseAfterScore(nextTick)

	ctx := context.Background()
	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO scoring_rounds
			(supertick_id, selected_tiles_json, contributions_json, rationale, feedback, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			adjudication.SuperTickID, string(tilesJSON), string(contribJSON),
			adjudication.Rationale, adjudication.Feedback, now.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("%w: inserting scoring round: %v", store.ErrIO, err)
		}

		if e.world.PointsEnabled {
			for actorID, delta := range adjudication.ContributionsByActor {
				if _, err := tx.ExecContext(ctx, `UPDATE actors SET points = points + ? WHERE id = ?`, delta, actorID); err != nil {
					return fmt.Errorf("%w: updating actor points: %v", store.ErrIO, err)
				}
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE world_meta SET phase = ?, last_adjudication_json = ? WHERE id = 1`,
			string(nextPhase), string(fullJSON)); err != nil {
			return fmt.Errorf("%w: updating world_meta after scoring: %v", store.ErrIO, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if e.world.PointsEnabled {
		for actorID, delta := range adjudication.ContributionsByActor {
			if a, ok := e.world.Actors[actorID]; ok {
				a.Points += delta
			}
		}
	}
	e.world.Last = adjudication
	e.world.Phase = nextPhase

	e.events.Broadcast(e.marshalEvent(events.ScoringCommittedPayload{
		Type:        events.EventTypeScoringCommitted,
		SuperTickID: adjudication.SuperTickID,
		Rationale:   adjudication.Rationale,
		Timestamp:   nowRFC3339(),
	}))

	if nextPhase == world.PhaseCollect {
		e.beginCollect()
	} else {
		e.collectTimer.Stop()
		e.freezeSnapshot()
	}
	return nil
}

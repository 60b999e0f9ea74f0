package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/world"
)

func TestHandleScore_RejectsWrongPhase(t *testing.T) {
	e := newTestEngine(t)
	// newTestEngine leaves the world in COLLECT.
	err := e.handleScore(ScoringRequest{})
	require.ErrorIs(t, err, ErrNotPausedForScoring)
}

func TestHandleScore_CommitsAdjudicationAndPoints(t *testing.T) {
	e := newTestEngine(t)
	e.world.Phase = world.PhasePausedForScoring
	e.world.PointsEnabled = true
	e.world.SuperTickID = 5
	e.world.ScoringInterval = 5 // the tick that triggered the pause; confirming it must not re-pause
	e.world.Epoch = 1000

	err := e.handleScore(ScoringRequest{
		SelectedTiles:        []world.Coord{{X: 1, Y: 1}},
		ContributionsByActor: map[string]int{"mover": 5},
		Rationale:            "good coverage",
	})
	require.NoError(t, err)

	require.NotNil(t, e.world.Last)
	assert.Equal(t, "good coverage", e.world.Last.Rationale)
	assert.Equal(t, 5, e.world.Actors["mover"].Points)
	assert.Equal(t, world.PhaseCollect, e.world.Phase, "confirming a scoring round resumes COLLECT, not another pause")
}

func TestHandleScore_EpochReachedEntersPaused(t *testing.T) {
	e := newTestEngine(t)
	e.world.Phase = world.PhasePausedForScoring
	e.world.SuperTickID = 10
	e.world.Epoch = 10
	e.world.ScoringInterval = 5

	err := e.handleScore(ScoringRequest{Rationale: "final round"})
	require.NoError(t, err)

	assert.Equal(t, world.PhasePaused, e.world.Phase)
}

func TestHandleScore_PointsNotAppliedWhenDisabled(t *testing.T) {
	e := newTestEngine(t)
	e.world.Phase = world.PhasePausedForScoring
	e.world.PointsEnabled = false

	err := e.handleScore(ScoringRequest{
		ContributionsByActor: map[string]int{"mover": 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, e.world.Actors["mover"].Points)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/world"
)

func TestOpen_FreshThenReopen(t *testing.T) {
	dir := t.TempDir()

	st, fresh, err := Open(context.Background(), dir, "alpha")
	require.NoError(t, err)
	assert.True(t, fresh)
	require.NoError(t, st.Close())

	st2, fresh2, err := Open(context.Background(), dir, "alpha")
	require.NoError(t, err)
	assert.False(t, fresh2, "reopening an existing store file is not fresh")
	require.NoError(t, st2.Close())
}

func TestOpen_RejectsInvalidNamespace(t *testing.T) {
	_, _, err := Open(context.Background(), t.TempDir(), "bad namespace!")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestInitWorldMetaThenLoadWorld_RoundTrips(t *testing.T) {
	st, _, err := Open(context.Background(), t.TempDir(), "beta")
	require.NoError(t, err)
	defer st.Close()

	radius := 3
	w := world.New(12, 9)
	w.Goal = "find the flag"
	w.Epoch = 500
	w.ScoringInterval = 7
	w.PointsEnabled = true
	w.VisibilityRadius = &radius

	require.NoError(t, st.InitWorldMeta(context.Background(), w))

	loaded, err := st.LoadWorld(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, loaded.Width)
	assert.Equal(t, 9, loaded.Height)
	assert.Equal(t, "find the flag", loaded.Goal)
	assert.Equal(t, int64(500), loaded.Epoch)
	assert.Equal(t, int64(7), loaded.ScoringInterval)
	assert.True(t, loaded.PointsEnabled)
	require.NotNil(t, loaded.VisibilityRadius)
	assert.Equal(t, 3, *loaded.VisibilityRadius)
}

func TestCreateActorThenLoadWorld(t *testing.T) {
	st, _, err := Open(context.Background(), t.TempDir(), "gamma")
	require.NoError(t, err)
	defer st.Close()

	w := world.New(10, 10)
	require.NoError(t, st.InitWorldMeta(context.Background(), w))

	actor := &world.Actor{
		ID: "runner", Secret: "s3cr3t", X: 2, Y: 3, Facing: world.FacingEast,
		Scopes: map[string]bool{"MOVE": true, "SPEAK": true},
	}
	require.NoError(t, st.CreateActor(context.Background(), actor))

	loaded, err := st.LoadWorld(context.Background())
	require.NoError(t, err)

	got, ok := loaded.Actors["runner"]
	require.True(t, ok)
	assert.Equal(t, 2, got.X)
	assert.Equal(t, 3, got.Y)
	assert.Equal(t, world.FacingEast, got.Facing)
	assert.True(t, got.HasScope("MOVE"))
	assert.True(t, got.HasScope("SPEAK"))
	assert.False(t, got.HasScope("PAINT"))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	st, _, err := Open(context.Background(), t.TempDir(), "delta")
	require.NoError(t, err)
	defer st.Close()

	w := world.New(4, 4)
	require.NoError(t, st.InitWorldMeta(context.Background(), w))

	sentinel := errors.New("boom")
	err = st.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, execErr := tx.ExecContext(context.Background(),
			`UPDATE world_meta SET goal = 'should not stick' WHERE id = 1`); execErr != nil {
			return execErr
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	loaded, err := st.LoadWorld(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Goal, "the failed transaction must not have committed")
}

func TestChatRecent_OrdersOldestFirst(t *testing.T) {
	st, _, err := Open(context.Background(), t.TempDir(), "epsilon")
	require.NoError(t, err)
	defer st.Close()

	w := world.New(4, 4)
	require.NoError(t, st.InitWorldMeta(context.Background(), w))

	_, err = st.DB().ExecContext(context.Background(),
		`INSERT INTO chat_log (supertick_id, from_id, message, created_at) VALUES
		(1, 'a', 'first', '2026-01-01T00:00:00Z'),
		(2, 'b', 'second', '2026-01-01T00:00:01Z'),
		(3, 'c', 'third', '2026-01-01T00:00:02Z')`)
	require.NoError(t, err)

	rows, err := st.ChatRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].Message)
	assert.Equal(t, "third", rows[1].Message)
}

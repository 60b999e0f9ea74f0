package world

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	w := New(10, 8)

	assert.Equal(t, 10, w.Width)
	assert.Equal(t, 8, w.Height)
	assert.Equal(t, PhaseSetup, w.Phase)
	assert.NotNil(t, w.Tiles)
	assert.NotNil(t, w.Actors)
}

func TestInBounds(t *testing.T) {
	w := New(4, 3)

	tests := []struct {
		name string
		x, y int
		want bool
	}{
		{"origin", 0, 0, true},
		{"max corner", 3, 2, true},
		{"x too large", 4, 0, false},
		{"y too large", 0, 3, false},
		{"negative x", -1, 0, false},
		{"negative y", 0, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.InBounds(tt.x, tt.y))
		})
	}
}

func TestTileAt(t *testing.T) {
	w := New(4, 4)
	w.Tiles[Coord{X: 1, Y: 1}] = "red"

	assert.Equal(t, "red", w.TileAt(1, 1))
	assert.Equal(t, "", w.TileAt(2, 2))
}

func TestActorAt(t *testing.T) {
	w := New(4, 4)
	w.Actors["a1"] = &Actor{ID: "a1", X: 1, Y: 1}

	eliminated := time.Now()
	w.Actors["a2"] = &Actor{ID: "a2", X: 2, Y: 2, EliminatedAt: &eliminated}

	assert.Equal(t, "a1", w.ActorAt(1, 1).ID)
	assert.Nil(t, w.ActorAt(2, 2), "eliminated actor should not occupy its tile")
	assert.Nil(t, w.ActorAt(3, 3))
}

func TestEliminated(t *testing.T) {
	a := &Actor{ID: "a1"}
	assert.False(t, a.Eliminated())

	now := time.Now()
	a.EliminatedAt = &now
	assert.True(t, a.Eliminated())
}

func TestHasScope(t *testing.T) {
	a := &Actor{Scopes: map[string]bool{"move": true}}
	assert.True(t, a.HasScope("move"))
	assert.False(t, a.HasScope("paint"))
}

func TestSortedActorIDs(t *testing.T) {
	w := New(4, 4)
	w.Actors["zebra"] = &Actor{ID: "zebra"}
	w.Actors["alpha"] = &Actor{ID: "alpha"}
	w.Actors["mango"] = &Actor{ID: "mango"}

	assert.Equal(t, []string{"alpha", "mango", "zebra"}, w.SortedActorIDs())
}

func TestActiveActorIDs(t *testing.T) {
	w := New(4, 4)
	w.Actors["a1"] = &Actor{ID: "a1"}
	now := time.Now()
	w.Actors["a2"] = &Actor{ID: "a2", EliminatedAt: &now}

	assert.Equal(t, []string{"a1"}, w.ActiveActorIDs())
}

func TestSortedTileCoords(t *testing.T) {
	w := New(4, 4)
	w.Tiles[Coord{X: 2, Y: 0}] = "red"
	w.Tiles[Coord{X: 0, Y: 0}] = "blue"
	w.Tiles[Coord{X: 1, Y: 1}] = "green"

	got := w.SortedTileCoords()
	want := []Coord{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 1}}
	assert.Equal(t, want, got)
}

func TestVisible(t *testing.T) {
	radius := 1
	w := New(10, 10)
	w.VisibilityRadius = &radius
	actor := &Actor{X: 5, Y: 5}

	assert.True(t, w.Visible(actor, 5, 5))
	assert.True(t, w.Visible(actor, 6, 6))
	assert.False(t, w.Visible(actor, 7, 5))

	w.VisibilityRadius = nil
	assert.True(t, w.Visible(actor, 0, 0), "nil radius means full-grid visibility")
}

func TestPublic(t *testing.T) {
	a := &Actor{ID: "a1", X: 3, Y: 4, Facing: FacingNorth, Secret: "shh", CustomInstructions: "hidden"}
	pv := a.Public()

	want := PublicView{ID: "a1", X: 3, Y: 4, Facing: FacingNorth}
	if diff := cmp.Diff(want, pv); diff != "" {
		t.Errorf("Public() redaction mismatch (-want +got):\n%s", diff)
	}
}

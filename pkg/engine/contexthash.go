package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/monument-sim/monument/pkg/world"
)

// canonicalPayload is the exact set of fields §4.3 names as hashed:
// "(supertick_id, width, height, sorted tiles, sorted actors' public
// fields, goal, last_adjudication)". It is marshaled once per SNAPSHOT and
// the context_hash is taken over it. The HUD does not reuse these bytes:
// contextbuilder builds its tiles and actors from the same World, filtered
// by the requesting actor's visibility.
type canonicalPayload struct {
	SuperTickID int64               `json:"supertick_id"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Tiles       []canonicalTile     `json:"tiles"`
	Actors      []world.PublicView  `json:"actors"`
	Goal        string              `json:"goal"`
	Last        *world.Adjudication `json:"last_adjudication,omitempty"`
}

type canonicalTile struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// Canonicalize builds the deterministic, sorted byte encoding of a frozen
// World snapshot. Tiles are sorted row-major, actors by id — iteration
// order over either collection is never left to Go's randomized map
// range.
func Canonicalize(w *world.World) []byte {
	payload := canonicalPayload{
		SuperTickID: w.SuperTickID,
		Width:       w.Width,
		Height:      w.Height,
		Goal:        w.Goal,
		Last:        w.Last,
	}

	for _, c := range w.SortedTileCoords() {
		payload.Tiles = append(payload.Tiles, canonicalTile{X: c.X, Y: c.Y, Color: w.Tiles[c]})
	}
	for _, id := range w.SortedActorIDs() {
		payload.Actors = append(payload.Actors, w.Actors[id].Public())
	}

	// json.Marshal on a struct with fixed field order and pre-sorted
	// slices is itself deterministic byte-for-byte across runs.
	data, err := json.Marshal(payload)
	if err != nil {
		// Canonicalize never receives unmarshalable data (no channels,
		// funcs, or cyclic pointers reach this struct); a failure here
		// indicates a programming error, not a runtime condition.
		panic(fmt.Sprintf("engine: canonicalize: %v", err))
	}
	return data
}

// ContextHash computes the stable fingerprint over a canonical snapshot —
// the only staleness token agents see.
func ContextHash(w *world.World) string {
	sum := sha256.Sum256(Canonicalize(w))
	return hex.EncodeToString(sum[:])
}

// bytesEqual is a small helper kept for callers that already hold raw
// canonical bytes from two snapshots (e.g. tests asserting determinism)
// rather than re-hashing both sides.
func bytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

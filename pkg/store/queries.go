package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/monument-sim/monument/pkg/world"
)

// LoadWorld reconstructs the in-memory World projection from the store.
// Called when a namespace handle is opened on an existing store file
// (lazy open and admin reset).
func (s *Store) LoadWorld(ctx context.Context) (*world.World, error) {
	w := world.New(0, 0)

	row := s.db.QueryRowContext(ctx, `SELECT supertick_id, width, height, goal, phase, epoch,
		last_adjudication_json, scoring_interval, points_enabled, visibility_radius
		FROM world_meta WHERE id = 1`)

	var (
		lastJSON sql.NullString
		radius   sql.NullInt64
		phase    string
		pointsOn int
	)
	err := row.Scan(&w.SuperTickID, &w.Width, &w.Height, &w.Goal, &phase, &w.Epoch,
		&lastJSON, &w.ScoringInterval, &pointsOn, &radius)
	if err != nil {
		return nil, fmt.Errorf("%w: loading world_meta: %v", ErrIO, err)
	}
	w.Phase = world.Phase(phase)
	w.PointsEnabled = pointsOn != 0
	if radius.Valid {
		r := int(radius.Int64)
		w.VisibilityRadius = &r
	}
	if lastJSON.Valid && lastJSON.String != "" {
		var adj world.Adjudication
		if err := json.Unmarshal([]byte(lastJSON.String), &adj); err == nil {
			w.Last = &adj
		}
	}

	tileRows, err := s.db.QueryContext(ctx, `SELECT x, y, color FROM tiles`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tiles: %v", ErrIO, err)
	}
	defer tileRows.Close()
	for tileRows.Next() {
		var x, y int
		var color string
		if err := tileRows.Scan(&x, &y, &color); err != nil {
			return nil, fmt.Errorf("%w: scanning tile: %v", ErrIO, err)
		}
		w.Tiles[world.Coord{X: x, Y: y}] = color
	}
	if err := tileRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	actorRows, err := s.db.QueryContext(ctx, `SELECT id, secret, x, y, facing, scopes_json,
		custom_instructions, points, eliminated_at FROM actors`)
	if err != nil {
		return nil, fmt.Errorf("%w: loading actors: %v", ErrIO, err)
	}
	defer actorRows.Close()
	for actorRows.Next() {
		var (
			a            world.Actor
			facing       string
			scopesJSON   string
			eliminatedAt sql.NullString
		)
		if err := actorRows.Scan(&a.ID, &a.Secret, &a.X, &a.Y, &facing, &scopesJSON,
			&a.CustomInstructions, &a.Points, &eliminatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning actor: %v", ErrIO, err)
		}
		a.Facing = world.Facing(facing)
		var scopeList []string
		if err := json.Unmarshal([]byte(scopesJSON), &scopeList); err != nil {
			return nil, fmt.Errorf("%w: decoding scopes for actor %s: %v", ErrIO, a.ID, err)
		}
		a.Scopes = make(map[string]bool, len(scopeList))
		for _, sc := range scopeList {
			a.Scopes[sc] = true
		}
		if eliminatedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, eliminatedAt.String)
			if err == nil {
				a.EliminatedAt = &t
			}
		}
		actor := a
		w.Actors[actor.ID] = &actor
	}
	if err := actorRows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	return w, nil
}

// InitWorldMeta writes the initial world_meta row for a freshly created
// namespace. Must run once, before any tick operation.
func (s *Store) InitWorldMeta(ctx context.Context, w *world.World) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var radius sql.NullInt64
		if w.VisibilityRadius != nil {
			radius = sql.NullInt64{Int64: int64(*w.VisibilityRadius), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO world_meta
			(id, supertick_id, width, height, goal, phase, epoch, scoring_interval, points_enabled, visibility_radius)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.SuperTickID, w.Width, w.Height, w.Goal, string(w.Phase), w.Epoch,
			w.ScoringInterval, boolToInt(w.PointsEnabled), radius)
		return err
	})
}

// CreateActor inserts an actor row inside its own transaction (admin path,
// outside the tick commit boundary).
func (s *Store) CreateActor(ctx context.Context, a *world.Actor) error {
	scopes := make([]string, 0, len(a.Scopes))
	for sc := range a.Scopes {
		scopes = append(scopes, sc)
	}
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return fmt.Errorf("%w: encoding scopes: %v", ErrIO, err)
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO actors
			(id, secret, x, y, facing, scopes_json, custom_instructions, points, eliminated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
			a.ID, a.Secret, a.X, a.Y, string(a.Facing), string(scopesJSON), a.CustomInstructions, a.Points)
		return err
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AuditRow is one append-only audit record, as read back for replay/export.
type AuditRow struct {
	ID          int64
	SuperTickID int64
	ActorID     string
	ActionType  string
	Params      string
	Result      string
	ContextHash string
	SubmittedAt time.Time
}

// ExportAudit streams audit rows for a tick range, inclusive, ordered by
// supertick then actor id — the tick-range audit export the replay
// endpoint serves.
func (s *Store) ExportAudit(ctx context.Context, fromTick, toTick int64) ([]AuditRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, supertick_id, actor_id, action_type, params_json,
		result, context_hash, submitted_at FROM audit
		WHERE supertick_id BETWEEN ? AND ?
		ORDER BY supertick_id ASC, actor_id ASC`, fromTick, toTick)
	if err != nil {
		return nil, fmt.Errorf("%w: exporting audit: %v", ErrIO, err)
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		var submittedAt string
		if err := rows.Scan(&r.ID, &r.SuperTickID, &r.ActorID, &r.ActionType, &r.Params,
			&r.Result, &r.ContextHash, &submittedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning audit row: %v", ErrIO, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, submittedAt); err == nil {
			r.SubmittedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TileHistoryRow is one append-only tile mutation record.
type TileHistoryRow struct {
	X, Y        int
	SuperTickID int64
	ActorID     string
	OldColor    string
	NewColor    string
	ActionType  string
	CreatedAt   time.Time
}

// TileHistoryUpTo returns every tile_history row with supertick_id <= toTick,
// in commit order — replaying these forward from an empty grid reproduces
// `tiles` at that tick.
func (s *Store) TileHistoryUpTo(ctx context.Context, toTick int64) ([]TileHistoryRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT x, y, supertick_id, actor_id, old_color, new_color,
		action_type, created_at FROM tile_history
		WHERE supertick_id <= ? ORDER BY id ASC`, toTick)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tile history: %v", ErrIO, err)
	}
	defer rows.Close()

	var out []TileHistoryRow
	for rows.Next() {
		var r TileHistoryRow
		var createdAt string
		if err := rows.Scan(&r.X, &r.Y, &r.SuperTickID, &r.ActorID, &r.OldColor, &r.NewColor,
			&r.ActionType, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning tile history row: %v", ErrIO, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChatRecent returns the most recent chat rows for a namespace, oldest
// first, bounded by limit.
func (s *Store) ChatRecent(ctx context.Context, limit int) ([]ChatRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT supertick_id, from_id, message, created_at
		FROM chat_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: loading chat: %v", ErrIO, err)
	}
	defer rows.Close()

	var out []ChatRow
	for rows.Next() {
		var r ChatRow
		var createdAt string
		if err := rows.Scan(&r.SuperTickID, &r.FromID, &r.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning chat row: %v", ErrIO, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	// Reverse to oldest-first for HUD display.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// ChatRow is one append-only chat record.
type ChatRow struct {
	SuperTickID int64
	FromID      string
	Message     string
	CreatedAt   time.Time
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/story"
)

// SaveStory replaces the map, its segments, locations and route animations.
// Segments and route animations without an id get a generated one.
func (s *Store) SaveStory(ctx context.Context, st *story.Story) (err error) {
	if st.MapID == "" {
		return fmt.Errorf("storage: story without map id")
	}
	for i := range st.Segments {
		if st.Segments[i].ID == "" {
			st.Segments[i].ID = uuid.NewString()
		}
	}
	st.Normalize()
	if err := st.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO maps (id, title, version) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, version = excluded.version`,
		st.MapID, nullString(st.Title), nullString(st.Version)); err != nil {
		return fmt.Errorf("storage: upsert map: %w", err)
	}

	for _, stmt := range []string{
		`DELETE FROM route_animations WHERE map_id = ?`,
		`DELETE FROM locations WHERE segment_id IN (SELECT id FROM segments WHERE map_id = ?)`,
		`DELETE FROM segments WHERE map_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, st.MapID); err != nil {
			return fmt.Errorf("storage: clear map %s: %w", st.MapID, err)
		}
	}

	segStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (id, map_id, sort_order, name, duration_ms, camera,
			auto_advance, require_user_action, overlay_content, trigger_button_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare segment insert: %w", err)
	}
	defer segStmt.Close()

	locStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO locations (id, segment_id, position, name, lng, lat, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare location insert: %w", err)
	}
	defer locStmt.Close()

	for _, seg := range st.Segments {
		var camera sql.NullString
		if camera, err = encodeCamera(seg.Camera); err != nil {
			return err
		}
		var overlay, button string
		if seg.Transition != nil {
			overlay, button = seg.Transition.OverlayContent, seg.Transition.TriggerButtonText
		}
		if _, err = segStmt.ExecContext(ctx, seg.ID, st.MapID, seg.Order, nullString(seg.Name), seg.DurationMs, camera,
			boolInt(seg.AutoAdvance), boolInt(seg.RequireUserAction), nullString(overlay), nullString(button)); err != nil {
			return fmt.Errorf("storage: insert segment %s: %w", seg.ID, err)
		}
		for pos, loc := range seg.Locations {
			id := loc.ID
			if id == "" {
				id = uuid.NewString()
			}
			if _, err = locStmt.ExecContext(ctx, id, seg.ID, pos, nullString(loc.Name),
				loc.Coordinate.Lng, loc.Coordinate.Lat, nullString(loc.Description)); err != nil {
				return fmt.Errorf("storage: insert location %s: %w", id, err)
			}
		}
	}

	for _, ra := range st.RouteAnimations {
		ra.MapID = st.MapID
		if _, err = insertRouteAnimation(ctx, tx, ra); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit save: %w", err)
	}
	s.log.Info("story saved",
		zap.String("map", st.MapID),
		zap.Int("segments", len(st.Segments)),
		zap.Int("routeAnimations", len(st.RouteAnimations)),
	)
	return nil
}

// LoadStory reads a complete story. Route animations are returned unsorted.
func (s *Store) LoadStory(ctx context.Context, mapID string) (*story.Story, error) {
	st := &story.Story{MapID: mapID}
	var title, version sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT title, version FROM maps WHERE id = ?`, mapID).Scan(&title, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("map %s: %w", mapID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load map %s: %w", mapID, err)
	}
	st.Title, st.Version = title.String, version.String

	if st.Segments, err = s.Segments(ctx, mapID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectRouteAnimations+` WHERE map_id = ?`, mapID)
	if err != nil {
		return nil, fmt.Errorf("storage: load route animations: %w", err)
	}
	if st.RouteAnimations, err = scanRouteAnimations(rows); err != nil {
		return nil, err
	}
	return st, nil
}

// Segments returns the segments of a map ordered by sort order.
func (s *Store) Segments(ctx context.Context, mapID string) ([]story.Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, map_id, sort_order, name, duration_ms, camera,
			auto_advance, require_user_action, overlay_content, trigger_button_text
		FROM segments WHERE map_id = ? ORDER BY sort_order, id`, mapID)
	if err != nil {
		return nil, fmt.Errorf("storage: query segments: %w", err)
	}
	defer rows.Close()

	var segs []story.Segment
	index := make(map[string]int)
	for rows.Next() {
		var (
			seg                  story.Segment
			name, camera         sql.NullString
			overlay, button      sql.NullString
			autoAdvance, require int
		)
		if err := rows.Scan(&seg.ID, &seg.MapID, &seg.Order, &name, &seg.DurationMs, &camera,
			&autoAdvance, &require, &overlay, &button); err != nil {
			return nil, fmt.Errorf("storage: scan segment: %w", err)
		}
		seg.Name = name.String
		seg.AutoAdvance = autoAdvance != 0
		seg.RequireUserAction = require != 0
		if overlay.Valid || button.Valid {
			seg.Transition = &story.Transition{OverlayContent: overlay.String, TriggerButtonText: button.String}
		}
		if camera.Valid {
			seg.Camera = decodeCamera(camera.String)
		}
		index[seg.ID] = len(segs)
		segs = append(segs, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	locRows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.segment_id, l.name, l.lng, l.lat, l.description
		FROM locations l JOIN segments s ON s.id = l.segment_id
		WHERE s.map_id = ? ORDER BY l.segment_id, l.position`, mapID)
	if err != nil {
		return nil, fmt.Errorf("storage: query locations: %w", err)
	}
	defer locRows.Close()
	for locRows.Next() {
		var (
			loc               story.Location
			segmentID         string
			name, description sql.NullString
		)
		if err := locRows.Scan(&loc.ID, &segmentID, &name, &loc.Coordinate.Lng, &loc.Coordinate.Lat, &description); err != nil {
			return nil, fmt.Errorf("storage: scan location: %w", err)
		}
		loc.Name, loc.Description = name.String, description.String
		if i, ok := index[segmentID]; ok {
			segs[i].Locations = append(segs[i].Locations, loc)
		}
	}
	return segs, locRows.Err()
}

func encodeCamera(cs *story.CameraState) (sql.NullString, error) {
	if cs == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(cs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("storage: encode camera: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// decodeCamera returns nil for unreadable camera state; playback falls back to defaults.
func decodeCamera(raw string) *story.CameraState {
	var cs story.CameraState
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return nil
	}
	return &cs
}

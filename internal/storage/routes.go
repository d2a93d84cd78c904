package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Faultbox/storyplay/internal/story"
)

const selectRouteAnimations = `
	SELECT id, map_id, segment_id, name, display_order, start_time_ms, duration_ms,
		follow_camera, follow_camera_zoom, path, created_at
	FROM route_animations`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AddRouteAnimation stores ra, assigning an id and creation time when missing.
func (s *Store) AddRouteAnimation(ctx context.Context, ra story.RouteAnimation) (story.RouteAnimation, error) {
	return insertRouteAnimation(ctx, s.db, ra)
}

// DeleteRouteAnimation removes one route animation.
func (s *Store) DeleteRouteAnimation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM route_animations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete route animation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("route animation %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRouteAnimationsBySegment returns the route animations of one segment in
// storage order. Callers sort them.
func (s *Store) GetRouteAnimationsBySegment(ctx context.Context, mapID, segmentID string) ([]story.RouteAnimation, error) {
	rows, err := s.db.QueryContext(ctx, selectRouteAnimations+` WHERE map_id = ? AND segment_id = ?`, mapID, segmentID)
	if err != nil {
		return nil, fmt.Errorf("storage: query route animations: %w", err)
	}
	return scanRouteAnimations(rows)
}

func insertRouteAnimation(ctx context.Context, db execer, ra story.RouteAnimation) (story.RouteAnimation, error) {
	if ra.ID == "" {
		ra.ID = uuid.NewString()
	}
	if ra.CreatedAt.IsZero() {
		ra.CreatedAt = time.Now().UTC()
	}

	var path sql.NullString
	if len(ra.Path) > 0 {
		data, err := json.Marshal(ra.Path)
		if err != nil {
			return ra, fmt.Errorf("storage: encode path: %w", err)
		}
		path = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO route_animations (id, map_id, segment_id, name, display_order, start_time_ms,
			duration_ms, follow_camera, follow_camera_zoom, path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			map_id = excluded.map_id,
			segment_id = excluded.segment_id,
			name = excluded.name,
			display_order = excluded.display_order,
			start_time_ms = excluded.start_time_ms,
			duration_ms = excluded.duration_ms,
			follow_camera = excluded.follow_camera,
			follow_camera_zoom = excluded.follow_camera_zoom,
			path = excluded.path`,
		ra.ID, ra.MapID, ra.SegmentID, nullString(ra.Name), ra.DisplayOrder, nullInt64(ra.StartTimeMs),
		ra.DurationMs, boolInt(ra.FollowCamera), nullFloat64(ra.FollowCameraZoom), path, ra.CreatedAt.UnixNano())
	if err != nil {
		return ra, fmt.Errorf("storage: insert route animation %s: %w", ra.ID, err)
	}
	return ra, nil
}

func scanRouteAnimations(rows *sql.Rows) ([]story.RouteAnimation, error) {
	defer rows.Close()

	var out []story.RouteAnimation
	for rows.Next() {
		var (
			ra           story.RouteAnimation
			name, path   sql.NullString
			start        sql.NullInt64
			zoom         sql.NullFloat64
			follow       int
			createdNanos int64
		)
		if err := rows.Scan(&ra.ID, &ra.MapID, &ra.SegmentID, &name, &ra.DisplayOrder, &start,
			&ra.DurationMs, &follow, &zoom, &path, &createdNanos); err != nil {
			return nil, fmt.Errorf("storage: scan route animation: %w", err)
		}
		ra.Name = name.String
		ra.FollowCamera = follow != 0
		ra.CreatedAt = time.Unix(0, createdNanos).UTC()
		if start.Valid {
			v := start.Int64
			ra.StartTimeMs = &v
		}
		if zoom.Valid {
			v := zoom.Float64
			ra.FollowCameraZoom = &v
		}
		if path.Valid {
			if err := json.Unmarshal([]byte(path.String), &ra.Path); err != nil {
				return nil, fmt.Errorf("storage: decode path of %s: %w", ra.ID, err)
			}
		}
		out = append(out, ra)
	}
	return out, rows.Err()
}

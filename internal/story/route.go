package story

import (
	"sort"
	"time"

	"github.com/Faultbox/storyplay/pkg/geo"
)

// RouteAnimation is a sub-animation scoped to one segment.
type RouteAnimation struct {
	ID               string       `yaml:"id"`
	MapID            string       `yaml:"map_id,omitempty"`
	SegmentID        string       `yaml:"segment_id"`
	Name             string       `yaml:"name,omitempty"`
	DisplayOrder     int          `yaml:"display_order"`
	StartTimeMs      *int64       `yaml:"start_time_ms,omitempty"`
	DurationMs       int64        `yaml:"duration_ms,omitempty"`
	FollowCamera     bool         `yaml:"follow_camera"`
	FollowCameraZoom *float64     `yaml:"follow_camera_zoom,omitempty"`
	Path             []geo.LngLat `yaml:"path,omitempty"`
	CreatedAt        time.Time    `yaml:"created_at"`
}

// StartTime returns the declared start offset, zero when absent.
func (r RouteAnimation) StartTime() int64 {
	if r.StartTimeMs == nil {
		return 0
	}
	return *r.StartTimeMs
}

// SortRouteAnimations orders animations by DisplayOrder, then StartTimeMs,
// then CreatedAt, all ascending. Remaining ties keep their input order.
func SortRouteAnimations(ras []RouteAnimation) {
	sort.SliceStable(ras, func(i, j int) bool {
		a, b := ras[i], ras[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if a.StartTime() != b.StartTime() {
			return a.StartTime() < b.StartTime()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// BySegment groups route animations by segment id, preserving input order.
func BySegment(ras []RouteAnimation) map[string][]RouteAnimation {
	out := make(map[string][]RouteAnimation)
	for _, ra := range ras {
		out[ra.SegmentID] = append(out[ra.SegmentID], ra)
	}
	return out
}

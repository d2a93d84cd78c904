// Package story defines the story-map data model consumed by the playback engine:
// segments with their camera framing and dwell time, and the route animations
// scoped to each segment.
package story

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/storyplay/pkg/geo"
)

// DefaultTriggerButtonText is shown on a gate whose segment carries no transition text.
const DefaultTriggerButtonText = "Continue"

var (
	ErrEmptySegmentID   = errors.New("story: segment without id")
	ErrDuplicateSegment = errors.New("story: duplicate segment id")
	ErrUnknownSegment   = errors.New("story: route animation references unknown segment")
	ErrNegativeDuration = errors.New("story: negative duration")
)

// Story is a complete story map as stored on disk.
type Story struct {
	Version         string           `yaml:"version"`
	MapID           string           `yaml:"map_id"`
	Title           string           `yaml:"title,omitempty"`
	Segments        []Segment        `yaml:"segments"`
	RouteAnimations []RouteAnimation `yaml:"route_animations,omitempty"`
}

// Segment is one ordered scene of a story.
type Segment struct {
	ID                string       `yaml:"id"`
	MapID             string       `yaml:"map_id,omitempty"`
	Order             int          `yaml:"order"`
	Name              string       `yaml:"name,omitempty"`
	DurationMs        int64        `yaml:"duration_ms"`
	Camera            *CameraState `yaml:"camera,omitempty"`
	AutoAdvance       bool         `yaml:"auto_advance"`
	RequireUserAction bool         `yaml:"require_user_action"`
	Transition        *Transition  `yaml:"transition,omitempty"`
	Locations         []Location   `yaml:"locations,omitempty"`
}

// UnmarshalYAML decodes a segment, treating a missing auto_advance as true.
func (s *Segment) UnmarshalYAML(node *yaml.Node) error {
	type plain Segment
	p := plain{AutoAdvance: true}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Segment(p)
	return nil
}

// Duration returns the autonomous dwell time.
func (s Segment) Duration() time.Duration {
	if s.DurationMs <= 0 {
		return 0
	}
	return time.Duration(s.DurationMs) * time.Millisecond
}

// Overlay returns the gate overlay text and button label for the segment.
func (s Segment) Overlay() (content, button string) {
	button = DefaultTriggerButtonText
	if s.Transition == nil {
		return "", button
	}
	if s.Transition.TriggerButtonText != "" {
		button = s.Transition.TriggerButtonText
	}
	return s.Transition.OverlayContent, button
}

// CameraState is the optional camera framing of a segment. Nil fields take defaults.
type CameraState struct {
	Center  *geo.LngLat `yaml:"center,omitempty" json:"center,omitempty"`
	Zoom    *float64    `yaml:"zoom,omitempty" json:"zoom,omitempty"`
	Bearing float64     `yaml:"bearing,omitempty" json:"bearing,omitempty"`
	Pitch   float64     `yaml:"pitch,omitempty" json:"pitch,omitempty"`
}

// Transition is the overlay shown while a gated segment waits for the user.
type Transition struct {
	OverlayContent    string `yaml:"overlay_content,omitempty"`
	TriggerButtonText string `yaml:"trigger_button_text,omitempty"`
}

// Location is a clickable point of interest inside a segment.
type Location struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Coordinate  geo.LngLat `yaml:"coordinate"`
	Description string     `yaml:"description,omitempty"`
}

// SortSegments orders segments by Order, keeping input order for ties.
func SortSegments(segs []Segment) {
	sort.SliceStable(segs, func(i, j int) bool {
		return segs[i].Order < segs[j].Order
	})
}

// Validate checks segment ids and route animation references.
func (s *Story) Validate() error {
	seen := make(map[string]struct{}, len(s.Segments))
	for i, seg := range s.Segments {
		if seg.ID == "" {
			return fmt.Errorf("segment %d: %w", i, ErrEmptySegmentID)
		}
		if _, ok := seen[seg.ID]; ok {
			return fmt.Errorf("segment %q: %w", seg.ID, ErrDuplicateSegment)
		}
		if seg.DurationMs < 0 {
			return fmt.Errorf("segment %q: %w", seg.ID, ErrNegativeDuration)
		}
		seen[seg.ID] = struct{}{}
	}
	for _, ra := range s.RouteAnimations {
		if _, ok := seen[ra.SegmentID]; !ok {
			return fmt.Errorf("route animation %q -> %q: %w", ra.ID, ra.SegmentID, ErrUnknownSegment)
		}
	}
	return nil
}

// Normalize fills map ids from the story and sorts segments by order.
func (s *Story) Normalize() {
	for i := range s.Segments {
		if s.Segments[i].MapID == "" {
			s.Segments[i].MapID = s.MapID
		}
	}
	for i := range s.RouteAnimations {
		if s.RouteAnimations[i].MapID == "" {
			s.RouteAnimations[i].MapID = s.MapID
		}
	}
	SortSegments(s.Segments)
}

// Package camera owns the map camera. A Coordinator is the only component that
// mutates the camera of a Surface; everyone else reads the resulting View.
package camera

import (
	"math"

	"github.com/Faultbox/storyplay/internal/story"
	"github.com/Faultbox/storyplay/pkg/geo"
)

// Camera limits.
const (
	MinZoom  = 0.0
	MaxZoom  = 24.0
	MaxPitch = 85.0
)

// View is a complete camera position.
type View struct {
	Center  geo.LngLat
	Zoom    float64
	Bearing float64
	Pitch   float64
}

// DefaultView is used when a segment carries no usable camera state.
var DefaultView = View{Center: geo.LngLat{Lng: 0, Lat: 20}, Zoom: 2}

// Resolve turns an optional, possibly malformed camera state into a View.
// Missing or invalid center and zoom fall back to def; bearing is wrapped
// and pitch clamped.
func Resolve(cs *story.CameraState, def View) View {
	if cs == nil {
		return def
	}

	v := def
	if cs.Center != nil && cs.Center.Valid() {
		v.Center = *cs.Center
	}
	if cs.Zoom != nil && finite(*cs.Zoom) && *cs.Zoom >= MinZoom && *cs.Zoom <= MaxZoom {
		v.Zoom = *cs.Zoom
	}
	v.Bearing = 0
	if finite(cs.Bearing) {
		v.Bearing = geo.NormalizeBearing(cs.Bearing)
	}
	v.Pitch = 0
	if finite(cs.Pitch) {
		v.Pitch = geo.Clamp(cs.Pitch, 0, MaxPitch)
	}
	return v
}

func lerpView(from, to View, t float64) View {
	return View{
		Center:  from.Center.Lerp(to.Center, t),
		Zoom:    from.Zoom + (to.Zoom-from.Zoom)*t,
		Bearing: geo.NormalizeBearing(from.Bearing + (geo.ShortestBearing(from.Bearing, to.Bearing)-from.Bearing)*t),
		Pitch:   from.Pitch + (to.Pitch-from.Pitch)*t,
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

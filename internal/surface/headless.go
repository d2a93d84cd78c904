// Package surface provides map surfaces for running the player without a
// renderer.
package surface

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/camera"
	"github.com/Faultbox/storyplay/internal/logger"
	"github.com/Faultbox/storyplay/internal/story"
)

// Headless is a map surface that logs and records what it is asked to show.
// It reports not ready until MarkReady is called, like a map whose style is
// still loading.
type Headless struct {
	mu     sync.Mutex
	log    *zap.Logger
	ready  bool
	frames int
	view   camera.View
	segID  string
	routes []story.RouteAnimation
}

// NewHeadless creates a headless surface. A nil logger selects the package
// default.
func NewHeadless(log *zap.Logger) *Headless {
	if log == nil {
		log = logger.Named("surface")
	}
	return &Headless{log: log}
}

// MarkReady flags the surface as able to accept camera changes.
func (h *Headless) MarkReady() {
	h.mu.Lock()
	h.ready = true
	h.mu.Unlock()
	h.log.Info("surface ready")
}

// Ready implements camera.Surface.
func (h *Headless) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// SetView implements camera.Surface. Intermediate frames are logged at debug.
func (h *Headless) SetView(v camera.View) {
	h.mu.Lock()
	h.frames++
	h.view = v
	h.mu.Unlock()

	h.log.Debug("view",
		zap.Float64("lng", v.Center.Lng),
		zap.Float64("lat", v.Center.Lat),
		zap.Float64("zoom", v.Zoom),
		zap.Float64("bearing", v.Bearing),
		zap.Float64("pitch", v.Pitch),
	)
}

// ShowRoutes replaces the displayed route animations.
func (h *Headless) ShowRoutes(segmentID string, ras []story.RouteAnimation) {
	h.mu.Lock()
	h.segID = segmentID
	h.routes = append(h.routes[:0], ras...)
	h.mu.Unlock()

	names := make([]string, len(ras))
	for i, ra := range ras {
		names[i] = ra.Name
	}
	h.log.Info("routes shown",
		zap.String("segment", segmentID),
		zap.Int("count", len(ras)),
		zap.Strings("names", names),
	)
}

// ClearRoutes removes every displayed route animation.
func (h *Headless) ClearRoutes() {
	h.mu.Lock()
	n := len(h.routes)
	h.segID = ""
	h.routes = h.routes[:0]
	h.mu.Unlock()

	if n > 0 {
		h.log.Debug("routes cleared", zap.Int("count", n))
	}
}

// Snapshot is what the surface currently shows.
type Snapshot struct {
	Ready     bool
	Frames    int
	View      camera.View
	SegmentID string
	Routes    []story.RouteAnimation
}

// Snapshot returns a copy of the surface state.
func (h *Headless) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Snapshot{
		Ready:     h.ready,
		Frames:    h.frames,
		View:      h.view,
		SegmentID: h.segID,
		Routes:    append([]story.RouteAnimation(nil), h.routes...),
	}
}

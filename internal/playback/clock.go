package playback

import (
	"time"

	"github.com/Faultbox/storyplay/internal/story"
)

// Clock measures time spent in the current segment. Pausing freezes it and
// resuming shifts the start forward so the position carries on.
type Clock struct {
	start    time.Time
	pausedAt time.Time
}

// Start begins the segment clock at now.
func (c *Clock) Start(now time.Time) {
	c.start = now
	c.pausedAt = time.Time{}
}

// Pause freezes the clock.
func (c *Clock) Pause(now time.Time) {
	if !c.start.IsZero() && c.pausedAt.IsZero() {
		c.pausedAt = now
	}
}

// Resume continues a paused clock from where it stopped.
func (c *Clock) Resume(now time.Time) {
	if c.pausedAt.IsZero() {
		return
	}
	c.start = c.start.Add(now.Sub(c.pausedAt))
	c.pausedAt = time.Time{}
}

// Reset clears the clock.
func (c *Clock) Reset() {
	*c = Clock{}
}

// Started reports whether the clock has a start time.
func (c *Clock) Started() bool {
	return !c.start.IsZero()
}

// StartTime returns the (possibly shifted) segment start.
func (c *Clock) StartTime() time.Time {
	return c.start
}

// Elapsed returns time spent in the segment as of now.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	if c.start.IsZero() {
		return 0
	}
	ref := now
	if !c.pausedAt.IsZero() {
		ref = c.pausedAt
	}
	if d := ref.Sub(c.start); d > 0 {
		return d
	}
	return 0
}

// Elapsed returns the story position: the durations of every segment before
// index plus inSegment, which is capped at the current segment's duration.
func Elapsed(segs []story.Segment, index int, inSegment time.Duration) time.Duration {
	if len(segs) == 0 {
		return 0
	}
	if index >= len(segs) {
		index = len(segs) - 1
	}
	var total time.Duration
	for _, seg := range segs[:max(index, 0)] {
		total += seg.Duration()
	}
	if d := segs[max(index, 0)].Duration(); inSegment > d {
		inSegment = d
	}
	return total + inSegment
}

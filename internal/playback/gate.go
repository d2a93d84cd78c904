package playback

import "github.com/Faultbox/storyplay/internal/story"

// Gate is the "continue" checkpoint of a segment that requires user action.
type Gate struct {
	Waiting           bool
	SegmentID         string
	OverlayContent    string
	TriggerButtonText string
}

func openGate(seg story.Segment) Gate {
	content, button := seg.Overlay()
	return Gate{
		Waiting:           true,
		SegmentID:         seg.ID,
		OverlayContent:    content,
		TriggerButtonText: button,
	}
}

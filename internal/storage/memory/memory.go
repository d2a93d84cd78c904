// Package memory is an in-memory story store used for story files and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/storyplay/internal/logger"
	"github.com/Faultbox/storyplay/internal/storage"
	"github.com/Faultbox/storyplay/internal/story"
)

// Store holds stories in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	segments map[string][]story.Segment        // mapID -> segments in order
	routes   map[string][]story.RouteAnimation // mapID/segmentID -> route animations
	failures map[string]error                  // mapID/segmentID -> injected fetch error
	headers  map[string]story.Story            // mapID -> title and version only
	latency  time.Duration
	log      *zap.Logger
}

// New creates an empty store.
func New() *Store {
	return &Store{
		segments: make(map[string][]story.Segment),
		routes:   make(map[string][]story.RouteAnimation),
		failures: make(map[string]error),
		headers:  make(map[string]story.Story),
		log:      logger.Named("memory"),
	}
}

// PutStory replaces everything stored for the story's map.
func (s *Store) PutStory(st *story.Story) {
	s.mu.Lock()
	defer s.mu.Unlock()

	segs := make([]story.Segment, len(st.Segments))
	copy(segs, st.Segments)
	story.SortSegments(segs)
	s.segments[st.MapID] = segs
	s.headers[st.MapID] = story.Story{MapID: st.MapID, Title: st.Title, Version: st.Version}

	for k := range s.routes {
		if mapOf(k) == st.MapID {
			delete(s.routes, k)
		}
	}
	for segID, ras := range story.BySegment(st.RouteAnimations) {
		list := make([]story.RouteAnimation, len(ras))
		for i, ra := range ras {
			ra.MapID = st.MapID
			if ra.ID == "" {
				ra.ID = uuid.NewString()
			}
			list[i] = ra
		}
		s.routes[key(st.MapID, segID)] = list
	}
	s.log.Debug("story stored", zap.String("map", st.MapID), zap.Int("segments", len(segs)))
}

// Segments returns a copy of the map's segments.
func (s *Store) Segments(ctx context.Context, mapID string) ([]story.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segs, ok := s.segments[mapID]
	if !ok {
		return nil, fmt.Errorf("map %s: %w", mapID, storage.ErrNotFound)
	}
	out := make([]story.Segment, len(segs))
	copy(out, segs)
	return out, nil
}

// LoadStory returns a copy of a stored story. Route animations are listed
// segment by segment in segment order.
func (s *Store) LoadStory(ctx context.Context, mapID string) (*story.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segs, ok := s.segments[mapID]
	if !ok {
		return nil, fmt.Errorf("map %s: %w", mapID, storage.ErrNotFound)
	}
	st := s.headers[mapID]
	st.Segments = make([]story.Segment, len(segs))
	copy(st.Segments, segs)
	for _, seg := range segs {
		st.RouteAnimations = append(st.RouteAnimations, s.routes[key(mapID, seg.ID)]...)
	}
	return &st, nil
}

// DeleteRouteAnimation removes one route animation.
func (s *Store) DeleteRouteAnimation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ras := range s.routes {
		for i, ra := range ras {
			if ra.ID != id {
				continue
			}
			s.routes[k] = append(ras[:i:i], ras[i+1:]...)
			s.log.Debug("route animation deleted", zap.String("id", id), zap.String("segment", ra.SegmentID))
			return nil
		}
	}
	return fmt.Errorf("route animation %s: %w", id, storage.ErrNotFound)
}

// AddRouteAnimation stores ra, assigning an id and creation time when missing.
func (s *Store) AddRouteAnimation(ctx context.Context, ra story.RouteAnimation) (story.RouteAnimation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ra.ID == "" {
		ra.ID = uuid.NewString()
	}
	if ra.CreatedAt.IsZero() {
		ra.CreatedAt = time.Now().UTC()
	}
	k := key(ra.MapID, ra.SegmentID)
	s.routes[k] = append(s.routes[k], ra)
	return ra, nil
}

// GetRouteAnimationsBySegment returns a copy of the segment's route animations
// in insertion order, after the configured latency.
func (s *Store) GetRouteAnimationsBySegment(ctx context.Context, mapID, segmentID string) ([]story.RouteAnimation, error) {
	s.mu.RLock()
	latency := s.latency
	err := s.failures[key(mapID, segmentID)]
	ras := s.routes[key(mapID, segmentID)]
	out := make([]story.RouteAnimation, len(ras))
	copy(out, ras)
	s.mu.RUnlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetLatency delays every route fetch by d.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

// FailSegment makes route fetches for one segment return err. A nil err clears it.
func (s *Store) FailSegment(mapID, segmentID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, key(mapID, segmentID))
		return
	}
	s.failures[key(mapID, segmentID)] = err
}

func key(mapID, segmentID string) string {
	return mapID + "/" + segmentID
}

func mapOf(k string) string {
	mapID, _, _ := strings.Cut(k, "/")
	return mapID
}

package routes

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/storyplay/internal/story"
)

// DefaultCacheSize is the number of segments whose route lists are kept.
const DefaultCacheSize = 128

// warmConcurrency bounds parallel fetches in Warm.
const warmConcurrency = 4

// CachedSource memoizes route lists per segment in an LRU cache.
// It is safe for concurrent use.
type CachedSource struct {
	src   Source
	cache *lru.Cache[string, []story.RouteAnimation]
}

// NewCachedSource wraps src with an LRU cache holding up to size segments.
func NewCachedSource(src Source, size int) (*CachedSource, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []story.RouteAnimation](size)
	if err != nil {
		return nil, fmt.Errorf("routes: creating cache: %w", err)
	}
	return &CachedSource{src: src, cache: cache}, nil
}

// GetRouteAnimationsBySegment returns the cached list or fetches it. Errors are not cached.
func (c *CachedSource) GetRouteAnimationsBySegment(ctx context.Context, mapID, segmentID string) ([]story.RouteAnimation, error) {
	k := cacheKey(mapID, segmentID)
	if ras, ok := c.cache.Get(k); ok {
		return clone(ras), nil
	}

	ras, err := c.src.GetRouteAnimationsBySegment(ctx, mapID, segmentID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, clone(ras))
	return ras, nil
}

// Invalidate drops the cached list of one segment.
func (c *CachedSource) Invalidate(mapID, segmentID string) {
	c.cache.Remove(cacheKey(mapID, segmentID))
}

// Purge drops every cached list.
func (c *CachedSource) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached segments.
func (c *CachedSource) Len() int {
	return c.cache.Len()
}

// Warm prefetches the route lists of segmentIDs. It stops at the first error.
func (c *CachedSource) Warm(ctx context.Context, mapID string, segmentIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, id := range segmentIDs {
		g.Go(func() error {
			if _, err := c.GetRouteAnimationsBySegment(ctx, mapID, id); err != nil {
				return fmt.Errorf("warming segment %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func cacheKey(mapID, segmentID string) string {
	return mapID + "/" + segmentID
}

func clone(ras []story.RouteAnimation) []story.RouteAnimation {
	if ras == nil {
		return nil
	}
	out := make([]story.RouteAnimation, len(ras))
	copy(out, ras)
	return out
}

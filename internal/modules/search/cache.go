// README: Shared geocoding front: Redis result cache plus singleflight across sessions.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ridesafe/internal/maps"
)

const cacheKeyPrefix = "search:geocode:"

// CachedGeocoder wraps a Geocoder. Identical lookups from different sessions
// share one upstream call; a caller that is cancelled stops waiting but does
// not cancel the shared call.
type CachedGeocoder struct {
	inner Geocoder
	redis *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedGeocoder returns a wrapper. rdb may be nil, in which case only the
// singleflight dedupe applies.
func NewCachedGeocoder(inner Geocoder, rdb *redis.Client, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, redis: rdb, ttl: ttl}
}

func cacheKey(query string, limit int) string {
	return fmt.Sprintf("%s%d:%s", cacheKeyPrefix, limit, strings.ToLower(query))
}

func (c *CachedGeocoder) Search(ctx context.Context, query string, limit int) ([]maps.Place, error) {
	key := cacheKey(query, limit)
	if places, ok := c.lookup(ctx, key); ok {
		return places, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// bounded by the inner client's own timeout
		shared := context.WithoutCancel(ctx)
		places, err := c.inner.Search(shared, query, limit)
		if err != nil {
			return nil, err
		}
		c.store(shared, key, places)
		return places, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]maps.Place), nil
	}
}

func (c *CachedGeocoder) lookup(ctx context.Context, key string) ([]maps.Place, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Debug("search cache read failed", "error", err)
		}
		return nil, false
	}
	var places []maps.Place
	if err := json.Unmarshal(raw, &places); err != nil {
		return nil, false
	}
	return places, true
}

func (c *CachedGeocoder) store(ctx context.Context, key string, places []maps.Place) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(places)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Debug("search cache write failed", "error", err)
	}
}

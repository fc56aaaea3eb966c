// README: Rider fix store backed by Redis GEO plus a per-rider metadata hash.
package location

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ridesafe/internal/types"
)

const (
	geoRidersKey = "geo:riders"
	fixTTL       = 24 * time.Hour
)

func fixKey(id types.ID) string { return "rider:fix:" + string(id) }

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SaveFix(ctx context.Context, fix Fix) error {
	pipe := s.redis.TxPipeline()
	key := fixKey(fix.RiderID)
	if fix.Permission == PermissionDenied {
		pipe.ZRem(ctx, geoRidersKey, string(fix.RiderID))
		pipe.Del(ctx, key)
	} else {
		pipe.GeoAdd(ctx, geoRidersKey, &redis.GeoLocation{
			Name:      string(fix.RiderID),
			Longitude: fix.Position.Longitude,
			Latitude:  fix.Position.Latitude,
		})
	}
	pipe.HSet(ctx, key,
		"permission", string(fix.Permission),
		"accuracy_m", strconv.FormatFloat(fix.AccuracyM, 'f', -1, 64),
		"ts_ms", fix.RecordedAt.UnixMilli(),
	)
	pipe.Expire(ctx, key, fixTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save fix: %w", err)
	}
	return nil
}

func (s *Store) LatestFix(ctx context.Context, riderID types.ID) (Fix, error) {
	pipe := s.redis.Pipeline()
	posCmd := pipe.GeoPos(ctx, geoRidersKey, string(riderID))
	metaCmd := pipe.HGetAll(ctx, fixKey(riderID))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Fix{}, fmt.Errorf("redis latest fix: %w", err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		return Fix{}, ErrNoFix
	}
	tsMs, err := strconv.ParseInt(meta["ts_ms"], 10, 64)
	if err != nil {
		return Fix{}, fmt.Errorf("redis latest fix: bad timestamp %q", meta["ts_ms"])
	}
	fix := Fix{
		RiderID:    riderID,
		Permission: Permission(meta["permission"]),
		RecordedAt: time.UnixMilli(tsMs),
	}
	if acc, err := strconv.ParseFloat(meta["accuracy_m"], 64); err == nil {
		fix.AccuracyM = acc
	}
	if fix.Permission == PermissionDenied {
		return fix, nil
	}

	pos := posCmd.Val()
	if len(pos) == 0 || pos[0] == nil {
		return Fix{}, ErrNoFix
	}
	fix.Position = types.NewCoordinate(pos[0].Latitude, pos[0].Longitude)
	return fix, nil
}

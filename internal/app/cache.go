package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
)

const leaderboardPrefix = "leaderboard:"

func leaderboardKey(year, month int) string {
	return fmt.Sprintf("%s%d:%d", leaderboardPrefix, year, month)
}
func hotelKey(id string) string { return "hotel:" + id }

// dropCached removes read models after a write. A failed delete is logged and
// the entry ages out with its TTL.
func dropCached(ctx context.Context, c domain.Cache, keys ...string) {
	for _, k := range keys {
		if err := c.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache invalidation failed")
		}
	}
}

// dropLeaderboards clears every cached period. Hotel renames and closures
// change rows in all of them.
func dropLeaderboards(ctx context.Context, c domain.Cache) {
	if err := c.DelPrefix(ctx, leaderboardPrefix); err != nil {
		log.Warn().Err(err).Str("prefix", leaderboardPrefix).Msg("cache invalidation failed")
	}
}

// noCache is used when no redis address is configured.
type noCache struct{}

func (noCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noCache) Set(context.Context, string, any, int) error    { return nil }
func (noCache) Del(context.Context, string) error              { return nil }
func (noCache) DelPrefix(context.Context, string) error        { return nil }

func orNoCache(c domain.Cache) domain.Cache {
	if c == nil {
		return noCache{}
	}
	return c
}

var newID = uuid.NewString

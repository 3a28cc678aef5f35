// Package multicache provides a multi-tiered outputcache.Storage that
// cascades through multiple backends with automatic fallback and
// promotion. This enables sophisticated caching strategies with different
// performance and persistence characteristics at each tier.
package multicache

import (
	"context"
	"time"

	"github.com/sandrolain/outputcache"
)

// defaultPromotionTTL is used when promoting a value found in a slower
// tier up to faster tiers, since the original TTL passed to Set isn't
// recoverable from a stored CacheEntry alone.
const defaultPromotionTTL = 60 * time.Second

// Storage implements a multi-tiered caching strategy where tiers are
// ordered from fastest/smallest (first) to slowest/largest (last). On
// reads, it searches each tier in order and promotes found values to
// faster tiers. On writes, it stores to all tiers.
//
// Example use case:
//   - Tier 1: in-process MemoryCache (fast, small, volatile)
//   - Tier 2: redis (medium speed, larger, persistent)
//   - Tier 3: postgresql (slower, largest, highly persistent)
type Storage struct {
	tiers        []outputcache.Storage
	promotionTTL time.Duration
}

var _ outputcache.Storage = (*Storage)(nil)

// New creates a Storage with the specified tiers, ordered from
// fastest/smallest to slowest/largest. At least one tier must be
// provided, and all tiers must be non-nil and unique. promotionTTL bounds
// how long a value promoted to a faster tier lives there; pass 0 to use a
// 60s default.
//
// Returns nil if no tiers are provided, any tier is nil, or a tier is
// duplicated.
func New(promotionTTL time.Duration, tiers ...outputcache.Storage) *Storage {
	if len(tiers) == 0 {
		return nil
	}

	seen := make(map[outputcache.Storage]bool)
	for _, tier := range tiers {
		if tier == nil || seen[tier] {
			return nil
		}
		seen[tier] = true
	}

	if promotionTTL <= 0 {
		promotionTTL = defaultPromotionTTL
	}

	return &Storage{tiers: tiers, promotionTTL: promotionTTL}
}

// Get searches each tier in order, starting with the fastest. When a
// value is found in a slower tier, it is promoted (written) to all faster
// tiers for subsequent quick access; promotion errors are ignored since
// the value was still found successfully.
func (s *Storage) Get(ctx context.Context, key string) (*outputcache.CacheEntry, bool, error) {
	for i, tier := range s.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			_ = s.promoteToFasterTiers(ctx, key, entry, i) //nolint:errcheck // promotion is best-effort
			return entry, true, nil
		}
	}
	return nil, false, nil
}

// Set stores entry in every tier in order, so each tier can apply its own
// eviction policy independently. It stops at the first tier that fails and
// returns that error; the tiers after it are not written.
func (s *Storage) Set(ctx context.Context, key string, entry *outputcache.CacheEntry, ttl time.Duration) error {
	for _, tier := range s.tiers {
		if err := tier.Set(ctx, key, entry, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) promoteToFasterTiers(ctx context.Context, key string, entry *outputcache.CacheEntry, foundAtTier int) error {
	for i := 0; i < foundAtTier; i++ {
		if err := s.tiers[i].Set(ctx, key, entry, s.promotionTTL); err != nil {
			return err
		}
	}
	return nil
}

package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard remembers recently seen svix message ids in Redis so that
// duplicate deliveries can be acknowledged without touching the store.
// It runs only after signature verification; reconciliation is idempotent
// anyway, so a Redis outage degrades open.
type ReplayGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewReplayGuard(rdb *redis.Client, ttl time.Duration) *ReplayGuard {
	if ttl <= 0 {
		ttl = 2 * DefaultTolerance
	}
	return &ReplayGuard{rdb: rdb, ttl: ttl, prefix: "wh:seen:"}
}

// Seen reports whether the message id was already recorded. It never
// records anything itself: an id is marked only after reconciliation
// succeeds, so a failed delivery stays eligible for redelivery.
func (g *ReplayGuard) Seen(ctx context.Context, messageID string) (bool, error) {
	n, err := g.rdb.Exists(ctx, g.prefix+messageID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the message id once the event has been fully processed.
func (g *ReplayGuard) Mark(ctx context.Context, messageID string) error {
	return g.rdb.Set(ctx, g.prefix+messageID, 1, g.ttl).Err()
}

package mailprobe

import (
    "context"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// Checker is the probing surface consumed by callers; both Prober and
// Cache satisfy it.
type Checker interface {
    Probe(ctx context.Context, email string) Result
}

// Cache wraps a Checker with a Redis verdict cache so repeated
// registrations with the same address do not open a new SMTP dialogue
// each time.  Only definitive outcomes are cached: an unverifiable result
// must stay transient, otherwise a relay hiccup would pin a wrong answer
// for the TTL.  A nil client degrades to probing directly.
type Cache struct {
    rdb  *redis.Client
    ttl  time.Duration
    next Checker
}

func NewCache(rdb *redis.Client, ttl time.Duration, next Checker) *Cache {
    return &Cache{rdb: rdb, ttl: ttl, next: next}
}

func cacheKey(email string) string {
    return "mailprobe:" + strings.ToLower(strings.TrimSpace(email))
}

// Probe serves a cached definitive verdict when one exists, otherwise
// delegates to the underlying prober and caches the result if definitive.
// Redis failures are treated as cache misses.
func (c *Cache) Probe(ctx context.Context, email string) Result {
    if c.rdb == nil {
        return c.next.Probe(ctx, email)
    }
    key := cacheKey(email)
    if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
        switch Outcome(v) {
        case OutcomeExists:
            return Result{Outcome: OutcomeExists, Reason: "cached verdict"}
        case OutcomeNotExists:
            return Result{Outcome: OutcomeNotExists, Reason: "cached verdict"}
        }
    }
    res := c.next.Probe(ctx, email)
    if res.Definitive() {
        _ = c.rdb.Set(ctx, key, string(res.Outcome), c.ttl).Err()
    }
    return res
}

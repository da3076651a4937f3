package mailprobe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// countingChecker records how many probes reached the real prober.
type countingChecker struct {
	calls int
	res   Result
}

func (c *countingChecker) Probe(_ context.Context, _ string) Result {
	c.calls++
	return c.res
}

func newCacheUnderTest(t *testing.T, res Result) (*Cache, *countingChecker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	next := &countingChecker{res: res}
	return NewCache(rdb, 15*time.Minute, next), next, mr
}

func TestCacheServesDefinitiveVerdicts(t *testing.T) {
	cache, next, _ := newCacheUnderTest(t, Result{Outcome: OutcomeExists, Reason: "mailbox accepted"})
	ctx := context.Background()

	first := cache.Probe(ctx, "someone@example.com")
	second := cache.Probe(ctx, "someone@example.com")

	assert.Equal(t, OutcomeExists, first.Outcome)
	assert.Equal(t, OutcomeExists, second.Outcome)
	assert.Equal(t, 1, next.calls, "second probe must be served from cache")
}

func TestCacheKeyIsCaseInsensitive(t *testing.T) {
	cache, next, _ := newCacheUnderTest(t, Result{Outcome: OutcomeNotExists})
	ctx := context.Background()

	cache.Probe(ctx, "Someone@Example.com")
	cache.Probe(ctx, "someone@example.com")

	assert.Equal(t, 1, next.calls)
}

func TestCacheSkipsUnverifiableResults(t *testing.T) {
	cache, next, mr := newCacheUnderTest(t, Result{Outcome: OutcomeUnverifiable})
	ctx := context.Background()

	cache.Probe(ctx, "someone@example.com")
	cache.Probe(ctx, "someone@example.com")

	assert.Equal(t, 2, next.calls, "inconclusive verdicts must not be cached")
	assert.False(t, mr.Exists(cacheKey("someone@example.com")))
}

func TestCacheExpiredVerdictProbesAgain(t *testing.T) {
	cache, next, mr := newCacheUnderTest(t, Result{Outcome: OutcomeNotExists})
	ctx := context.Background()

	cache.Probe(ctx, "gone@example.com")
	mr.FastForward(16 * time.Minute)
	cache.Probe(ctx, "gone@example.com")

	assert.Equal(t, 2, next.calls)
}

func TestCacheNilClientProbesDirectly(t *testing.T) {
	next := &countingChecker{res: Result{Outcome: OutcomeExists}}
	cache := NewCache(nil, time.Minute, next)

	res := cache.Probe(context.Background(), "someone@example.com")
	assert.Equal(t, OutcomeExists, res.Outcome)
	assert.Equal(t, 1, next.calls)
}

package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/siahsang/conduit/internal/utils/collectionutils"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	// unix nanoseconds
	lastSeen atomic.Int64
}

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	visitors *collectionutils.SafeMap[string, *visitor]
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: collectionutils.New[string, *visitor](),
		rate:     rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	v := l.visitors.LoadOrStore(key, func() *visitor {
		return &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
	})
	now := l.now()
	v.lastSeen.Store(now.UnixNano())
	return v.limiter.AllowN(now, 1), nil
}

// Cleanup forgets keys idle for longer than maxIdle and returns how many were dropped.
func (l *MemoryLimiter) Cleanup(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle).UnixNano()
	return l.visitors.DeleteIf(func(_ string, v *visitor) bool {
		return v.lastSeen.Load() < cutoff
	})
}

// Len reports how many keys are currently tracked.
func (l *MemoryLimiter) Len() int {
	return l.visitors.Len()
}

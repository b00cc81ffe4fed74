package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a requests-per-minute ceiling per destination
// host. Callers over the ceiling block until a token is available; no
// request is ever dropped. The limiter is the single piece of state
// shared across concurrent fetches, so the map is mutex-guarded.
type HostLimiter struct {
	mu               sync.Mutex
	limiters         map[string]*rate.Limiter
	defaultPerMinute int
	overrides        map[string]int
}

// NewHostLimiter creates a limiter with a default per-host ceiling and
// optional per-host overrides
func NewHostLimiter(defaultPerMinute int, overrides map[string]int) *HostLimiter {
	if defaultPerMinute < 1 {
		defaultPerMinute = 1
	}
	return &HostLimiter{
		limiters:         make(map[string]*rate.Limiter),
		defaultPerMinute: defaultPerMinute,
		overrides:        overrides,
	}
}

// Wait blocks until a token is available for host or ctx is done.
// One token is consumed per call.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	return hl.limiterFor(host).Wait(ctx)
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if limiter, ok := hl.limiters[host]; ok {
		return limiter
	}

	perMinute := hl.defaultPerMinute
	if override, ok := hl.overrides[host]; ok && override > 0 {
		perMinute = override
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	hl.limiters[host] = limiter
	return limiter
}

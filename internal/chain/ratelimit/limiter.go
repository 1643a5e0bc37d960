package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by every call a node client issues,
// whichever endpoint it currently targets.
type Limiter struct {
	limiter *rate.Limiter
	client  string
}

// NewLimiter allows rps calls per second with a burst of burst tokens.
// A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int, client string) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		client:  client,
	}
}

// Wait blocks until one token is available or ctx is done. A reservation is
// cancelled when ctx ends first so the token goes back to the bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	metrics.RPCRateLimitWaits.WithLabelValues(l.client).Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// RecordCall records the outcome and latency of one node call. status is
// "ok" or an error kind label.
func RecordCall(method, status string, elapsed time.Duration) {
	metrics.RPCCallsTotal.WithLabelValues(method, status).Inc()
	metrics.RPCCallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

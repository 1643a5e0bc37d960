package nodeselect

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("endpoint circuit open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type BreakerConfig struct {
	FailureThreshold int           // consecutive probe failures before opening (default 3)
	SuccessThreshold int           // half-open successes before closing (default 1)
	OpenTimeout      time.Duration // default 30s
	OnStateChange    func(endpoint string, from, to BreakerState)
}

// breaker tracks one endpoint. Callers hold health.mu.
type breaker struct {
	state         BreakerState
	failures      int
	successes     int
	lastFailureAt time.Time
}

// health is a set of per-endpoint breakers sharing one config.
type health struct {
	cfg   BreakerConfig
	nowFn func() time.Time

	mu       sync.Mutex
	breakers map[string]*breaker
}

func newHealth(cfg BreakerConfig) *health {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &health{cfg: cfg, nowFn: time.Now, breakers: make(map[string]*breaker)}
}

func (h *health) get(endpoint string) *breaker {
	b, ok := h.breakers[endpoint]
	if !ok {
		b = &breaker{}
		h.breakers[endpoint] = b
	}
	return b
}

// allow reports ErrCircuitOpen for endpoints that should not be probed.
// An open breaker past its timeout moves to half-open and lets one probe
// through.
func (h *health) allow(endpoint string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.get(endpoint)
	if b.state == BreakerOpen {
		if h.nowFn().Sub(b.lastFailureAt) <= h.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		h.setState(endpoint, b, BreakerHalfOpen)
	}
	return nil
}

func (h *health) recordSuccess(endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.get(endpoint)
	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.successes++
		if b.successes >= h.cfg.SuccessThreshold {
			h.setState(endpoint, b, BreakerClosed)
		}
	}
}

func (h *health) recordFailure(endpoint string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.get(endpoint)
	b.failures++
	b.successes = 0
	b.lastFailureAt = h.nowFn()
	switch {
	case b.state == BreakerHalfOpen:
		h.setState(endpoint, b, BreakerOpen)
	case b.state == BreakerClosed && b.failures >= h.cfg.FailureThreshold:
		h.setState(endpoint, b, BreakerOpen)
	}
}

func (h *health) state(endpoint string) BreakerState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.get(endpoint).state
}

func (h *health) setState(endpoint string, b *breaker, to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0
	if to == BreakerClosed {
		b.failures = 0
	}
	if h.cfg.OnStateChange != nil {
		h.cfg.OnStateChange(endpoint, from, to)
	}
}

package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"github.com/shopspring/decimal"
)

// UpdateClaimable queries the claimable GAS of the writable address and
// records it. While a sequence is running the value is left alone; the run
// reads the node directly.
func (o *Orchestrator) UpdateClaimable(ctx context.Context) (decimal.Decimal, error) {
	info, err := o.client.GetClaimable(ctx, o.portfolio.WritableAddress())
	if err != nil {
		return decimal.Zero, fmt.Errorf("get claimable: %w", err)
	}
	o.SetClaimable(info.Amount)
	return info.Amount, nil
}

// SetClaimable records an externally observed claimable amount. It is a
// no-op while a claim is in progress.
func (o *Orchestrator) SetClaimable(amount decimal.Decimal) bool {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	if o.phase.InProgress() || o.pending.Equal(amount) {
		o.mu.Unlock()
		return false
	}
	o.pending = amount
	state := o.stateLocked()
	o.mu.Unlock()

	f, _ := amount.Float64()
	metrics.ClaimPendingGAS.Set(f)
	o.notifyPhase(state)
	return true
}

// RunClaimablePoller refreshes the claimable amount immediately and then
// every interval until ctx is done.
func (o *Orchestrator) RunClaimablePoller(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := o.UpdateClaimable(ctx); err != nil && ctx.Err() == nil {
			o.logger.Warn("claimable poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

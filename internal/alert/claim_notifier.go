package alert

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/claim"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/shopspring/decimal"
)

const sendTimeout = 15 * time.Second

// ClaimNotifier turns claim outcomes into alerts. Sends happen in the
// background so a slow channel never holds up the orchestrator.
type ClaimNotifier struct {
	alerter Alerter
	network model.Network
	address string
	logger  *slog.Logger
	wg      sync.WaitGroup
}

var _ claim.Observer = (*ClaimNotifier)(nil)

func NewClaimNotifier(alerter Alerter, network model.Network, address string, logger *slog.Logger) *ClaimNotifier {
	return &ClaimNotifier{
		alerter: alerter,
		network: network,
		address: address,
		logger:  logger.With("component", "claim_notifier"),
	}
}

func (n *ClaimNotifier) OnPhaseChanged(model.ClaimState) {}

func (n *ClaimNotifier) OnClaimSucceeded(amount decimal.Decimal) {
	n.dispatch(Alert{
		Type:    AlertTypeClaimSucceeded,
		Network: n.network.String(),
		Address: n.address,
		Title:   "GAS claimed",
		Message: amount.String() + " GAS claimed",
		Fields:  map[string]string{"amount": amount.String()},
	})
}

// OnClaimFailed alerts on terminal failures only; a user cancel is not one.
func (n *ClaimNotifier) OnClaimFailed(reason error) {
	if errors.Is(reason, claim.ErrClaimCancelled) {
		return
	}
	fields := map[string]string{}
	var stepErr *claim.StepError
	if errors.As(reason, &stepErr) {
		fields["step"] = string(stepErr.Step)
		fields["attempts"] = strconv.Itoa(stepErr.Attempts)
	}
	n.dispatch(Alert{
		Type:    AlertTypeClaimFailed,
		Network: n.network.String(),
		Address: n.address,
		Title:   "GAS claim failed",
		Message: reason.Error(),
		Fields:  fields,
	})
}

func (n *ClaimNotifier) dispatch(a Alert) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.alerter.Send(ctx, a); err != nil {
			n.logger.Warn("claim alert not delivered", "type", a.Type, "error", err)
		}
	}()
}

// Wait blocks until queued alerts have been sent or timed out.
func (n *ClaimNotifier) Wait() {
	n.wg.Wait()
}

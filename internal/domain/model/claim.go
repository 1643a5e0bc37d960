package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ClaimPhase string

const (
	ClaimPhaseIdle                 ClaimPhase = "IDLE"
	ClaimPhaseConsolidatingNeo     ClaimPhase = "CONSOLIDATING_NEO"
	ClaimPhaseAwaitingConfirmation ClaimPhase = "AWAITING_CONFIRMATION"
	ClaimPhaseClaiming             ClaimPhase = "CLAIMING"
	ClaimPhaseCooldownWait         ClaimPhase = "COOLDOWN_WAIT"
)

func (p ClaimPhase) String() string {
	return string(p)
}

// InProgress reports whether a claim sequence owns the phase.
func (p ClaimPhase) InProgress() bool {
	switch p {
	case ClaimPhaseConsolidatingNeo, ClaimPhaseAwaitingConfirmation, ClaimPhaseClaiming:
		return true
	}
	return false
}

// ClaimState is an observation of the claim orchestrator. It is always
// handed out by value.
type ClaimState struct {
	Phase            ClaimPhase      `json:"phase"`
	LastClaimAt      time.Time       `json:"last_claim_at"`
	PendingClaimable decimal.Decimal `json:"pending_claimable"`
	RetryCount       int             `json:"retry_count"`
	RunID            string          `json:"run_id,omitempty"`
}

// ClaimReference is one spent output that has accrued unclaimed GAS.
type ClaimReference struct {
	TxID        string          `json:"txid"`
	Index       int             `json:"index"`
	Value       decimal.Decimal `json:"value"`
	StartHeight int64           `json:"start_height"`
	EndHeight   int64           `json:"end_height"`
	Unclaimed   decimal.Decimal `json:"unclaimed"`
}

// ClaimableInfo is the claimable GAS for an address plus the outputs a claim
// transaction has to reference.
type ClaimableInfo struct {
	Address string           `json:"address"`
	Amount  decimal.Decimal  `json:"amount"`
	Claims  []ClaimReference `json:"claims"`
}

func (c ClaimableInfo) HasClaims() bool {
	return len(c.Claims) > 0
}

// StackItem is a single value left on the VM stack by an invocation.
type StackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// InvokeResult is the outcome of a read-only contract invocation.
type InvokeResult struct {
	Script      string      `json:"script"`
	State       string      `json:"state"`
	GasConsumed string      `json:"gas_consumed"`
	Stack       []StackItem `json:"stack"`
}

// Faulted reports whether the VM ended in a FAULT state.
func (r InvokeResult) Faulted() bool {
	return strings.Contains(r.State, "FAULT")
}

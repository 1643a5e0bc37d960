package claim

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClaimInProgress is returned by StartClaim while a sequence owns the
	// state machine. Nothing is changed.
	ErrClaimInProgress = errors.New("claim already in progress")

	// ErrClaimCancelled is reported to observers when Cancel ends a run.
	ErrClaimCancelled = errors.New("claim cancelled")

	// ErrAttemptsExhausted marks a run that hit its configured retry budget.
	ErrAttemptsExhausted = errors.New("claim attempts exhausted")

	errNoClaimsYet = errors.New("no claimable outputs reported yet")
	errTxRejected  = errors.New("transaction rejected by node")
)

type RejectReason string

const (
	RejectNothingToClaim RejectReason = "nothing_to_claim"
	RejectCooldown       RejectReason = "cooldown_active"
)

// RejectError is returned by StartClaim when the request is valid but the
// wallet state does not allow a claim right now.
type RejectError struct {
	Reason RejectReason
	// Remaining is the cooldown left, set for RejectCooldown.
	Remaining time.Duration
}

func (e *RejectError) Error() string {
	if e.Reason == RejectCooldown {
		return fmt.Sprintf("claim rejected: %s (%s remaining)", e.Reason, e.Remaining.Round(time.Second))
	}
	return fmt.Sprintf("claim rejected: %s", e.Reason)
}

// StepError is the reason passed to OnClaimFailed when a step gives up.
type StepError struct {
	Step     Step
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

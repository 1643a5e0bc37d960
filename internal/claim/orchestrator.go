// Package claim drives the GAS claim sequence: consolidate NEO with a
// self-transfer, wait for it to settle, then submit the claim.
package claim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/chain"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"github.com/emperorhan/neo-wallet-engine/internal/retry"
	"github.com/emperorhan/neo-wallet-engine/internal/signer"
	"github.com/emperorhan/neo-wallet-engine/internal/tracing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultCooldown    = 5 * time.Minute
	DefaultRetryDelay  = 10 * time.Second
	DefaultSettleDelay = 10 * time.Second
)

type Step string

const (
	StepConsolidate Step = "consolidate"
	StepClaim       Step = "claim"
)

// Observer receives state changes in the order they happen. Callbacks run
// synchronously and must not call StartClaim or Cancel.
type Observer interface {
	OnPhaseChanged(state model.ClaimState)
	OnClaimSucceeded(amount decimal.Decimal)
	OnClaimFailed(reason error)
}

// Portfolio is the read side of the aggregator the orchestrator needs.
type Portfolio interface {
	WritableAddress() string
	View() model.AggregateView
	Refresh(ctx context.Context) model.AggregateView
}

type EndpointSelector interface {
	Best(ctx context.Context) (string, error)
}

// CooldownStore persists the time of the last successful claim.
type CooldownStore interface {
	LastClaimAt(ctx context.Context) (time.Time, error)
	RecordClaim(ctx context.Context, at time.Time) error
}

type Config struct {
	Cooldown    time.Duration
	RetryDelay  time.Duration
	SettleDelay time.Duration
	// Zero means unlimited.
	MaxConsolidationAttempts int
	MaxClaimAttempts         int
}

func (c Config) withDefaults() Config {
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	return c
}

type run struct {
	id     string
	cancel context.CancelFunc
}

type Orchestrator struct {
	client    chain.NodeClient
	selector  EndpointSelector
	signer    signer.Signer
	portfolio Portfolio
	store     CooldownStore
	cfg       Config
	logger    *slog.Logger

	baseCtx context.Context
	sleepFn func(ctx context.Context, d time.Duration) error
	nowFn   func() time.Time

	// transitionMu orders every state change together with its
	// notifications; mu guards the fields for readers.
	transitionMu sync.Mutex
	mu           sync.Mutex
	phase        model.ClaimPhase
	lastClaimAt  time.Time
	pending      decimal.Decimal
	retryCount   int
	current      *run

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObsID uint64

	wg sync.WaitGroup
}

type Option func(*Orchestrator)

// WithSelector enables endpoint selection at the start of each run.
func WithSelector(s EndpointSelector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

// WithBaseContext bounds every run; cancelling it stops runs without
// reporting a failure.
func WithBaseContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.baseCtx = ctx }
}

func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleepFn = fn }
}

func withClock(fn func() time.Time) Option {
	return func(o *Orchestrator) { o.nowFn = fn }
}

func New(
	client chain.NodeClient,
	sgn signer.Signer,
	portfolio Portfolio,
	store CooldownStore,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		signer:    sgn,
		portfolio: portfolio,
		store:     store,
		cfg:       cfg.withDefaults(),
		logger:    logger.With("component", "claim"),
		baseCtx:   context.Background(),
		sleepFn:   sleep,
		nowFn:     time.Now,
		phase:     model.ClaimPhaseIdle,
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restore loads the persisted cooldown.
func (o *Orchestrator) Restore(ctx context.Context) error {
	at, err := o.store.LastClaimAt(ctx)
	if err != nil {
		return fmt.Errorf("load last claim time: %w", err)
	}
	o.mu.Lock()
	o.lastClaimAt = at
	o.mu.Unlock()
	return nil
}

// Subscribe registers obs and returns the func that removes it.
func (o *Orchestrator) Subscribe(obs Observer) (unsubscribe func()) {
	o.obsMu.Lock()
	id := o.nextObsID
	o.nextObsID++
	o.observers[id] = obs
	o.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.obsMu.Lock()
			delete(o.observers, id)
			o.obsMu.Unlock()
		})
	}
}

// State returns a copy of the current state. An idle orchestrator inside
// its cooldown with nothing pending reports COOLDOWN_WAIT.
func (o *Orchestrator) State() model.ClaimState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

func (o *Orchestrator) stateLocked() model.ClaimState {
	s := model.ClaimState{
		Phase:            o.phase,
		LastClaimAt:      o.lastClaimAt,
		PendingClaimable: o.pending,
		RetryCount:       o.retryCount,
	}
	if o.current != nil {
		s.RunID = o.current.id
	}
	if o.phase == model.ClaimPhaseIdle && !o.pending.IsPositive() && o.cooldownLeftLocked() > 0 {
		s.Phase = model.ClaimPhaseCooldownWait
	}
	return s
}

func (o *Orchestrator) cooldownLeftLocked() time.Duration {
	if o.lastClaimAt.IsZero() {
		return 0
	}
	return o.cfg.Cooldown - o.nowFn().Sub(o.lastClaimAt)
}

// StartClaim begins a claim sequence and returns once the first transition
// has been made. The sequence itself runs in the background.
func (o *Orchestrator) StartClaim(ctx context.Context) error {
	_, span := tracing.Tracer("claim").Start(ctx, "claim.start")

	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	if o.phase != model.ClaimPhaseIdle {
		o.mu.Unlock()
		metrics.ClaimRejected.WithLabelValues("in_progress").Inc()
		tracing.End(span, ErrClaimInProgress)
		return ErrClaimInProgress
	}

	neoBalance := o.portfolio.View().Writable.NEO().Amount
	pending := o.pending
	var rejectErr *RejectError
	if !neoBalance.IsPositive() {
		rejectErr = &RejectError{Reason: RejectNothingToClaim}
	} else if !pending.IsPositive() {
		if left := o.cooldownLeftLocked(); left > 0 {
			rejectErr = &RejectError{Reason: RejectCooldown, Remaining: left}
		}
	}
	if rejectErr != nil {
		o.mu.Unlock()
		metrics.ClaimRejected.WithLabelValues(string(rejectErr.Reason)).Inc()
		tracing.End(span, rejectErr)
		return rejectErr
	}

	runCtx, cancel := context.WithCancel(o.baseCtx)
	r := &run{id: uuid.NewString(), cancel: cancel}
	o.current = r
	o.retryCount = 0
	if pending.IsPositive() {
		o.phase = model.ClaimPhaseClaiming
	} else {
		o.phase = model.ClaimPhaseConsolidatingNeo
	}
	state := o.stateLocked()
	o.mu.Unlock()

	span.SetAttributes(attribute.String("run_id", r.id), attribute.String("phase", state.Phase.String()))
	tracing.End(span, nil)

	o.logger.Info("claim started",
		"run_id", r.id,
		"phase", state.Phase,
		"neo_balance", neoBalance.String(),
		"pending_claimable", pending.String(),
	)
	o.notifyPhase(state)

	o.wg.Add(1)
	go o.execute(runCtx, r, neoBalance, state.Phase == model.ClaimPhaseClaiming)
	return nil
}

// Cancel aborts the active run and returns to Idle. It reports whether a
// run was active.
func (o *Orchestrator) Cancel() bool {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	r := o.current
	if r == nil {
		o.mu.Unlock()
		return false
	}
	r.cancel()
	o.current = nil
	o.phase = model.ClaimPhaseIdle
	o.retryCount = 0
	state := o.stateLocked()
	o.mu.Unlock()

	metrics.ClaimFailed.WithLabelValues("cancelled").Inc()
	o.logger.Info("claim cancelled", "run_id", r.id)
	o.notifyPhase(state)
	o.notifyFailed(ErrClaimCancelled)
	return true
}

// Wait blocks until background runs have returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) execute(ctx context.Context, r *run, neoBalance decimal.Decimal, skipConsolidation bool) {
	defer o.wg.Done()

	o.selectEndpoint(ctx, r)

	if !skipConsolidation {
		if !o.consolidate(ctx, r, neoBalance) {
			return
		}
		if !o.transition(r, model.ClaimPhaseAwaitingConfirmation, nil) {
			return
		}
		if err := o.sleepFn(ctx, o.cfg.SettleDelay); err != nil {
			return
		}
		if !o.transition(r, model.ClaimPhaseClaiming, func() { o.retryCount = 0 }) {
			return
		}
	}
	o.claim(ctx, r)
}

// selectEndpoint switches the client to the best endpoint. Failure keeps
// the current endpoint; the steps' own retries cover a bad node.
func (o *Orchestrator) selectEndpoint(ctx context.Context, r *run) {
	if o.selector == nil || !o.isCurrent(ctx, r) {
		return
	}
	endpoint, err := o.selector.Best(ctx)
	if err != nil {
		o.logger.Warn("endpoint selection failed, keeping current endpoint",
			"run_id", r.id, "endpoint", o.client.Endpoint(), "error", err)
		return
	}
	if endpoint != o.client.Endpoint() {
		o.client.SetEndpoint(endpoint)
	}
}

func (o *Orchestrator) consolidate(ctx context.Context, r *run, amount decimal.Decimal) bool {
	address := o.portfolio.WritableAddress()
	for attempt := 1; ; attempt++ {
		if !o.isCurrent(ctx, r) {
			return false
		}
		err := o.attempt(ctx, r, StepConsolidate, attempt, func(ctx context.Context) error {
			raw, err := o.signer.SignSelfTransfer(ctx, address, model.NEOAssetID, amount)
			if err != nil {
				return fmt.Errorf("sign self-transfer: %w", err)
			}
			return o.send(ctx, raw)
		})
		if err == nil {
			o.logger.Info("neo consolidated", "run_id", r.id, "address", address, "amount", amount.String(), "attempt", attempt)
			return true
		}
		if o.giveUp(ctx, r, StepConsolidate, attempt, o.cfg.MaxConsolidationAttempts, err) {
			return false
		}
		if err := o.sleepFn(ctx, o.cfg.RetryDelay); err != nil {
			return false
		}
	}
}

func (o *Orchestrator) claim(ctx context.Context, r *run) {
	address := o.portfolio.WritableAddress()
	for attempt := 1; ; attempt++ {
		if !o.isCurrent(ctx, r) {
			return
		}
		var amount decimal.Decimal
		err := o.attempt(ctx, r, StepClaim, attempt, func(ctx context.Context) error {
			info, err := o.client.GetClaimable(ctx, address)
			if err != nil {
				return fmt.Errorf("get claimable: %w", err)
			}
			if !info.HasClaims() || !info.Amount.IsPositive() {
				return retry.Transient(errNoClaimsYet)
			}
			raw, err := o.signer.SignClaim(ctx, info)
			if err != nil {
				return fmt.Errorf("sign claim: %w", err)
			}
			if err := o.send(ctx, raw); err != nil {
				return err
			}
			amount = info.Amount
			return nil
		})
		if err == nil {
			o.succeed(ctx, r, amount)
			return
		}
		if o.giveUp(ctx, r, StepClaim, attempt, o.cfg.MaxClaimAttempts, err) {
			return
		}
		if err := o.sleepFn(ctx, o.cfg.RetryDelay); err != nil {
			return
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, r *run, step Step, n int, fn func(context.Context) error) error {
	ctx, span := tracing.Tracer("claim").Start(ctx, "claim."+string(step))
	span.SetAttributes(attribute.String("run_id", r.id), attribute.Int("attempt", n))
	err := fn(ctx)
	tracing.End(span, err)

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ClaimAttempts.WithLabelValues(string(step), result).Inc()
	return err
}

func (o *Orchestrator) send(ctx context.Context, raw []byte) error {
	accepted, err := o.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return fmt.Errorf("send raw transaction: %w", err)
	}
	if !accepted {
		return retry.Transient(errTxRejected)
	}
	return nil
}

// giveUp decides what happens after a failed attempt. It returns true when
// the run is over, either because it was superseded or because the failure
// was reported.
func (o *Orchestrator) giveUp(ctx context.Context, r *run, step Step, attempt, budget int, err error) bool {
	if !o.isCurrent(ctx, r) {
		return true
	}

	decision := retry.Classify(err)
	if decision.Class == retry.ClassTerminal {
		o.fail(r, &StepError{Step: step, Attempts: attempt, Err: err}, decision.Reason)
		return true
	}
	if budget > 0 && attempt >= budget {
		o.fail(r, &StepError{Step: step, Attempts: attempt, Err: fmt.Errorf("%w: %w", ErrAttemptsExhausted, err)}, "exhausted")
		return true
	}

	metrics.ClaimRetries.WithLabelValues(string(step), decision.Reason).Inc()
	o.logger.Warn("claim step failed, retrying",
		"run_id", r.id,
		"step", step,
		"attempt", attempt,
		"retry_delay", o.cfg.RetryDelay.String(),
		"classification_reason", decision.Reason,
		"error", err,
	)
	return !o.transition(r, "", func() { o.retryCount++ })
}

func (o *Orchestrator) succeed(ctx context.Context, r *run, amount decimal.Decimal) {
	now := o.nowFn()

	o.transitionMu.Lock()
	o.mu.Lock()
	if o.current != r {
		o.mu.Unlock()
		o.transitionMu.Unlock()
		return
	}
	o.current = nil
	o.phase = model.ClaimPhaseIdle
	o.lastClaimAt = now
	o.pending = decimal.Zero
	o.retryCount = 0
	state := o.stateLocked()
	o.mu.Unlock()

	metrics.ClaimSucceeded.Inc()
	metrics.ClaimPendingGAS.Set(0)
	o.logger.Info("gas claimed", "run_id", r.id, "amount", amount.String())
	o.notifyPhase(state)
	o.notifySucceeded(amount)
	o.transitionMu.Unlock()

	// The claim is on chain; record it even if the run is being torn down.
	if err := o.store.RecordClaim(context.WithoutCancel(ctx), now); err != nil {
		o.logger.Error("persist claim time failed", "run_id", r.id, "error", err)
	}
	o.portfolio.Refresh(ctx)
	r.cancel()
}

func (o *Orchestrator) fail(r *run, reason error, label string) {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	if o.current != r {
		o.mu.Unlock()
		return
	}
	r.cancel()
	o.current = nil
	o.phase = model.ClaimPhaseIdle
	o.retryCount = 0
	state := o.stateLocked()
	o.mu.Unlock()

	metrics.ClaimFailed.WithLabelValues(label).Inc()
	o.logger.Error("claim failed", "run_id", r.id, "reason", label, "error", reason)
	o.notifyPhase(state)
	o.notifyFailed(reason)
}

// transition moves r to phase (empty keeps the phase) and applies mutate.
// It reports false, changing nothing, when r is no longer the active run.
func (o *Orchestrator) transition(r *run, phase model.ClaimPhase, mutate func()) bool {
	o.transitionMu.Lock()
	defer o.transitionMu.Unlock()

	o.mu.Lock()
	if o.current != r {
		o.mu.Unlock()
		return false
	}
	if phase != "" {
		o.phase = phase
	}
	if mutate != nil {
		mutate()
	}
	state := o.stateLocked()
	o.mu.Unlock()

	o.notifyPhase(state)
	return true
}

func (o *Orchestrator) isCurrent(ctx context.Context, r *run) bool {
	if ctx.Err() != nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current == r
}

func (o *Orchestrator) snapshotObservers() []Observer {
	o.obsMu.RLock()
	defer o.obsMu.RUnlock()
	out := make([]Observer, 0, len(o.observers))
	for _, obs := range o.observers {
		out = append(out, obs)
	}
	return out
}

func (o *Orchestrator) notifyPhase(s model.ClaimState) {
	metrics.ClaimPhaseTransitions.WithLabelValues(s.Phase.String()).Inc()
	for _, obs := range o.snapshotObservers() {
		obs.OnPhaseChanged(s)
	}
}

func (o *Orchestrator) notifySucceeded(amount decimal.Decimal) {
	for _, obs := range o.snapshotObservers() {
		obs.OnClaimSucceeded(amount)
	}
}

func (o *Orchestrator) notifyFailed(reason error) {
	for _, obs := range o.snapshotObservers() {
		obs.OnClaimFailed(reason)
	}
}

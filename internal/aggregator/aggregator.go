// Package aggregator merges the balances of the writable address and every
// watched address into one AggregateView.
package aggregator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/chain"
	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"github.com/emperorhan/neo-wallet-engine/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Observer is notified once per completed refresh.
type Observer interface {
	OnAggregateUpdated(view model.AggregateView)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(model.AggregateView)

func (f ObserverFunc) OnAggregateUpdated(v model.AggregateView) { f(v) }

// ViewStore is where refreshed views are persisted.
type ViewStore interface {
	SaveView(ctx context.Context, v model.AggregateView) error
	LoadView(ctx context.Context) (model.AggregateView, bool, error)
}

type Aggregator struct {
	client        chain.NodeClient
	store         ViewStore
	logger        *slog.Logger
	concurrency   int
	trackedTokens []string

	// refreshMu serialises refreshes so views are stored and announced in
	// the order they were computed.
	refreshMu sync.Mutex
	current   atomic.Pointer[model.AggregateView]

	obsMu     sync.RWMutex
	observers map[uint64]Observer
	nextObsID uint64
}

type Option func(*Aggregator)

// WithConcurrency bounds the number of in-flight account queries.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithTrackedTokens adds NEP-5 contracts queried with balanceOf for every
// address, on top of what the account state reports.
func WithTrackedTokens(scriptHashes []string) Option {
	return func(a *Aggregator) {
		a.trackedTokens = append([]string(nil), scriptHashes...)
	}
}

func New(client chain.NodeClient, store ViewStore, logger *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		client:      client,
		store:       store,
		logger:      logger.With("component", "aggregator"),
		concurrency: defaultConcurrency,
		observers:   make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Subscribe registers o and returns the func that removes it.
func (a *Aggregator) Subscribe(o Observer) (unsubscribe func()) {
	a.obsMu.Lock()
	id := a.nextObsID
	a.nextObsID++
	a.observers[id] = o
	a.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.obsMu.Lock()
			delete(a.observers, id)
			a.obsMu.Unlock()
		})
	}
}

// Current returns the last view, if any refresh or restore has happened.
func (a *Aggregator) Current() (model.AggregateView, bool) {
	v := a.current.Load()
	if v == nil {
		return model.AggregateView{}, false
	}
	return *v, true
}

// Restore seeds the in-memory view from the store so a restarted process
// serves the last known balances before its first refresh. A stored view
// for a different writable address is ignored.
func (a *Aggregator) Restore(ctx context.Context, writable string) error {
	v, ok, err := a.store.LoadView(ctx)
	if err != nil {
		return err
	}
	if !ok || v.Writable.Address != writable {
		return nil
	}
	a.current.CompareAndSwap(nil, &v)
	a.logger.Info("restored cached portfolio", "address", writable)
	return nil
}

type fetchResult struct {
	snap model.AddressSnapshot
	ok   bool
}

// Refresh queries every address concurrently, merges what succeeded,
// persists the view and notifies observers. It never fails: a failed
// writable fetch keeps the previous writable snapshot and failed watched
// fetches contribute nothing.
func (a *Aggregator) Refresh(ctx context.Context, writable string, watched []string) model.AggregateView {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	start := time.Now()
	ctx, span := tracing.Tracer("aggregator").Start(ctx, "aggregator.refresh")
	defer span.End()

	valid := make([]string, 0, len(watched))
	seen := make(map[string]struct{}, len(watched))
	for _, addr := range watched {
		if _, dup := seen[addr]; dup || addr == writable {
			continue
		}
		seen[addr] = struct{}{}
		if !neo.ValidAddress(addr) {
			metrics.AggregatorInvalidAddresses.WithLabelValues("watched").Inc()
			a.logger.Debug("skipping invalid watched address", "address", addr)
			continue
		}
		valid = append(valid, addr)
	}
	metrics.AggregatorWatchedAddresses.Set(float64(len(valid)))
	span.SetAttributes(attribute.Int("watched_count", len(valid)))

	var writableRes fetchResult
	watchedRes := make([]fetchResult, len(valid))

	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	if neo.ValidAddress(writable) {
		g.Go(func() error {
			writableRes = a.fetch(ctx, writable, "writable")
			return nil
		})
	} else {
		metrics.AggregatorInvalidAddresses.WithLabelValues("writable").Inc()
		a.logger.Warn("writable address invalid, keeping cached snapshot", "address", writable)
	}
	for i, addr := range valid {
		g.Go(func() error {
			watchedRes[i] = a.fetch(ctx, addr, "watched")
			return nil
		})
	}
	_ = g.Wait()

	prev, hasPrev := a.Current()
	next := model.AggregateView{Mode: model.ViewModeCombined}
	if hasPrev {
		next.Mode = prev.Mode
	}

	switch {
	case writableRes.ok:
		next.Writable = writableRes.snap
	case hasPrev && prev.Writable.Address == writable:
		next.Writable = prev.Writable
	default:
		next.Writable = model.EmptySnapshot(writable)
	}

	parts := make([]model.AddressSnapshot, 0, len(watchedRes))
	for _, r := range watchedRes {
		if r.ok {
			parts = append(parts, r.snap)
		}
	}
	next.ReadOnly = model.MergeSnapshots(model.ReadOnlyAddress, parts...)

	if err := a.store.SaveView(ctx, next); err != nil {
		metrics.AggregatorPersistErrors.Inc()
		a.logger.Error("persist aggregate view failed", "error", err)
	}

	a.current.Store(&next)
	a.notify(next)

	outcome := "ok"
	if !writableRes.ok {
		outcome = "stale"
	}
	metrics.AggregatorRefreshTotal.WithLabelValues(outcome).Inc()
	metrics.AggregatorRefreshLatency.Observe(time.Since(start).Seconds())
	a.logger.Debug("portfolio refreshed",
		"address", writable,
		"writable", outcome,
		"watched_ok", len(parts),
		"watched_total", len(valid),
		"elapsed", time.Since(start).String(),
	)
	return next
}

// fetch loads one address. Tracked tokens that fail are skipped; only an
// account-state failure fails the address.
func (a *Aggregator) fetch(ctx context.Context, address, role string) fetchResult {
	ctx, span := tracing.Tracer("aggregator").Start(ctx, "aggregator.fetch")
	span.SetAttributes(attribute.String("address", address), attribute.String("role", role))

	snap, err := a.client.GetAccountState(ctx, address)
	tracing.End(span, err)
	if err != nil {
		metrics.AggregatorFetchErrors.WithLabelValues(role).Inc()
		a.logger.Warn("account state fetch failed", "address", address, "role", role, "error", err)
		return fetchResult{}
	}

	tokens := make([]model.Asset, 0, len(a.trackedTokens))
	for _, hash := range a.trackedTokens {
		t, err := a.client.TokenBalance(ctx, hash, address)
		if err != nil {
			a.logger.Warn("token balance fetch failed", "address", address, "script_hash", hash, "error", err)
			continue
		}
		if !t.IsZero() {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) > 0 {
		snap = snap.WithTokens(tokens...)
	}
	return fetchResult{snap: snap, ok: true}
}

func (a *Aggregator) notify(v model.AggregateView) {
	a.obsMu.RLock()
	obs := make([]Observer, 0, len(a.observers))
	for _, o := range a.observers {
		obs = append(obs, o)
	}
	a.obsMu.RUnlock()

	for _, o := range obs {
		o.OnAggregateUpdated(v)
	}
}

// Package balancecache persists the last aggregated portfolio and the claim
// cooldown bookkeeping on top of a store.KV.
package balancecache

import (
	"context"
	"fmt"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/store"
)

const (
	KeyWritableNative = "writable.native"
	KeyWritableTokens = "writable.tokens"
	KeyReadOnlyNative = "readonly.native"
	KeyReadOnlyTokens = "readonly.tokens"

	KeyLastClaimAt = "claim.last_claim_at"
	KeyClaimCount  = "claim.count"
)

// nativeRecord is the stored form of an address's NEO/GAS pair.
type nativeRecord struct {
	Address string         `json:"address"`
	Assets  [2]model.Asset `json:"assets"`
}

type Cache struct {
	kv store.KV
}

func New(kv store.KV) *Cache {
	return &Cache{kv: kv}
}

// SaveView writes both snapshots of v in a single SetMany so a reader never
// observes a writable snapshot from one refresh next to a read-only
// snapshot from another.
func (c *Cache) SaveView(ctx context.Context, v model.AggregateView) error {
	entries := make(map[string][]byte, 4)
	if err := encodeSnapshot(entries, KeyWritableNative, KeyWritableTokens, v.Writable); err != nil {
		return err
	}
	if err := encodeSnapshot(entries, KeyReadOnlyNative, KeyReadOnlyTokens, v.ReadOnly); err != nil {
		return err
	}
	if err := c.kv.SetMany(ctx, entries); err != nil {
		return fmt.Errorf("save view: %w", err)
	}
	return nil
}

// LoadView returns the last saved view. ok is false when no writable
// snapshot has been stored yet.
func (c *Cache) LoadView(ctx context.Context) (model.AggregateView, bool, error) {
	w, ok, err := c.loadSnapshot(ctx, KeyWritableNative, KeyWritableTokens)
	if err != nil || !ok {
		return model.AggregateView{}, false, err
	}
	r, ok, err := c.loadSnapshot(ctx, KeyReadOnlyNative, KeyReadOnlyTokens)
	if err != nil {
		return model.AggregateView{}, false, err
	}
	if !ok {
		r = model.EmptySnapshot(model.ReadOnlyAddress)
	}
	return model.AggregateView{Writable: w, ReadOnly: r, Mode: model.ViewModeCombined}, true, nil
}

func encodeSnapshot(entries map[string][]byte, nativeKey, tokensKey string, s model.AddressSnapshot) error {
	native, err := store.Encode(nativeRecord{Address: s.Address, Assets: s.Native})
	if err != nil {
		return fmt.Errorf("encode %s: %w", nativeKey, err)
	}
	tokens, err := store.Encode(s.TokenList())
	if err != nil {
		return fmt.Errorf("encode %s: %w", tokensKey, err)
	}
	entries[nativeKey] = native
	entries[tokensKey] = tokens
	return nil
}

func (c *Cache) loadSnapshot(ctx context.Context, nativeKey, tokensKey string) (model.AddressSnapshot, bool, error) {
	native, ok, err := store.Get[nativeRecord](ctx, c.kv, nativeKey)
	if err != nil || !ok {
		return model.AddressSnapshot{}, false, err
	}
	tokens, _, err := store.Get[[]model.Asset](ctx, c.kv, tokensKey)
	if err != nil {
		return model.AddressSnapshot{}, false, err
	}

	s := model.EmptySnapshot(native.Address)
	s.Native = [2]model.Asset{model.NEO(native.Assets[0].Amount), model.GAS(native.Assets[1].Amount)}
	for _, t := range tokens {
		s.Tokens[t.Symbol] = t
	}
	return s, true, nil
}

// LastClaimAt returns the zero time if no claim has been recorded.
func (c *Cache) LastClaimAt(ctx context.Context) (time.Time, error) {
	at, _, err := store.Get[time.Time](ctx, c.kv, KeyLastClaimAt)
	return at, err
}

func (c *Cache) ClaimCount(ctx context.Context) (int64, error) {
	n, _, err := store.Get[int64](ctx, c.kv, KeyClaimCount)
	return n, err
}

// RecordClaim stores the claim time and bumps the counter in one write.
// The read-modify-write of the counter is safe because the orchestrator is
// the only writer of the claim keys.
func (c *Cache) RecordClaim(ctx context.Context, at time.Time) error {
	n, err := c.ClaimCount(ctx)
	if err != nil {
		return err
	}
	ts, err := store.Encode(at.UTC())
	if err != nil {
		return err
	}
	count, err := store.Encode(n + 1)
	if err != nil {
		return err
	}
	if err := c.kv.SetMany(ctx, map[string][]byte{KeyLastClaimAt: ts, KeyClaimCount: count}); err != nil {
		return fmt.Errorf("record claim: %w", err)
	}
	return nil
}

// Clear drops every cached balance and the claim bookkeeping.
func (c *Cache) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx,
		KeyWritableNative, KeyWritableTokens,
		KeyReadOnlyNative, KeyReadOnlyTokens,
		KeyLastClaimAt, KeyClaimCount,
	)
}

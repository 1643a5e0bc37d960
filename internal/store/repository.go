package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
)

// KV is the durable key-value store behind the balance cache, the claim
// cooldown and the watch list. Implementations must make SetMany atomic:
// readers see either all of the entries or none of them.
type KV interface {
	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetMany writes every entry in one transaction.
	SetMany(ctx context.Context, entries map[string][]byte) error
	// Delete removes keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
	Close() error
}

// Get decodes the JSON value stored under key into T.
func Get[T any](ctx context.Context, kv KV, key string) (T, bool, error) {
	var v T
	raw, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores v under key as JSON.
func Set[T any](ctx context.Context, kv KV, key string, v T) error {
	raw, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.SetMany(ctx, map[string][]byte{key: raw})
}

// Encode is the value encoding shared by Set and batched SetMany callers.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Observe records latency and failure of one backend operation.
func Observe(backend, op string, start time.Time, err error) {
	metrics.StoreOperationLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(backend, op).Inc()
	}
}

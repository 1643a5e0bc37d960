// Package memory is a process-local store.KV used for tests and for running
// without persistence.
package memory

import (
	"context"
	"sync"

	"github.com/emperorhan/neo-wallet-engine/internal/store"
)

type KV struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ store.KV = (*KV)(nil)

func New() *KV {
	return &KV{items: make(map[string][]byte)}
}

func (k *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (k *KV) SetMany(_ context.Context, entries map[string][]byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, v := range entries {
		k.items[key] = append([]byte(nil), v...)
	}
	return nil
}

func (k *KV) Delete(_ context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		delete(k.items, key)
	}
	return nil
}

func (k *KV) Clear(_ context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.items = make(map[string][]byte)
	return nil
}

func (k *KV) Close() error { return nil }

// Len returns the number of stored keys.
func (k *KV) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.items)
}

// Package watchlist keeps the read-only addresses whose balances are summed
// into the portfolio.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/store"
)

const Key = "watchlist.addresses"

var ErrWritableAddress = errors.New("address is the writable address")

type Entry struct {
	Address string              `json:"address"`
	Label   string              `json:"label,omitempty"`
	Source  model.AddressSource `json:"source"`
	AddedAt time.Time           `json:"added_at"`
}

// List is safe for concurrent use. Writes go through to the store before
// the in-memory copy changes.
type List struct {
	kv       store.KV
	writable string
	logger   *slog.Logger

	mu      sync.RWMutex
	entries []Entry
}

func New(kv store.KV, writable string, logger *slog.Logger) *List {
	return &List{
		kv:       kv,
		writable: writable,
		logger:   logger.With("component", "watchlist"),
	}
}

// Load reads the persisted list, then adds any seed addresses that are not
// already present. Invalid seeds are logged and skipped.
func (l *List) Load(ctx context.Context, seeds []string) error {
	stored, _, err := store.Get[[]Entry](ctx, l.kv, Key)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = stored

	added := 0
	for _, s := range seeds {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if err := l.check(s); err != nil {
			l.logger.Warn("skipping watched address seed", "address", s, "error", err)
			continue
		}
		if l.indexOf(s) >= 0 {
			continue
		}
		l.entries = append(l.entries, Entry{Address: s, Source: model.AddressSourceEnv, AddedAt: time.Now().UTC()})
		added++
	}
	if added == 0 {
		return nil
	}
	return l.persist(ctx, l.entries)
}

// Addresses returns the watched addresses in insertion order.
func (l *List) Addresses() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Address
	}
	return out
}

// Entries returns a copy sorted by address.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	out := append([]Entry(nil), l.entries...)
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Add validates and stores address. Adding an address twice updates its
// label and reports created=false.
func (l *List) Add(ctx context.Context, address, label string) (created bool, err error) {
	address = strings.TrimSpace(address)
	if err := l.check(address); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := append([]Entry(nil), l.entries...)
	if i := l.indexOf(address); i >= 0 {
		next[i].Label = label
	} else {
		next = append(next, Entry{Address: address, Label: label, Source: model.AddressSourceStore, AddedAt: time.Now().UTC()})
		created = true
	}
	if err := l.persist(ctx, next); err != nil {
		return false, err
	}
	l.entries = next
	return created, nil
}

// Remove reports whether the address was present.
func (l *List) Remove(ctx context.Context, address string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(strings.TrimSpace(address))
	if i < 0 {
		return false, nil
	}
	next := make([]Entry, 0, len(l.entries)-1)
	next = append(next, l.entries[:i]...)
	next = append(next, l.entries[i+1:]...)
	if err := l.persist(ctx, next); err != nil {
		return false, err
	}
	l.entries = next
	return true, nil
}

func (l *List) check(address string) error {
	if _, err := neo.DecodeAddress(address); err != nil {
		return err
	}
	if address == l.writable {
		return ErrWritableAddress
	}
	return nil
}

func (l *List) indexOf(address string) int {
	for i, e := range l.entries {
		if e.Address == address {
			return i
		}
	}
	return -1
}

func (l *List) persist(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	if err := store.Set(ctx, l.kv, Key, entries); err != nil {
		return fmt.Errorf("persist watchlist: %w", err)
	}
	return nil
}

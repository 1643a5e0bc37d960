package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AddressSnapshot is the balance state of one address (or of a merged set of
// addresses) as reported by a single query. Values are never mutated after
// construction; merging returns a new snapshot.
type AddressSnapshot struct {
	Address string           `json:"address"`
	Native  [2]Asset         `json:"native"`
	Tokens  map[string]Asset `json:"tokens"`
}

// EmptySnapshot returns the zero-value snapshot: NEO and GAS at zero, no
// tokens.
func EmptySnapshot(address string) AddressSnapshot {
	return AddressSnapshot{
		Address: address,
		Native:  [2]Asset{NEO(decimal.Zero), GAS(decimal.Zero)},
		Tokens:  map[string]Asset{},
	}
}

// NewSnapshot builds a snapshot from loose asset lines. Native lines are
// matched by asset id, everything else is keyed by symbol. Duplicate
// symbols are summed.
func NewSnapshot(address string, assets []Asset) AddressSnapshot {
	s := EmptySnapshot(address)
	for _, a := range assets {
		switch a.ID {
		case NEOAssetID:
			s.Native[0] = NEO(s.Native[0].Amount.Add(a.Amount))
		case GASAssetID:
			s.Native[1] = GAS(s.Native[1].Amount.Add(a.Amount))
		default:
			s.Tokens[a.Symbol] = mergeAsset(s.Tokens[a.Symbol], a)
		}
	}
	return s
}

func (s AddressSnapshot) NEO() Asset { return s.Native[0] }
func (s AddressSnapshot) GAS() Asset { return s.Native[1] }

// WithTokens returns a copy of s where each given token replaces any entry
// with the same symbol.
func (s AddressSnapshot) WithTokens(tokens ...Asset) AddressSnapshot {
	out := s.clone()
	for _, t := range tokens {
		out.Tokens[t.Symbol] = t
	}
	return out
}

// TokenList returns the tokens ordered by name, then symbol.
func (s AddressSnapshot) TokenList() []Asset {
	list := make([]Asset, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		list = append(list, t)
	}
	sortAssets(list)
	return list
}

// Equal reports whether two snapshots hold the same address, assets and
// amounts.
func (s AddressSnapshot) Equal(o AddressSnapshot) bool {
	if s.Address != o.Address {
		return false
	}
	if !s.Native[0].Equal(o.Native[0]) || !s.Native[1].Equal(o.Native[1]) {
		return false
	}
	if len(s.Tokens) != len(o.Tokens) {
		return false
	}
	for sym, t := range s.Tokens {
		ot, ok := o.Tokens[sym]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}

func (s AddressSnapshot) clone() AddressSnapshot {
	out := AddressSnapshot{
		Address: s.Address,
		Native:  s.Native,
		Tokens:  make(map[string]Asset, len(s.Tokens)),
	}
	for k, v := range s.Tokens {
		out.Tokens[k] = v
	}
	return out
}

// MergeSnapshots sums the given snapshots into one labelled with address.
// Natives are added positionally and tokens are added by symbol, with a
// missing symbol contributing zero. The result does not depend on argument
// order or grouping.
func MergeSnapshots(address string, snaps ...AddressSnapshot) AddressSnapshot {
	out := EmptySnapshot(address)
	for _, s := range snaps {
		out.Native[0] = NEO(out.Native[0].Amount.Add(s.Native[0].Amount))
		out.Native[1] = GAS(out.Native[1].Amount.Add(s.Native[1].Amount))
		for sym, t := range s.Tokens {
			out.Tokens[sym] = mergeAsset(out.Tokens[sym], t)
		}
	}
	return out
}

// mergeAsset adds b into a. When the two disagree on metadata the entry with
// the smaller id wins so the outcome is independent of merge order.
func mergeAsset(a, b Asset) Asset {
	if a.Symbol == "" {
		return b
	}
	sum := a.Amount.Add(b.Amount)
	if b.ID < a.ID || (b.ID == a.ID && b.Name < a.Name) {
		return b.WithAmount(sum)
	}
	return a.WithAmount(sum)
}

func sortAssets(list []Asset) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].Symbol < list[j].Symbol
	})
}

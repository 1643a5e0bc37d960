package model

import "fmt"

type ViewMode string

const (
	ViewModeWritableOnly ViewMode = "writable"
	ViewModeReadOnlyOnly ViewMode = "read_only"
	ViewModeCombined     ViewMode = "combined"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewModeWritableOnly, ViewModeReadOnlyOnly, ViewModeCombined:
		return ViewMode(s), nil
	case "":
		return ViewModeCombined, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// ReadOnlyAddress labels the merged snapshot of all watched addresses.
const ReadOnlyAddress = "read-only"

// AggregateView is the consolidated portfolio: the writable address on its
// own plus the sum of every watched address. It is replaced wholesale on
// each refresh.
type AggregateView struct {
	Writable AddressSnapshot `json:"writable"`
	ReadOnly AddressSnapshot `json:"read_only"`
	Mode     ViewMode        `json:"mode"`
}

// EmptyView is the view before any refresh has completed.
func EmptyView(writable string) AggregateView {
	return AggregateView{
		Writable: EmptySnapshot(writable),
		ReadOnly: EmptySnapshot(ReadOnlyAddress),
		Mode:     ViewModeCombined,
	}
}

func (v AggregateView) WithMode(mode ViewMode) AggregateView {
	v.Mode = mode
	return v
}

// Selected returns the snapshot the current mode displays. Combined merges
// writable and read-only by symbol.
func (v AggregateView) Selected() AddressSnapshot {
	switch v.Mode {
	case ViewModeWritableOnly:
		return v.Writable
	case ViewModeReadOnlyOnly:
		return v.ReadOnly
	default:
		return MergeSnapshots(v.Writable.Address, v.Writable, v.ReadOnly)
	}
}

// Assets lists the selected snapshot as NEO, GAS, then tokens by name.
func (v AggregateView) Assets() []Asset {
	s := v.Selected()
	out := make([]Asset, 0, 2+len(s.Tokens))
	out = append(out, s.Native[0], s.Native[1])
	return append(out, s.TokenList()...)
}

func (v AggregateView) Equal(o AggregateView) bool {
	return v.Mode == o.Mode && v.Writable.Equal(o.Writable) && v.ReadOnly.Equal(o.ReadOnly)
}

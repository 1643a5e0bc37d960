package nodeselect

import (
	"errors"
	"sort"
	"time"
)

var ErrNoHealthyEndpoint = errors.New("no healthy endpoint")

// DefaultHeightTolerance is how many blocks behind the tallest node an
// endpoint may be and still be considered synced.
const DefaultHeightTolerance = 1

// Probe is the outcome of one getblockcount round trip.
type Probe struct {
	URL     string
	Height  int64
	Latency time.Duration
	Err     error
}

// Select picks the fastest endpoint among those within tolerance blocks of
// the highest reported height. Ties on latency go to the smaller URL so the
// result depends only on the probe set, not its order.
func Select(probes []Probe, tolerance int64) (Probe, error) {
	var maxHeight int64 = -1
	for _, p := range probes {
		if p.Err == nil && p.Height > maxHeight {
			maxHeight = p.Height
		}
	}
	if maxHeight < 0 {
		return Probe{}, ErrNoHealthyEndpoint
	}

	synced := make([]Probe, 0, len(probes))
	for _, p := range probes {
		if p.Err == nil && maxHeight-p.Height <= tolerance {
			synced = append(synced, p)
		}
	}
	sort.Slice(synced, func(i, j int) bool {
		if synced[i].Latency != synced[j].Latency {
			return synced[i].Latency < synced[j].Latency
		}
		return synced[i].URL < synced[j].URL
	})
	return synced[0], nil
}

package aggregator

import (
	"context"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
)

// AddressLister supplies the watched addresses at refresh time.
type AddressLister interface {
	Addresses() []string
}

// Portfolio binds the aggregator to the configured writable address and
// the live watch list.
type Portfolio struct {
	agg      *Aggregator
	writable string
	watched  AddressLister
}

func NewPortfolio(agg *Aggregator, writable string, watched AddressLister) *Portfolio {
	return &Portfolio{agg: agg, writable: writable, watched: watched}
}

func (p *Portfolio) WritableAddress() string { return p.writable }

func (p *Portfolio) Refresh(ctx context.Context) model.AggregateView {
	var watched []string
	if p.watched != nil {
		watched = p.watched.Addresses()
	}
	return p.agg.Refresh(ctx, p.writable, watched)
}

// View returns the current view, or an all-zero view before the first
// refresh.
func (p *Portfolio) View() model.AggregateView {
	if v, ok := p.agg.Current(); ok {
		return v
	}
	return model.EmptyView(p.writable)
}

func (p *Portfolio) Restore(ctx context.Context) error {
	return p.agg.Restore(ctx, p.writable)
}

func (p *Portfolio) Subscribe(o Observer) func() {
	return p.agg.Subscribe(o)
}

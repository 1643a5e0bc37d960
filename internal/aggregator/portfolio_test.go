package aggregator

import (
	"context"
	"testing"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type staticList []string

func (s staticList) Addresses() []string { return s }

func TestPortfolio_ViewBeforeRefresh(t *testing.T) {
	agg, _, _ := newTestAggregator(t)
	w := addr(t, 1)
	p := NewPortfolio(agg, w, nil)

	assert.True(t, p.View().Equal(model.EmptyView(w)))
	assert.Equal(t, w, p.WritableAddress())
}

func TestPortfolio_RefreshUsesWatchList(t *testing.T) {
	agg, client, _ := newTestAggregator(t)
	w, r := addr(t, 1), addr(t, 30)
	p := NewPortfolio(agg, w, staticList{r})

	client.EXPECT().GetAccountState(gomock.Any(), w).Return(snapshot(w, 1, 0), nil)
	client.EXPECT().GetAccountState(gomock.Any(), r).Return(snapshot(r, 5, 0), nil)

	v := p.Refresh(context.Background())
	assert.True(t, decimal.NewFromInt(5).Equal(v.ReadOnly.NEO().Amount))
	assert.True(t, v.Equal(p.View()))

	combined := p.View().Assets()
	assert.True(t, decimal.NewFromInt(6).Equal(combined[0].Amount))
}

package claim

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/balancecache"
	"github.com/emperorhan/neo-wallet-engine/internal/chain/mocks"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testAddress = "AK2nJJpJr6o664CWJKi1QRXjqeic2zRp8y"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakePortfolio struct {
	mu        sync.Mutex
	neo       decimal.Decimal
	refreshes atomic.Int32
}

func (p *fakePortfolio) WritableAddress() string { return testAddress }

func (p *fakePortfolio) View() model.AggregateView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := model.EmptyView(testAddress)
	v.Writable = model.NewSnapshot(testAddress, []model.Asset{model.NEO(p.neo)})
	return v
}

func (p *fakePortfolio) Refresh(context.Context) model.AggregateView {
	p.refreshes.Add(1)
	return p.View()
}

type fakeSigner struct {
	mu        sync.Mutex
	transfers []decimal.Decimal
	claims    []model.ClaimableInfo
	transfer  func() ([]byte, error)
	claim     func() ([]byte, error)
}

func (s *fakeSigner) SignSelfTransfer(_ context.Context, address, assetID string, amount decimal.Decimal) ([]byte, error) {
	s.mu.Lock()
	s.transfers = append(s.transfers, amount)
	fn := s.transfer
	s.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return []byte{0x80}, nil
}

func (s *fakeSigner) SignClaim(_ context.Context, info model.ClaimableInfo) ([]byte, error) {
	s.mu.Lock()
	s.claims = append(s.claims, info)
	fn := s.claim
	s.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return []byte{0x02}, nil
}

func (s *fakeSigner) transferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}

// events records observer callbacks as strings on a channel.
type events chan string

func (e events) OnPhaseChanged(s model.ClaimState) { e <- "phase:" + s.Phase.String() }
func (e events) OnClaimSucceeded(a decimal.Decimal) {
	e <- "succeeded:" + a.String()
}
func (e events) OnClaimFailed(err error) { e <- fmt.Sprintf("failed:%v", err) }

func (e events) next(t *testing.T) string {
	t.Helper()
	select {
	case ev := <-e:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for claim event")
		return ""
	}
}

func (e events) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		require.Equal(t, w, e.next(t))
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func blockingSleep(ctx context.Context, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

type harness struct {
	orch      *Orchestrator
	client    *mocks.MockNodeClient
	signer    *fakeSigner
	portfolio *fakePortfolio
	cache     *balancecache.Cache
	clock     *clock
	events    events
}

func newHarness(t *testing.T, neo int64, cfg Config, opts ...Option) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		client:    mocks.NewMockNodeClient(ctrl),
		signer:    &fakeSigner{},
		portfolio: &fakePortfolio{neo: decimal.NewFromInt(neo)},
		cache:     balancecache.New(memory.New()),
		clock:     &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		events:    make(events, 64),
	}
	opts = append([]Option{withSleep(noSleep), withClock(h.clock.now)}, opts...)
	h.orch = New(h.client, h.signer, h.portfolio, h.cache, cfg, testLogger(), opts...)
	h.orch.Subscribe(h.events)
	t.Cleanup(func() {
		h.orch.Cancel()
		h.orch.Wait()
	})
	return h
}

func claimable(amount string) model.ClaimableInfo {
	d := decimal.RequireFromString(amount)
	return model.ClaimableInfo{
		Address: testAddress,
		Amount:  d,
		Claims:  []model.ClaimReference{{TxID: "0xabc", Index: 0, Unclaimed: d}},
	}
}

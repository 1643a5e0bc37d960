package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestUpdateClaimable(t *testing.T) {
	h := newHarness(t, 10, Config{})

	h.client.EXPECT().GetClaimable(gomock.Any(), testAddress).Return(claimable("2.5"), nil)
	amount, err := h.orch.UpdateClaimable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.5", amount.String())
	assert.True(t, decimal.RequireFromString("2.5").Equal(h.orch.State().PendingClaimable))
	h.events.expect(t, "phase:IDLE")

	h.client.EXPECT().GetClaimable(gomock.Any(), testAddress).Return(claimable("2.5"), nil)
	_, err = h.orch.UpdateClaimable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.events, "unchanged amount does not notify")

	h.client.EXPECT().GetClaimable(gomock.Any(), testAddress).Return(claimable("0"), errors.New("unreachable"))
	_, err = h.orch.UpdateClaimable(context.Background())
	assert.Error(t, err)
	assert.True(t, decimal.RequireFromString("2.5").Equal(h.orch.State().PendingClaimable))
}

func TestSetClaimable_IgnoredWhileInProgress(t *testing.T) {
	h := newHarness(t, 10, Config{}, withSleep(blockingSleep))
	h.client.EXPECT().SendRawTransaction(gomock.Any(), gomock.Any()).Return(true, nil)

	require.NoError(t, h.orch.StartClaim(context.Background()))
	h.events.expect(t, "phase:CONSOLIDATING_NEO", "phase:AWAITING_CONFIRMATION")

	assert.False(t, h.orch.SetClaimable(decimal.NewFromInt(7)))
	assert.True(t, h.orch.State().PendingClaimable.IsZero())
}

func TestRunClaimablePoller(t *testing.T) {
	h := newHarness(t, 10, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	polled := make(chan struct{}, 8)
	h.client.EXPECT().GetClaimable(gomock.Any(), testAddress).Return(claimable("1"), nil).
		Do(func(context.Context, string) { polled <- struct{}{} }).MinTimes(2)

	done := make(chan error, 1)
	go func() { done <- h.orch.RunClaimablePoller(ctx, 10*time.Millisecond) }()

	<-polled
	<-polled
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

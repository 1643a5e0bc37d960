//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	storeredis "github.com/emperorhan/neo-wallet-engine/internal/store/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testRedisURL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, err := storeredis.New(ctx, testRedisURL(t), "test:kv")
	require.NoError(t, err)
	defer kv.Close()

	require.NoError(t, kv.SetMany(ctx, map[string][]byte{
		"claim.last_claim_at": []byte(`"2024-01-01T00:00:00Z"`),
		"claim.count":         []byte("1"),
	}))

	v, ok, err := kv.Get(ctx, "claim.count")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, kv.Delete(ctx, "claim.count"))
	_, ok, err = kv.Get(ctx, "claim.count")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Clear(ctx))
	_, ok, err = kv.Get(ctx, "claim.last_claim_at")
	require.NoError(t, err)
	assert.False(t, ok)
}

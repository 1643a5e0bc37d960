package config

import (
	"testing"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "AK2nJJpJr6o664CWJKi1QRXjqeic2zRp8y"

// envKeys lists every variable Load reads so each test starts clean.
var envKeys = []string{
	"NEO_NETWORK", "NEO_RPC_URL", "NEO_REST_URL", "NEO_NODE_CATALOG",
	"NODE_HEIGHT_TOLERANCE", "NODE_PROBE_TIMEOUT_SEC",
	"WALLET_ADDRESS", "WATCHED_ADDRESSES", "TRACKED_TOKENS", "FETCH_CONCURRENCY", "REFRESH_INTERVAL_SEC",
	"CLAIM_COOLDOWN_SEC", "CLAIM_RETRY_DELAY_SEC", "CLAIM_SETTLE_DELAY_SEC",
	"CLAIM_MAX_CONSOLIDATION_ATTEMPTS", "CLAIM_MAX_CLAIM_ATTEMPTS", "CLAIMABLE_POLL_INTERVAL_SEC",
	"RPC_RATE_LIMIT_RPS", "RPC_RATE_LIMIT_BURST", "RPC_TIMEOUT_SEC",
	"STORE_BACKEND", "SQLITE_PATH", "REDIS_URL", "REDIS_HASH_KEY",
	"DB_URL", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME_MIN", "DB_KEY_PREFIX",
	"SIGNER_URL", "SIGNER_TIMEOUT_SEC", "SERVER_PORT", "LOG_LEVEL",
	"TRACING_ENDPOINT", "TRACING_INSECURE", "TRACING_SAMPLE_RATIO",
	"ALERT_SLACK_WEBHOOK_URL", "ALERT_WEBHOOK_URL", "ALERT_COOLDOWN_MIN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("WALLET_ADDRESS", testWallet)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, model.NetworkMainnet, cfg.Network.Name)
	assert.Equal(t, "http://seed1.neo.org:10332", cfg.Network.RPCURL)
	assert.Equal(t, "https://platform.o3.network/api/v1/neo/", cfg.Network.RESTURL)
	assert.Empty(t, cfg.Network.CatalogPath)
	assert.Equal(t, 1, cfg.Network.HeightTolerance)
	assert.Equal(t, 5*time.Second, cfg.Network.ProbeTimeout)

	assert.Equal(t, testWallet, cfg.Wallet.Address)
	assert.Empty(t, cfg.Wallet.WatchedAddresses)
	assert.Empty(t, cfg.Wallet.TrackedTokens)
	assert.Equal(t, 8, cfg.Wallet.FetchConcurrency)
	assert.Equal(t, time.Minute, cfg.Wallet.RefreshInterval)

	assert.Equal(t, 5*time.Minute, cfg.Claim.Cooldown)
	assert.Equal(t, 10*time.Second, cfg.Claim.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Claim.SettleDelay)
	assert.Zero(t, cfg.Claim.MaxConsolidationAttempts)
	assert.Zero(t, cfg.Claim.MaxClaimAttempts)
	assert.Equal(t, 15*time.Second, cfg.Claim.PollInterval)

	assert.Equal(t, 20.0, cfg.RPC.RateLimitRPS)
	assert.Equal(t, 40, cfg.RPC.RateLimitBurst)

	assert.Equal(t, StoreBackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "data/neowallet.db", cfg.Store.SQLitePath)
	assert.Equal(t, "neowallet:mainnet", cfg.Store.RedisHash)
	assert.Equal(t, "mainnet:", cfg.Store.DB.KeyPrefix)

	assert.Equal(t, "http://localhost:9090", cfg.Signer.URL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.Insecure)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
	assert.Empty(t, cfg.Alert.SlackWebhookURL)
	assert.Equal(t, 30*time.Minute, cfg.Alert.Cooldown)
}

func TestLoad_NetworkPresets(t *testing.T) {
	tests := []struct {
		env     string
		network model.Network
		rpc     string
		rest    string
	}{
		{"main", model.NetworkMainnet, "http://seed1.neo.org:10332", "https://platform.o3.network/api/v1/neo/"},
		{"test", model.NetworkTestnet, "http://test4.cityofzion.io:8880", "http://testnet-api.wallet.cityofzion.io/v2/"},
		{"private", model.NetworkPrivate, "http://localhost:30333", "http://127.0.0.1:5000/"},
		{"testnet", model.NetworkTestnet, "http://test4.cityofzion.io:8880", "http://testnet-api.wallet.cityofzion.io/v2/"},
	}
	for _, tc := range tests {
		t.Run(tc.env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("NEO_NETWORK", tc.env)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tc.network, cfg.Network.Name)
			assert.Equal(t, tc.rpc, cfg.Network.RPCURL)
			assert.Equal(t, tc.rest, cfg.Network.RESTURL)
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEO_NETWORK", "test")
	t.Setenv("NEO_RPC_URL", "https://rpc.example:20332")
	t.Setenv("WATCHED_ADDRESSES", " AQVh2pG732YvtNaxEGkQUei3YA4cvo7d2i , ,ALq7AWrhAueN6mJNqk6FHJjnsEoPRytLdW")
	t.Setenv("TRACKED_TOKENS", "ecc6b20d3ccac1ee9ef109af5a7cdb85706b1df9")
	t.Setenv("CLAIM_COOLDOWN_SEC", "60")
	t.Setenv("CLAIM_MAX_CLAIM_ATTEMPTS", "5")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DB_URL", "postgres://wallet:wallet@db:5432/wallet?sslmode=disable")
	t.Setenv("RPC_RATE_LIMIT_RPS", "2.5")
	t.Setenv("TRACING_ENDPOINT", "otel:4317")
	t.Setenv("TRACING_INSECURE", "false")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example:20332", cfg.Network.RPCURL)
	assert.Equal(t, "http://testnet-api.wallet.cityofzion.io/v2/", cfg.Network.RESTURL)
	assert.Equal(t, []string{"AQVh2pG732YvtNaxEGkQUei3YA4cvo7d2i", "ALq7AWrhAueN6mJNqk6FHJjnsEoPRytLdW"}, cfg.Wallet.WatchedAddresses)
	assert.Equal(t, []string{"ecc6b20d3ccac1ee9ef109af5a7cdb85706b1df9"}, cfg.Wallet.TrackedTokens)
	assert.Equal(t, time.Minute, cfg.Claim.Cooldown)
	assert.Equal(t, 5, cfg.Claim.MaxClaimAttempts)
	assert.Equal(t, StoreBackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "testnet:", cfg.Store.DB.KeyPrefix)
	assert.Equal(t, 2.5, cfg.RPC.RateLimitRPS)
	assert.Equal(t, "otel:4317", cfg.Tracing.Endpoint)
	assert.False(t, cfg.Tracing.Insecure)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRatio)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FETCH_CONCURRENCY", "many")
	t.Setenv("RPC_RATE_LIMIT_RPS", "fast")
	t.Setenv("TRACING_INSECURE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Wallet.FetchConcurrency)
	assert.Equal(t, 20.0, cfg.RPC.RateLimitRPS)
	assert.True(t, cfg.Tracing.Insecure)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing wallet", map[string]string{"WALLET_ADDRESS": ""}, "WALLET_ADDRESS is required"},
		{"bad wallet checksum", map[string]string{"WALLET_ADDRESS": "AK2nJJpJr6o664CWJKi1QRXjqeic2zRp8z"}, "not a valid neo address"},
		{"unknown network", map[string]string{"NEO_NETWORK": "devnet"}, "NEO_NETWORK"},
		{"bad rpc url", map[string]string{"NEO_RPC_URL": "seed1.neo.org:10332"}, "NEO_RPC_URL"},
		{"bad signer url", map[string]string{"SIGNER_URL": "ftp://signer"}, "SIGNER_URL"},
		{"unknown store", map[string]string{"STORE_BACKEND": "leveldb"}, "STORE_BACKEND"},
		{"postgres without url", map[string]string{"STORE_BACKEND": "postgres"}, "DB_URL is required"},
		{"bad log level", map[string]string{"LOG_LEVEL": "trace"}, "LOG_LEVEL"},
		{"zero concurrency", map[string]string{"FETCH_CONCURRENCY": "0"}, "FETCH_CONCURRENCY"},
		{"negative budget", map[string]string{"CLAIM_MAX_CLAIM_ATTEMPTS": "-1"}, "budgets"},
		{"negative cooldown", map[string]string{"CLAIM_COOLDOWN_SEC": "-5"}, "claim timings"},
		{"zero poll interval", map[string]string{"CLAIMABLE_POLL_INTERVAL_SEC": "0"}, "CLAIMABLE_POLL_INTERVAL_SEC"},
		{"sample ratio", map[string]string{"TRACING_SAMPLE_RATIO": "1.5"}, "TRACING_SAMPLE_RATIO"},
		{"port range", map[string]string{"SERVER_PORT": "70000"}, "SERVER_PORT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("LIST_UNDER_TEST", "a, b,,c ,")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("LIST_UNDER_TEST"))

	t.Setenv("LIST_UNDER_TEST", "")
	assert.Nil(t, getEnvList("LIST_UNDER_TEST"))
}

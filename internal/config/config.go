package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendSQLite   = "sqlite"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	Network NetworkConfig
	Wallet  WalletConfig
	Claim   ClaimConfig
	RPC     RPCConfig
	Store   StoreConfig
	Signer  SignerConfig
	Server  ServerConfig
	Log     LogConfig
	Tracing TracingConfig
	Alert   AlertConfig
}

type NetworkConfig struct {
	Name            model.Network
	RPCURL          string
	RESTURL         string
	CatalogPath     string
	HeightTolerance int
	ProbeTimeout    time.Duration
}

type WalletConfig struct {
	Address          string
	WatchedAddresses []string
	// TrackedTokens are NEP-5 script hashes queried for every address.
	TrackedTokens    []string
	FetchConcurrency int
	RefreshInterval  time.Duration
}

type ClaimConfig struct {
	Cooldown                 time.Duration
	RetryDelay               time.Duration
	SettleDelay              time.Duration
	MaxConsolidationAttempts int
	MaxClaimAttempts         int
	PollInterval             time.Duration
}

type RPCConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Timeout        time.Duration
}

type StoreConfig struct {
	Backend    string
	SQLitePath string
	RedisURL   string
	RedisHash  string
	DB         DBConfig
}

type DBConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	KeyPrefix       string
}

type SignerConfig struct {
	URL     string
	Timeout time.Duration
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

type TracingConfig struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

type AlertConfig struct {
	SlackWebhookURL string
	WebhookURL      string
	Cooldown        time.Duration
}

// networkPreset holds the default endpoints of a network.
type networkPreset struct {
	restURL string
	seedURL string
}

var presets = map[model.Network]networkPreset{
	model.NetworkMainnet: {restURL: "https://platform.o3.network/api/v1/neo/", seedURL: "http://seed1.neo.org:10332"},
	model.NetworkTestnet: {restURL: "http://testnet-api.wallet.cityofzion.io/v2/", seedURL: "http://test4.cityofzion.io:8880"},
	model.NetworkPrivate: {restURL: "http://127.0.0.1:5000/", seedURL: "http://localhost:30333"},
}

func Load() (*Config, error) {
	network, ok := model.ParseNetwork(getEnv("NEO_NETWORK", "main"))
	if !ok {
		return nil, fmt.Errorf("NEO_NETWORK must be one of main, test, private; got %q", os.Getenv("NEO_NETWORK"))
	}
	preset := presets[network]

	cfg := &Config{
		Network: NetworkConfig{
			Name:            network,
			RPCURL:          getEnv("NEO_RPC_URL", preset.seedURL),
			RESTURL:         getEnv("NEO_REST_URL", preset.restURL),
			CatalogPath:     getEnv("NEO_NODE_CATALOG", ""),
			HeightTolerance: getEnvInt("NODE_HEIGHT_TOLERANCE", 1),
			ProbeTimeout:    getEnvSeconds("NODE_PROBE_TIMEOUT_SEC", 5),
		},
		Wallet: WalletConfig{
			Address:          strings.TrimSpace(getEnv("WALLET_ADDRESS", "")),
			WatchedAddresses: getEnvList("WATCHED_ADDRESSES"),
			TrackedTokens:    getEnvList("TRACKED_TOKENS"),
			FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 8),
			RefreshInterval:  getEnvSeconds("REFRESH_INTERVAL_SEC", 60),
		},
		Claim: ClaimConfig{
			Cooldown:                 getEnvSeconds("CLAIM_COOLDOWN_SEC", 300),
			RetryDelay:               getEnvSeconds("CLAIM_RETRY_DELAY_SEC", 10),
			SettleDelay:              getEnvSeconds("CLAIM_SETTLE_DELAY_SEC", 10),
			MaxConsolidationAttempts: getEnvInt("CLAIM_MAX_CONSOLIDATION_ATTEMPTS", 0),
			MaxClaimAttempts:         getEnvInt("CLAIM_MAX_CLAIM_ATTEMPTS", 0),
			PollInterval:             getEnvSeconds("CLAIMABLE_POLL_INTERVAL_SEC", 15),
		},
		RPC: RPCConfig{
			RateLimitRPS:   getEnvFloat("RPC_RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvInt("RPC_RATE_LIMIT_BURST", 40),
			Timeout:        getEnvSeconds("RPC_TIMEOUT_SEC", 30),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(getEnv("STORE_BACKEND", StoreBackendSQLite)),
			SQLitePath: getEnv("SQLITE_PATH", "data/neowallet.db"),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
			RedisHash:  getEnv("REDIS_HASH_KEY", "neowallet:"+network.String()),
			DB: DBConfig{
				URL:             getEnv("DB_URL", ""),
				MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 5),
				MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
				ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
				KeyPrefix:       getEnv("DB_KEY_PREFIX", network.String()+":"),
			},
		},
		Signer: SignerConfig{
			URL:     getEnv("SIGNER_URL", "http://localhost:9090"),
			Timeout: getEnvSeconds("SIGNER_TIMEOUT_SEC", 15),
		},
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("TRACING_ENDPOINT", ""),
			Insecure:    getEnvBool("TRACING_INSECURE", true),
			SampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1),
		},
		Alert: AlertConfig{
			SlackWebhookURL: getEnv("ALERT_SLACK_WEBHOOK_URL", ""),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			Cooldown:        time.Duration(getEnvInt("ALERT_COOLDOWN_MIN", 30)) * time.Minute,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Wallet.Address == "" {
		return fmt.Errorf("WALLET_ADDRESS is required")
	}
	if !neo.ValidAddress(c.Wallet.Address) {
		return fmt.Errorf("WALLET_ADDRESS %q is not a valid neo address", c.Wallet.Address)
	}
	if err := validateHTTPURL("NEO_RPC_URL", c.Network.RPCURL); err != nil {
		return err
	}
	if err := validateHTTPURL("NEO_REST_URL", c.Network.RESTURL); err != nil {
		return err
	}
	if err := validateHTTPURL("SIGNER_URL", c.Signer.URL); err != nil {
		return err
	}

	switch c.Store.Backend {
	case StoreBackendMemory, StoreBackendRedis:
	case StoreBackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StoreBackendPostgres:
		if c.Store.DB.URL == "" {
			return fmt.Errorf("DB_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, sqlite, redis, postgres; got %q", c.Store.Backend)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	if c.Wallet.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be >= 1")
	}
	if c.Wallet.RefreshInterval <= 0 || c.Claim.PollInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_SEC and CLAIMABLE_POLL_INTERVAL_SEC must be > 0")
	}
	if c.Claim.Cooldown < 0 || c.Claim.RetryDelay < 0 || c.Claim.SettleDelay < 0 {
		return fmt.Errorf("claim timings must be >= 0")
	}
	if c.Claim.MaxConsolidationAttempts < 0 || c.Claim.MaxClaimAttempts < 0 {
		return fmt.Errorf("claim attempt budgets must be >= 0 (0 = unlimited)")
	}
	if c.RPC.RateLimitRPS <= 0 || c.RPC.RateLimitBurst < 1 {
		return fmt.Errorf("RPC_RATE_LIMIT_RPS must be > 0 and RPC_RATE_LIMIT_BURST >= 1")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATIO must be within [0, 1]")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be within 1..65535")
	}
	return nil
}

func validateHTTPURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL; got %q", key, raw)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

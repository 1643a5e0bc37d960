package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/admin"
	"github.com/emperorhan/neo-wallet-engine/internal/aggregator"
	"github.com/emperorhan/neo-wallet-engine/internal/alert"
	"github.com/emperorhan/neo-wallet-engine/internal/balancecache"
	"github.com/emperorhan/neo-wallet-engine/internal/chain/neo/rpc"
	"github.com/emperorhan/neo-wallet-engine/internal/chain/ratelimit"
	"github.com/emperorhan/neo-wallet-engine/internal/claim"
	"github.com/emperorhan/neo-wallet-engine/internal/config"
	"github.com/emperorhan/neo-wallet-engine/internal/domain/model"
	"github.com/emperorhan/neo-wallet-engine/internal/metrics"
	"github.com/emperorhan/neo-wallet-engine/internal/nodeselect"
	"github.com/emperorhan/neo-wallet-engine/internal/signer"
	"github.com/emperorhan/neo-wallet-engine/internal/store"
	"github.com/emperorhan/neo-wallet-engine/internal/store/memory"
	"github.com/emperorhan/neo-wallet-engine/internal/store/postgres"
	redisstore "github.com/emperorhan/neo-wallet-engine/internal/store/redis"
	"github.com/emperorhan/neo-wallet-engine/internal/store/sqlite"
	"github.com/emperorhan/neo-wallet-engine/internal/tracing"
	"github.com/emperorhan/neo-wallet-engine/internal/watchlist"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName           = "neo-wallet-engine"
	dbPoolStatsInterval   = 15 * time.Second
	serverShutdownTimeout = 5 * time.Second
)

type dbStatsProvider interface {
	Stats() sql.DBStats
}

type dbPoolStatsGauges struct {
	open         *prometheus.GaugeVec
	inUse        *prometheus.GaugeVec
	idle         *prometheus.GaugeVec
	waitCount    *prometheus.GaugeVec
	waitDuration *prometheus.GaugeVec
}

// openedStore is the selected key-value backend. stats is nil for backends
// without a SQL pool.
type openedStore struct {
	kv      store.KV
	backend string
	stats   dbStatsProvider
	close   func() error
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*openedStore, error) {
	switch cfg.Backend {
	case config.StoreBackendMemory:
		kv := memory.New()
		return &openedStore{kv: kv, backend: cfg.Backend, close: kv.Close}, nil

	case config.StoreBackendSQLite:
		kv, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &openedStore{kv: kv, backend: cfg.Backend, stats: kv, close: kv.Close}, nil

	case config.StoreBackendRedis:
		kv, err := redisstore.New(ctx, cfg.RedisURL, cfg.RedisHash)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return &openedStore{kv: kv, backend: cfg.Backend, close: kv.Close}, nil

	case config.StoreBackendPostgres:
		db, err := postgres.New(postgres.Config{
			URL:             cfg.DB.URL,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres store: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		return &openedStore{kv: postgres.NewKV(db, cfg.DB.KeyPrefix), backend: cfg.Backend, stats: db, close: db.Close}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// buildEndpoints puts the configured node first, followed by the catalog
// candidates for the network, without duplicates.
func buildEndpoints(cfg config.NetworkConfig) ([]string, error) {
	catalog, err := nodeselect.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load node catalog: %w", err)
	}

	seen := map[string]bool{cfg.RPCURL: true}
	endpoints := []string{cfg.RPCURL}
	for _, ep := range catalog.Endpoints(cfg.Name) {
		if !seen[ep] {
			seen[ep] = true
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, nil
}

func buildAlerter(cfg config.AlertConfig, logger *slog.Logger) alert.Alerter {
	var channels []alert.Alerter
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.SlackWebhookURL))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.WebhookURL))
	}
	if len(channels) == 0 {
		return &alert.NoopAlerter{}
	}
	return alert.NewMultiAlerter(cfg.Cooldown, logger, channels...)
}

// nodeAlertHook reports endpoints whose breaker opens. It runs under the
// breaker lock, so the send happens on its own goroutine.
func nodeAlertHook(ctx context.Context, alerter alert.Alerter, network model.Network, logger *slog.Logger) func(string, nodeselect.BreakerState, nodeselect.BreakerState) {
	return func(endpoint string, from, to nodeselect.BreakerState) {
		if to != nodeselect.BreakerOpen {
			return
		}
		a := alert.Alert{
			Type:    alert.AlertTypeNodeUnhealthy,
			Network: network.String(),
			Title:   "NEO node unreachable",
			Message: fmt.Sprintf("breaker for %s moved %s -> %s", endpoint, from, to),
			Fields:  map[string]string{"endpoint": endpoint},
		}
		go func() {
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			if err := alerter.Send(sendCtx, a); err != nil {
				logger.Warn("node alert not delivered", "endpoint", endpoint, "error", err)
			}
		}()
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("wallet engine exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("wallet engine shut down gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting neo wallet engine",
		"network", cfg.Network.Name,
		"rpc", cfg.Network.RPCURL,
		"rest", cfg.Network.RESTURL,
		"address", cfg.Wallet.Address,
		"watched_addresses", len(cfg.Wallet.WatchedAddresses),
		"tracked_tokens", len(cfg.Wallet.TrackedTokens),
		"store_backend", cfg.Store.Backend,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Tracing.Endpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Endpoint != "" {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Warn("store close error", "error", err)
		}
	}()
	logger.Info("store opened", "backend", st.backend)

	g, gCtx := errgroup.WithContext(ctx)
	alerter := buildAlerter(cfg.Alert, logger)
	network := cfg.Network.Name

	// Node access
	client := rpc.NewClient(cfg.Network.RPCURL, cfg.Network.RESTURL, logger)
	client.SetRateLimiter(ratelimit.NewLimiter(cfg.RPC.RateLimitRPS, cfg.RPC.RateLimitBurst, "neo_rpc"))
	client.SetHTTPClient(&http.Client{Timeout: cfg.RPC.Timeout})

	endpoints, err := buildEndpoints(cfg.Network)
	if err != nil {
		return err
	}
	selector := nodeselect.New(client, endpoints, logger,
		nodeselect.WithProbeTimeout(cfg.Network.ProbeTimeout),
		nodeselect.WithHeightTolerance(int64(cfg.Network.HeightTolerance)),
		nodeselect.WithBreakerConfig(nodeselect.BreakerConfig{
			OnStateChange: nodeAlertHook(gCtx, alerter, network, logger),
		}),
	)

	// Portfolio
	cache := balancecache.New(st.kv)
	watched := watchlist.New(st.kv, cfg.Wallet.Address, logger)
	if err := watched.Load(ctx, cfg.Wallet.WatchedAddresses); err != nil {
		return err
	}

	agg := aggregator.New(client, cache, logger,
		aggregator.WithConcurrency(cfg.Wallet.FetchConcurrency),
		aggregator.WithTrackedTokens(cfg.Wallet.TrackedTokens),
	)
	portfolio := aggregator.NewPortfolio(agg, cfg.Wallet.Address, watched)
	if err := portfolio.Restore(ctx); err != nil {
		logger.Warn("restore cached portfolio failed", "error", err)
	}
	unsubscribeView := portfolio.Subscribe(aggregator.ObserverFunc(func(v model.AggregateView) {
		logger.Debug("portfolio updated",
			"neo", v.Writable.NEO().Amount.String(),
			"gas", v.Writable.GAS().Amount.String(),
			"read_only_tokens", len(v.ReadOnly.Tokens),
		)
	}))
	defer unsubscribeView()

	// Claim
	sgn := signer.NewRemoteSigner(cfg.Signer.URL, network, logger)
	sgn.SetHTTPClient(&http.Client{Timeout: cfg.Signer.Timeout})

	orch := claim.New(client, sgn, portfolio, cache, claim.Config{
		Cooldown:                 cfg.Claim.Cooldown,
		RetryDelay:               cfg.Claim.RetryDelay,
		SettleDelay:              cfg.Claim.SettleDelay,
		MaxConsolidationAttempts: cfg.Claim.MaxConsolidationAttempts,
		MaxClaimAttempts:         cfg.Claim.MaxClaimAttempts,
	}, logger,
		claim.WithSelector(selector),
		claim.WithBaseContext(gCtx),
	)
	if err := orch.Restore(ctx); err != nil {
		logger.Warn("restore claim cooldown failed", "error", err)
	}
	notifier := alert.NewClaimNotifier(alerter, network, cfg.Wallet.Address, logger)
	unsubscribeClaims := orch.Subscribe(notifier)
	defer func() {
		unsubscribeClaims()
		orch.Wait()
		notifier.Wait()
	}()

	// API
	server := admin.NewServer(portfolio, watched, orch, logger,
		admin.WithClaimStats(cache),
		admin.WithNetwork(network),
	)
	limiter := admin.NewRateLimitMiddleware(logger)
	defer limiter.Stop()
	handler := limiter.Wrap(admin.AuditMiddleware(logger, server.Handler()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g.Go(func() error {
		return runServer(gCtx, cfg.Server.Port, handler, logger)
	})
	g.Go(func() error {
		return runPeriodicRefresh(gCtx, portfolio, cfg.Wallet.RefreshInterval, logger)
	})
	g.Go(func() error {
		return orch.RunClaimablePoller(gCtx, cfg.Claim.PollInterval)
	})
	if st.stats != nil {
		startDBPoolStatsPump(gCtx, st.stats, st.backend, dbPoolStatsInterval, logger)
	}
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type refresher interface {
	Refresh(ctx context.Context) model.AggregateView
}

// runPeriodicRefresh refreshes the portfolio at once and then every
// interval until ctx is done.
func runPeriodicRefresh(ctx context.Context, p refresher, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		view := p.Refresh(ctx)
		logger.Debug("periodic refresh complete", "mode", view.Mode)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("api server shutdown error", "error", err)
		}
	}()

	logger.Info("api server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func collectDBPoolStats(db dbStatsProvider, backend string, gauges dbPoolStatsGauges) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("db pool stats collection panicked: %v", r)
		}
	}()
	if db == nil {
		return fmt.Errorf("db stats provider is nil")
	}

	stats := db.Stats()
	gauges.open.WithLabelValues(backend).Set(float64(stats.OpenConnections))
	gauges.inUse.WithLabelValues(backend).Set(float64(stats.InUse))
	gauges.idle.WithLabelValues(backend).Set(float64(stats.Idle))
	gauges.waitCount.WithLabelValues(backend).Set(float64(stats.WaitCount))
	gauges.waitDuration.WithLabelValues(backend).Set(stats.WaitDuration.Seconds())
	return nil
}

func startDBPoolStatsPump(ctx context.Context, db dbStatsProvider, backend string, interval time.Duration, logger *slog.Logger) {
	if db == nil || interval <= 0 {
		return
	}

	gauges := dbPoolStatsGauges{
		open:         metrics.DBPoolOpen,
		inUse:        metrics.DBPoolInUse,
		idle:         metrics.DBPoolIdle,
		waitCount:    metrics.DBPoolWaitCount,
		waitDuration: metrics.DBPoolWaitDurationSeconds,
	}

	collect := func() {
		if err := collectDBPoolStats(db, backend, gauges); err != nil {
			logger.Warn("db pool stats collection failed", "backend", backend, "error", err)
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		collect()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect()
			}
		}
	}()
}

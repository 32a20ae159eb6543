package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpadIndexer/internal/chain"
	"launchpadIndexer/internal/config"
	"launchpadIndexer/internal/decode"
	"launchpadIndexer/internal/ingest"
	"launchpadIndexer/internal/reducer"
	"launchpadIndexer/internal/stats"
	"launchpadIndexer/internal/store"
	"launchpadIndexer/internal/store/postgres"
	"launchpadIndexer/internal/store/redisstore"
)

func runReduce(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReduce(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	usersPolicy, err := stats.ParseUserPolicy(cfg.UsersPolicy)
	if err != nil {
		return err
	}
	staticPools, err := reducer.NewStaticPools(cfg.PoolMap)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	pools := reducer.ChainedResolver{staticPools}
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		resolver, err := decode.NewChainPoolResolver(chainClient, logger)
		if err != nil {
			return err
		}
		pools = append(pools, resolver)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics, err := reducer.NewMetrics(registry)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, registry, logger)
		defer shutdown()
	}

	engine := reducer.NewEngine(
		store.NewRetrying(backend.store, cfg.MaxRetries, cfg.RetryBackoff, logger),
		pools,
		reducer.Config{CountExternalTokens: cfg.CountExternalTokens, Users: usersPolicy},
		logger,
		metrics,
	)

	stateStore := backend.state
	if cfg.StateFile != "" {
		stateStore = &ingest.FileStateStore{Path: cfg.StateFile}
	}

	ingestor := ingest.NewIngestor(ingest.Config{
		StateStore:      stateStore,
		CheckpointEvery: cfg.CheckpointEvery,
	}, engine, logger)

	logger.Info("reduce start",
		zap.String("in", cfg.In),
		zap.String("store", cfg.Store),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("state_file", cfg.StateFile),
		zap.Bool("resumable", stateStore != nil),
		zap.Int("static_pools", len(staticPools)),
		zap.Bool("rpc_pools", cfg.RPCURL != ""),
		zap.String("users_policy", string(usersPolicy)),
		zap.Bool("count_external_tokens", cfg.CountExternalTokens),
	)

	summary, err := ingestor.Run(ctx, cfg.In)
	if err != nil {
		logger.Error("reduce stopped",
			zap.String("last", summary.Last.String()),
			zap.Int("applied", summary.Applied),
			zap.Error(err),
		)
		return err
	}

	if mem, ok := backend.store.(*store.Memory); ok {
		logMemorySummary(ctx, mem, logger)
	}
	return nil
}

type storeBackend struct {
	store store.Store
	state ingest.StateStore
	close func()
}

// openStore connects the configured entity store. Persistent stores also
// carry the resume cursor.
func openStore(ctx context.Context, cfg config.ReduceConfig, logger *zap.Logger) (storeBackend, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return storeBackend{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return storeBackend{}, err
		}
		return storeBackend{
			store: pg,
			state: &ingest.DBStateStore{Backend: pg, Name: cfg.StateName},
			close: pg.Close,
		}, nil
	case config.StoreRedis:
		rs := redisstore.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return storeBackend{}, fmt.Errorf("connect redis: %w", err)
		}
		return storeBackend{
			store: rs,
			state: &ingest.DBStateStore{Backend: rs, Name: cfg.StateName},
			close: func() {
				if err := rs.Close(); err != nil {
					logger.Warn("close redis", zap.Error(err))
				}
			},
		}, nil
	default:
		return storeBackend{store: store.NewMemory(), close: func() {}}, nil
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server start", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func logMemorySummary(ctx context.Context, mem *store.Memory, logger *zap.Logger) {
	tokens, users, txs := mem.Counts()
	fields := []zap.Field{
		zap.Int("tokens", tokens),
		zap.Int("users", users),
		zap.Int("transactions", txs),
	}
	if st, ok, err := mem.GetStats(ctx); err == nil && ok {
		fields = append(fields,
			zap.Uint64("total_tokens", st.TotalTokens),
			zap.Uint64("total_transactions", st.TotalTransactions),
			zap.Uint64("total_users", st.TotalUsers),
			zap.Uint64("tokens_today", st.TokensToday),
			zap.Uint64("transactions_today", st.TransactionsToday),
		)
	}
	logger.Info("memory store summary", fields...)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"launchpadIndexer/internal/chain"
	"launchpadIndexer/internal/config"
	"launchpadIndexer/internal/decode"
	"launchpadIndexer/internal/indexer"
	"launchpadIndexer/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "BSC launchpad indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch launchpad, pool and token logs",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "BSC RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest minus confirmations")
	runCmd.Flags().Uint64("confirmations", 15, "blocks kept back from the head when --to is not set")
	runCmd.Flags().StringSlice("address", nil, "contract addresses (comma-separated)")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 signatures (comma-separated), defaults to every decodable event")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	reduceCmd := &cobra.Command{
		Use:   "reduce",
		Short: "Reduce typed events into token, user, transaction and stats entities",
		RunE:  runReduce,
	}

	reduceCmd.Flags().String("in", "", "input typed events JSONL")
	reduceCmd.Flags().String("store", config.StoreMemory, "entity store (memory, postgres, redis)")
	reduceCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	reduceCmd.Flags().String("redis-addr", "", "Redis address")
	reduceCmd.Flags().String("redis-password", "", "Redis password")
	reduceCmd.Flags().Int("redis-db", 0, "Redis database")
	reduceCmd.Flags().String("redis-prefix", "launchpad", "Redis key prefix")
	reduceCmd.Flags().String("state-file", "", "local cursor file for the postgres or redis store, overrides the store-backed cursor")
	reduceCmd.Flags().String("state-name", "reducer", "cursor name in the postgres or redis store")
	reduceCmd.Flags().Int("checkpoint-every", 1000, "save the cursor after this many applied events")
	reduceCmd.Flags().String("pool-map", "", "pool->token mappings (comma-separated key=value)")
	reduceCmd.Flags().String("rpc", "", "optional BSC RPC URL for resolving pools missing from the pool map")
	reduceCmd.Flags().Bool("count-external-tokens", false, "count registered external tokens in totalTokens")
	reduceCmd.Flags().String("users-policy", "first-launch", "totalUsers policy (first-launch, distinct)")
	reduceCmd.Flags().Int("max-retries", 5, "maximum store retry attempts")
	reduceCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial store retry backoff")
	reduceCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	reduceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reduceCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	topics := cfg.Topic0
	if len(topics) == 0 {
		decoder, err := decode.NewDecoder(decode.Config{})
		if err != nil {
			return err
		}
		topics = decoder.Topics()
	}
	filter, err := indexer.ParseFilter(cfg.Addresses, topics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Confirmations:     cfg.Confirmations,
		Filter:            filter,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storageSink, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("confirmations", cfg.Confirmations),
		zap.Int("addresses", len(filter.Addresses)),
		zap.Int("topic0", len(filter.Topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

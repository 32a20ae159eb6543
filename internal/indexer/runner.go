package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/retry"
	"launchpadIndexer/internal/storage"
)

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock uint64
	ToBlock   uint64
	// Confirmations keeps the head of the chain out of range when ToBlock is
	// not set.
	Confirmations     uint64
	Filter            Filter
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// ChainReader is the subset of the chain client the runner needs.
type ChainReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// Runner streams logs from the chain and writes them to storage in
// (block number, log index) order.
type Runner struct {
	cfg        RunConfig
	chain      ChainReader
	storage    storage.Storage
	logger     *zap.Logger
	seen       map[logKey]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient ChainReader, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		storage:    storageSink,
		logger:     logger,
		seen:       make(map[logKey]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Filter.Empty() {
		return fmt.Errorf("at least one address or topic0 is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		if latest < r.cfg.Confirmations {
			r.logger.Info("chain shorter than confirmation depth", zap.Uint64("latest", latest))
			return nil
		}
		to = latest - r.cfg.Confirmations
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	if ok {
		if cp.ChainID != 0 && cp.ChainID != chainIDValue {
			return fmt.Errorf("checkpoint belongs to chain %d, rpc serves chain %d", cp.ChainID, chainIDValue)
		}
		if cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := Batches(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Stringer("range", blockRange))

		logs, err := r.filterLogsWithRetry(ctx, blockRange)
		if err != nil {
			return fmt.Errorf("filter logs %s: %w", blockRange, err)
		}
		sortLogs(logs)

		ingestedAt := time.Now().UTC()
		records := make([]model.LogRecord, 0, len(logs))
		var removed int
		for _, log := range logs {
			if log.Removed {
				removed++
				continue
			}
			if r.isDuplicate(log) {
				continue
			}

			ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			records = append(records, newLogRecord(chainIDValue, log, ts, ingestedAt))
		}

		if err := r.storage.PutLogBatch(records); err != nil {
			return fmt.Errorf("store logs: %w", err)
		}

		if err := r.checkpoint.Save(chainIDValue, blockRange.To); err != nil {
			return err
		}

		r.logger.Info("batch complete",
			zap.Int("logs", len(records)),
			zap.Int("removed", removed),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, blockRange BlockRange) ([]types.Log, error) {
	query := r.cfg.Filter.Query(blockRange)
	var logs []types.Log
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, query)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Stringer("range", blockRange))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	key := keyOf(log)
	if _, ok := r.seen[key]; ok {
		return true
	}
	r.seen[key] = struct{}{}
	return false
}

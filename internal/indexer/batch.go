package indexer

import (
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"launchpadIndexer/internal/model"
)

// BlockRange is an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.From, r.To)
}

// Batches cuts [from, to] into consecutive ranges of at most size blocks.
func Batches(from, to, size uint64) ([]BlockRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block %d is before from block %d", to, from)
	}

	var out []BlockRange
	for start := from; ; {
		end := to
		if to-start >= size {
			end = start + size - 1
		}
		out = append(out, BlockRange{From: start, To: end})
		if end == to {
			return out, nil
		}
		start = end + 1
	}
}

// sortLogs orders a batch by (block number, log index).
func sortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
}

// logKey identifies a log across overlapping fetches.
type logKey struct {
	pos    model.Position
	txHash string
}

func keyOf(log types.Log) logKey {
	return logKey{
		pos:    model.Position{Block: log.BlockNumber, LogIndex: uint64(log.Index)},
		txHash: log.TxHash.Hex(),
	}
}

func newLogRecord(chainID uint64, log types.Log, timestamp uint64, ingestedAt time.Time) model.LogRecord {
	topics := make([]string, len(log.Topics))
	for i, topic := range log.Topics {
		topics[i] = topic.Hex()
	}

	return model.LogRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Timestamp:   timestamp,
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
	}
}

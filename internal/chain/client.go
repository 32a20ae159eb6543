// Package chain wraps the BSC JSON-RPC endpoint used by the log fetcher and
// the pool resolver.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// timestampCacheSize bounds the block timestamp cache. A batch rarely spans
// more distinct blocks than this.
const timestampCacheSize = 50_000

// Client is a thin go-ethereum client with a block timestamp cache.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.Mutex
	tsCache map[uint64]uint64
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// BlockTimestamp returns the header time of block number. Reserve and trade
// events carry this timestamp into entity ids, so it is fetched once per
// block and reused.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.Lock()
	ts, ok := c.tsCache[number]
	c.mu.Unlock()
	if ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if len(c.tsCache) >= timestampCacheSize {
		c.tsCache = make(map[uint64]uint64)
	}
	c.tsCache[number] = header.Time
	c.mu.Unlock()

	return header.Time, nil
}

// FilterLogs runs eth_getLogs.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call; the pool resolver reads token() through it.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

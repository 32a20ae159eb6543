package decode

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainPoolResolver maps a pool to its token by calling the pool's token()
// view. Successful lookups are cached for the life of the resolver; failed
// ones are retried on the next request.
type ChainPoolResolver struct {
	caller  ContractCaller
	poolABI abi.ABI
	logger  *zap.Logger

	mu    sync.RWMutex
	cache map[common.Address]string
}

func NewChainPoolResolver(caller ContractCaller, logger *zap.Logger) (*ChainPoolResolver, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainPoolResolver{
		caller:  caller,
		poolABI: parsed,
		logger:  logger,
		cache:   make(map[common.Address]string),
	}, nil
}

// ResolvePool returns the lowercase token address behind pool. A call that
// fails or returns the zero address leaves the pool unresolved.
func (r *ChainPoolResolver) ResolvePool(ctx context.Context, pool string) (string, bool, error) {
	if !common.IsHexAddress(pool) {
		return "", false, nil
	}
	address := common.HexToAddress(pool)

	r.mu.RLock()
	token, ok := r.cache[address]
	r.mu.RUnlock()
	if ok {
		return token, true, nil
	}

	values, err := callPoolMethod(ctx, r.caller, address, r.poolABI, "token", nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		r.logger.Warn("pool token lookup failed", zap.String("pool", address.Hex()), zap.Error(err))
		return "", false, nil
	}
	tokenAddr, err := asAddress(values[0])
	if err != nil {
		return "", false, fmt.Errorf("token: %w", err)
	}
	if tokenAddr == (common.Address{}) {
		return "", false, nil
	}

	token = strings.ToLower(tokenAddr.Hex())
	r.mu.Lock()
	r.cache[address] = token
	r.mu.Unlock()
	return token, true, nil
}

func callPoolMethod(ctx context.Context, caller ContractCaller, pool common.Address, poolABI abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

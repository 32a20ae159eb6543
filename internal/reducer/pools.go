package reducer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PoolResolver maps a bonding-curve pool address to the token it trades.
// Pool addresses are passed lowercased; the returned token id must be too.
type PoolResolver interface {
	ResolvePool(ctx context.Context, pool string) (token string, ok bool, err error)
}

// StaticPools is a fixed pool -> token table.
type StaticPools map[string]string

// NewStaticPools validates and lowercases a pool -> token mapping.
func NewStaticPools(m map[string]string) (StaticPools, error) {
	out := make(StaticPools, len(m))
	for pool, token := range m {
		if !common.IsHexAddress(pool) {
			return nil, fmt.Errorf("invalid pool address %q", pool)
		}
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("invalid token address %q for pool %s", token, pool)
		}
		out[strings.ToLower(pool)] = strings.ToLower(token)
	}
	return out, nil
}

func (p StaticPools) ResolvePool(_ context.Context, pool string) (string, bool, error) {
	token, ok := p[strings.ToLower(pool)]
	return token, ok, nil
}

// ChainedResolver asks each resolver in order and returns the first hit.
type ChainedResolver []PoolResolver

func (c ChainedResolver) ResolvePool(ctx context.Context, pool string) (string, bool, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		token, ok, err := r.ResolvePool(ctx, pool)
		if err != nil {
			return "", false, err
		}
		if ok {
			return token, true, nil
		}
	}
	return "", false, nil
}

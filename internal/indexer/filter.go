package indexer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Filter selects the logs the runner fetches. Pools are deployed by the
// launcher at runtime, so a topic-only filter is the normal case.
type Filter struct {
	Addresses []common.Address
	Topic0    []common.Hash
}

// ParseFilter validates address and topic0 strings. Blank entries are
// ignored and duplicates collapse.
func ParseFilter(addresses, topics []string) (Filter, error) {
	var f Filter
	seenAddr := make(map[common.Address]struct{})
	for _, input := range addresses {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return Filter{}, fmt.Errorf("invalid address: %s", input)
		}
		addr := common.HexToAddress(input)
		if _, ok := seenAddr[addr]; ok {
			continue
		}
		seenAddr[addr] = struct{}{}
		f.Addresses = append(f.Addresses, addr)
	}

	seenTopic := make(map[common.Hash]struct{})
	for _, input := range topics {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		raw, err := hexutil.Decode(input)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid topic0 %s: %w", input, err)
		}
		if len(raw) != common.HashLength {
			return Filter{}, fmt.Errorf("invalid topic0 length: %s", input)
		}
		topic := common.BytesToHash(raw)
		if _, ok := seenTopic[topic]; ok {
			continue
		}
		seenTopic[topic] = struct{}{}
		f.Topic0 = append(f.Topic0, topic)
	}
	return f, nil
}

// Empty reports whether the filter would match every log on the chain.
func (f Filter) Empty() bool {
	return len(f.Addresses) == 0 && len(f.Topic0) == 0
}

// Query builds the eth_getLogs query for one block range.
func (f Filter) Query(r BlockRange) ethereum.FilterQuery {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: f.Addresses,
	}
	if len(f.Topic0) > 0 {
		q.Topics = [][]common.Hash{f.Topic0}
	}
	return q
}

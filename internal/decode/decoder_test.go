package decode

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"launchpadIndexer/internal/model"
)

var (
	launcher = common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	token    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	alice    = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob      = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func mustABI(t *testing.T, load func() (abi.ABI, error)) abi.ABI {
	t.Helper()
	parsed, err := load()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	return parsed
}

func mustDecoder(t *testing.T, cfg Config) *Decoder {
	t.Helper()
	decoder, err := NewDecoder(cfg)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return decoder
}

func TestDecodeTokenLaunched(t *testing.T) {
	launchpad := mustABI(t, LaunchpadABI)
	decoder := mustDecoder(t, Config{})

	supply, _ := new(big.Int).SetString("1000000000000000000000000000", 10)
	event := launchpad.Events["TokenLaunched"]
	data, err := event.Inputs.NonIndexed().Pack("Moon Cat", "MCAT", supply)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	record := buildLogRecord(launcher, event.ID, data, []common.Hash{
		topicFromAddress(token),
		topicFromAddress(alice),
	})

	typed, err := decoder.Decode(record)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if typed.EventName != model.KindTokenLaunched {
		t.Fatalf("event name: %s", typed.EventName)
	}
	payload, ok := typed.Decoded.(model.TokenLaunchedData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", typed.Decoded)
	}
	if payload.TokenAddress != token.Hex() || payload.Creator != alice.Hex() {
		t.Fatalf("address mismatch: %+v", payload)
	}
	if payload.Name != "Moon Cat" || payload.Symbol != "MCAT" {
		t.Fatalf("metadata mismatch: %+v", payload)
	}
	if payload.TotalSupply != supply.String() {
		t.Fatalf("supply mismatch: %s", payload.TotalSupply)
	}
	if typed.Raw == nil || typed.Raw.Topic0 != event.ID.Hex() {
		t.Fatalf("raw ref mismatch: %+v", typed.Raw)
	}

	// The JSONL form must convert back into the domain event unchanged.
	line, err := json.Marshal(typed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back model.TypedEventRecord
	if err := json.Unmarshal(line, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ev, err := back.Event()
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	launched, ok := ev.(model.TokenLaunched)
	if !ok {
		t.Fatalf("event type mismatch: %T", ev)
	}
	if launched.TotalSupply.Cmp(supply) != 0 || launched.BlockTimestamp != 1700000000 || launched.LogIndex != 1 {
		t.Fatalf("event mismatch: %+v", launched)
	}
}

func TestDecodeExternalTokenRegistered(t *testing.T) {
	launchpad := mustABI(t, LaunchpadABI)
	decoder := mustDecoder(t, Config{})

	event := launchpad.Events["ExternalTokenRegistered"]
	data, err := event.Inputs.NonIndexed().Pack("Wrapped Thing", "WTH")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	typed, err := decoder.Decode(buildLogRecord(launcher, event.ID, data, []common.Hash{
		topicFromAddress(token),
		topicFromAddress(bob),
	}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	payload, ok := typed.Decoded.(model.ExternalTokenRegisteredData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", typed.Decoded)
	}
	if payload.Registrar != bob.Hex() || payload.Symbol != "WTH" {
		t.Fatalf("payload mismatch: %+v", payload)
	}
}

func TestDecodePoolEvents(t *testing.T) {
	poolABI := mustABI(t, PoolABI)
	decoder := mustDecoder(t, Config{})

	for _, name := range []string{"TokenPurchased", "TokenSold"} {
		event := poolABI.Events[name]
		data, err := event.Inputs.NonIndexed().Pack(big.NewInt(5000), big.NewInt(7))
		if err != nil {
			t.Fatalf("pack %s: %v", name, err)
		}
		typed, err := decoder.Decode(buildLogRecord(pool, event.ID, data, []common.Hash{topicFromAddress(bob)}))
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		if typed.EventName != name {
			t.Fatalf("event name: %s", typed.EventName)
		}
		trade, ok := typed.Decoded.(model.TradeData)
		if !ok {
			t.Fatalf("decoded type mismatch: %T", typed.Decoded)
		}
		if trade.Trader != bob.Hex() || trade.TokenAmount != "5000" || trade.BNBAmount != "7" {
			t.Fatalf("%s mismatch: %+v", name, trade)
		}
	}

	event := poolABI.Events["ReservesSynced"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(2_000), big.NewInt(1_000))
	if err != nil {
		t.Fatalf("pack reserves: %v", err)
	}
	typed, err := decoder.Decode(buildLogRecord(pool, event.ID, data, nil))
	if err != nil {
		t.Fatalf("decode reserves: %v", err)
	}
	reserves, ok := typed.Decoded.(model.ReservesSyncedData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", typed.Decoded)
	}
	if reserves.ReserveToken != "2000" || reserves.ReserveBNB != "1000" {
		t.Fatalf("reserves mismatch: %+v", reserves)
	}
}

func TestDecodeERC20Events(t *testing.T) {
	erc20 := mustABI(t, ERC20ABI)
	decoder := mustDecoder(t, Config{})

	transfer := erc20.Events["Transfer"]
	data, err := transfer.Inputs.NonIndexed().Pack(big.NewInt(42))
	if err != nil {
		t.Fatalf("pack transfer: %v", err)
	}
	typed, err := decoder.Decode(buildLogRecord(token, transfer.ID, data, []common.Hash{
		topicFromAddress(alice),
		topicFromAddress(bob),
	}))
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	payload, ok := typed.Decoded.(model.TransferData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", typed.Decoded)
	}
	if payload.From != alice.Hex() || payload.To != bob.Hex() || payload.Value != "42" {
		t.Fatalf("transfer mismatch: %+v", payload)
	}

	approval := erc20.Events["Approval"]
	data, err = approval.Inputs.NonIndexed().Pack(big.NewInt(9))
	if err != nil {
		t.Fatalf("pack approval: %v", err)
	}
	typed, err = decoder.Decode(buildLogRecord(token, approval.ID, data, []common.Hash{
		topicFromAddress(alice),
		topicFromAddress(pool),
	}))
	if err != nil {
		t.Fatalf("decode approval: %v", err)
	}
	approved, ok := typed.Decoded.(model.ApprovalData)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", typed.Decoded)
	}
	if approved.Owner != alice.Hex() || approved.Spender != pool.Hex() {
		t.Fatalf("approval mismatch: %+v", approved)
	}
}

func TestDecodeRejectsMalformedLogs(t *testing.T) {
	poolABI := mustABI(t, PoolABI)
	decoder := mustDecoder(t, Config{})
	event := poolABI.Events["TokenPurchased"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	wrongTopics := buildLogRecord(pool, event.ID, data, nil)
	if _, err := decoder.Decode(wrongTopics); err == nil {
		t.Fatalf("expected topic count error")
	}

	truncated := buildLogRecord(pool, event.ID, data[:40], []common.Hash{topicFromAddress(bob)})
	if _, err := decoder.Decode(truncated); err == nil {
		t.Fatalf("expected unpack error")
	}

	badAddress := buildLogRecord(pool, event.ID, data, []common.Hash{topicFromAddress(bob)})
	badAddress.Address = "pool"
	if _, err := decoder.Decode(badAddress); err == nil {
		t.Fatalf("expected address error")
	}

	unknown := buildLogRecord(pool, common.HexToHash("0x01"), data, nil)
	if decoder.CanDecode(unknown.Topics[0]) {
		t.Fatalf("unexpected CanDecode for unknown topic")
	}
	if _, err := decoder.Decode(unknown); err == nil {
		t.Fatalf("expected unsupported topic error")
	}
	if decoder.CanDecode("") {
		t.Fatalf("empty topic must not decode")
	}
}

func TestDecodeTopic0Override(t *testing.T) {
	poolABI := mustABI(t, PoolABI)
	custom := "0x00000000000000000000000000000000000000000000000000000000000000ff"

	decoder := mustDecoder(t, Config{Topic0Map: map[string]string{custom: "reservessynced"}})
	if !decoder.CanDecode("0x00000000000000000000000000000000000000000000000000000000000000FF") {
		t.Fatalf("override not registered")
	}

	data, err := poolABI.Events["ReservesSynced"].Inputs.NonIndexed().Pack(big.NewInt(3), big.NewInt(4))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	typed, err := decoder.Decode(buildLogRecord(pool, common.HexToHash(custom), data, nil))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if typed.EventName != model.KindReservesSynced {
		t.Fatalf("event name: %s", typed.EventName)
	}

	if _, err := NewDecoder(Config{Topic0Map: map[string]string{custom: "Swap"}}); err == nil {
		t.Fatalf("expected unsupported name error")
	}
}

type fakeCaller struct {
	calls  int
	result []byte
	err    error
}

func (f *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	return f.result, f.err
}

func TestChainPoolResolver(t *testing.T) {
	poolABI := mustABI(t, PoolABI)
	out, err := poolABI.Methods["token"].Outputs.Pack(token)
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}

	caller := &fakeCaller{result: out}
	resolver, err := NewChainPoolResolver(caller, nil)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, ok, err := resolver.ResolvePool(context.Background(), strings.ToLower(pool.Hex()))
		if err != nil || !ok {
			t.Fatalf("resolve: ok=%v err=%v", ok, err)
		}
		if got != strings.ToLower(token.Hex()) {
			t.Fatalf("token mismatch: %s", got)
		}
	}
	if caller.calls != 1 {
		t.Fatalf("expected one cached call, got %d", caller.calls)
	}
}

func TestChainPoolResolverUnresolved(t *testing.T) {
	poolABI := mustABI(t, PoolABI)

	failing := &fakeCaller{err: errors.New("execution reverted")}
	resolver, err := NewChainPoolResolver(failing, nil)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	if _, ok, err := resolver.ResolvePool(context.Background(), pool.Hex()); ok || err != nil {
		t.Fatalf("expected unresolved, got ok=%v err=%v", ok, err)
	}
	_, _, _ = resolver.ResolvePool(context.Background(), pool.Hex())
	if failing.calls != 2 {
		t.Fatalf("failed lookups must not be cached, calls=%d", failing.calls)
	}

	zero, err := poolABI.Methods["token"].Outputs.Pack(common.Address{})
	if err != nil {
		t.Fatalf("pack output: %v", err)
	}
	resolver, err = NewChainPoolResolver(&fakeCaller{result: zero}, nil)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	if _, ok, err := resolver.ResolvePool(context.Background(), pool.Hex()); ok || err != nil {
		t.Fatalf("zero token must be unresolved, ok=%v err=%v", ok, err)
	}

	if _, err := NewChainPoolResolver(nil, nil); err == nil {
		t.Fatalf("expected nil caller error")
	}
}

func buildLogRecord(address common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) model.LogRecord {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     56,
		BlockNumber: 12345,
		BlockHash:   "0xabc",
		TxHash:      "0xdef",
		LogIndex:    1,
		Address:     address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1700000000,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestDecoderTopics(t *testing.T) {
	decoder := mustDecoder(t, Config{})
	topics := decoder.Topics()
	if len(topics) != 7 {
		t.Fatalf("expected 7 topics, got %d", len(topics))
	}
	transfer := mustABI(t, ERC20ABI).Events["Transfer"].ID.Hex()
	found := false
	for i, topic := range topics {
		if i > 0 && topics[i-1] >= topic {
			t.Fatalf("topics not sorted: %v", topics)
		}
		if topic == strings.ToLower(transfer) {
			found = true
		}
	}
	if !found {
		t.Fatalf("transfer topic missing: %v", topics)
	}
}

// Package decode turns raw launchpad, pool and ERC20 logs into typed events.
package decode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"launchpadIndexer/internal/model"
)

// Config configures decoder behavior.
type Config struct {
	// Topic0Map adds or overrides topic0 -> event name bindings, for
	// deployments whose event signatures differ from the bundled ABI.
	Topic0Map map[string]string
}

// Decoder decodes every event the reducers understand.
type Decoder struct {
	byName  map[string]abi.Event
	byTopic map[string]abi.Event
}

// NewDecoder builds a decoder over the bundled ABIs.
func NewDecoder(cfg Config) (*Decoder, error) {
	byName := make(map[string]abi.Event)
	for _, load := range []func() (abi.ABI, error){LaunchpadABI, PoolABI, ERC20ABI} {
		parsed, err := load()
		if err != nil {
			return nil, fmt.Errorf("parse abi: %w", err)
		}
		for name, event := range parsed.Events {
			byName[name] = event
		}
	}

	byTopic := make(map[string]abi.Event, len(byName))
	for _, event := range byName {
		byTopic[strings.ToLower(event.ID.Hex())] = event
	}

	for topic0, name := range cfg.Topic0Map {
		event, ok := lookupEvent(byName, name)
		if !ok {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", name)
		}
		if topic0 == "" {
			continue
		}
		byTopic[strings.ToLower(topic0)] = event
	}

	return &Decoder{byName: byName, byTopic: byTopic}, nil
}

func lookupEvent(byName map[string]abi.Event, name string) (abi.Event, bool) {
	name = strings.TrimSpace(name)
	for known, event := range byName {
		if strings.EqualFold(known, name) {
			return event, true
		}
	}
	return abi.Event{}, false
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.byTopic[strings.ToLower(topic0)]
	return ok
}

// Topics returns every topic0 the decoder accepts, sorted.
func (d *Decoder) Topics() []string {
	out := make([]string, 0, len(d.byTopic))
	for topic := range d.byTopic {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	event, ok := d.byTopic[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid contract address: %s", log.Address)
	}

	var (
		decoded interface{}
		err     error
	)
	switch event.Name {
	case model.KindTokenLaunched:
		decoded, err = decodeTokenLaunched(event, log)
	case model.KindExternalTokenRegistered:
		decoded, err = decodeExternalToken(event, log)
	case model.KindTokenPurchased, model.KindTokenSold:
		decoded, err = decodeTrade(event, log)
	case model.KindReservesSynced:
		decoded, err = decodeReserves(event, log)
	case model.KindTransfer:
		decoded, err = decodeTransfer(event, log)
	case model.KindApproval:
		decoded, err = decodeApproval(event, log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", event.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", event.Name, err)
	}

	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   event.Name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}, nil
}

func decodeTokenLaunched(event abi.Event, log model.LogRecord) (model.TokenLaunchedData, error) {
	var indexed struct {
		TokenAddress common.Address
		Creator      common.Address
	}
	if err := parseTopicsInto(event, log.Topics, &indexed); err != nil {
		return model.TokenLaunchedData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return model.TokenLaunchedData{}, err
	}
	name, err := asString(values[0])
	if err != nil {
		return model.TokenLaunchedData{}, fmt.Errorf("name: %w", err)
	}
	symbol, err := asString(values[1])
	if err != nil {
		return model.TokenLaunchedData{}, fmt.Errorf("symbol: %w", err)
	}
	supply, err := asBigInt(values[2])
	if err != nil {
		return model.TokenLaunchedData{}, fmt.Errorf("total supply: %w", err)
	}

	return model.TokenLaunchedData{
		TokenAddress: indexed.TokenAddress.Hex(),
		Creator:      indexed.Creator.Hex(),
		Name:         name,
		Symbol:       symbol,
		TotalSupply:  supply.String(),
	}, nil
}

func decodeExternalToken(event abi.Event, log model.LogRecord) (model.ExternalTokenRegisteredData, error) {
	var indexed struct {
		TokenAddress common.Address
		Registrar    common.Address
	}
	if err := parseTopicsInto(event, log.Topics, &indexed); err != nil {
		return model.ExternalTokenRegisteredData{}, err
	}

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.ExternalTokenRegisteredData{}, err
	}
	name, err := asString(values[0])
	if err != nil {
		return model.ExternalTokenRegisteredData{}, fmt.Errorf("name: %w", err)
	}
	symbol, err := asString(values[1])
	if err != nil {
		return model.ExternalTokenRegisteredData{}, fmt.Errorf("symbol: %w", err)
	}

	return model.ExternalTokenRegisteredData{
		TokenAddress: indexed.TokenAddress.Hex(),
		Registrar:    indexed.Registrar.Hex(),
		Name:         name,
		Symbol:       symbol,
	}, nil
}

// decodeTrade handles both pool trade events. They differ only in the name of
// the indexed trader argument.
func decodeTrade(event abi.Event, log model.LogRecord) (model.TradeData, error) {
	topics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.TradeData{}, err
	}
	trader := common.BytesToAddress(topics[0].Bytes())

	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.TradeData{}, err
	}
	tokenAmount, err := asBigInt(values[0])
	if err != nil {
		return model.TradeData{}, fmt.Errorf("token amount: %w", err)
	}
	bnbAmount, err := asBigInt(values[1])
	if err != nil {
		return model.TradeData{}, fmt.Errorf("bnb amount: %w", err)
	}

	return model.TradeData{
		Trader:      trader.Hex(),
		TokenAmount: tokenAmount.String(),
		BNBAmount:   bnbAmount.String(),
	}, nil
}

func decodeReserves(event abi.Event, log model.LogRecord) (model.ReservesSyncedData, error) {
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return model.ReservesSyncedData{}, err
	}
	values, err := unpackNonIndexed(event, log.Data, 2)
	if err != nil {
		return model.ReservesSyncedData{}, err
	}
	reserveToken, err := asBigInt(values[0])
	if err != nil {
		return model.ReservesSyncedData{}, fmt.Errorf("reserve token: %w", err)
	}
	reserveBNB, err := asBigInt(values[1])
	if err != nil {
		return model.ReservesSyncedData{}, fmt.Errorf("reserve bnb: %w", err)
	}
	return model.ReservesSyncedData{
		ReserveToken: reserveToken.String(),
		ReserveBNB:   reserveBNB.String(),
	}, nil
}

func decodeTransfer(event abi.Event, log model.LogRecord) (model.TransferData, error) {
	var indexed struct {
		From common.Address
		To   common.Address
	}
	if err := parseTopicsInto(event, log.Topics, &indexed); err != nil {
		return model.TransferData{}, err
	}
	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.TransferData{}, err
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return model.TransferData{}, fmt.Errorf("value: %w", err)
	}
	return model.TransferData{
		From:  indexed.From.Hex(),
		To:    indexed.To.Hex(),
		Value: value.String(),
	}, nil
}

func decodeApproval(event abi.Event, log model.LogRecord) (model.ApprovalData, error) {
	var indexed struct {
		Owner   common.Address
		Spender common.Address
	}
	if err := parseTopicsInto(event, log.Topics, &indexed); err != nil {
		return model.ApprovalData{}, err
	}
	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return model.ApprovalData{}, err
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return model.ApprovalData{}, fmt.Errorf("value: %w", err)
	}
	return model.ApprovalData{
		Owner:   indexed.Owner.Hex(),
		Spender: indexed.Spender.Hex(),
		Value:   value.String(),
	}, nil
}

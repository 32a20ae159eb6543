package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"launchpadIndexer/internal/numeric"
)

// ErrUnknownEvent is returned for event names the reducers do not handle.
var ErrUnknownEvent = errors.New("unknown event")

// TypedEvent is what the decoder writes: one decoded log with its payload
// kept as one of the *Data structs.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	BlockHash   string      `json:"block_hash"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef points back at the undecoded log.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// TypedEventRecord is a TypedEvent read back from JSONL with the payload
// still undecoded.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// Position returns the stream position of the record.
func (r TypedEventRecord) Position() Position {
	return Position{Block: r.BlockNumber, LogIndex: r.LogIndex}
}

// Event converts the record into its typed domain event. Amount fields must
// parse as uint256; anything else is rejected.
func (r TypedEventRecord) Event() (Event, error) {
	meta := EventMeta{
		Contract:       r.Address,
		BlockNumber:    r.BlockNumber,
		BlockTimestamp: r.Timestamp,
		LogIndex:       r.LogIndex,
		TxHash:         r.TxHash,
	}

	switch r.EventName {
	case KindTokenLaunched:
		var data TokenLaunchedData
		if err := r.unmarshal(&data); err != nil {
			return nil, err
		}
		supply, err := parseAmount("total_supply", data.TotalSupply)
		if err != nil {
			return nil, err
		}
		return TokenLaunched{
			EventMeta:   meta,
			Token:       data.TokenAddress,
			Creator:     data.Creator,
			Name:        data.Name,
			Symbol:      data.Symbol,
			TotalSupply: supply,
		}, nil
	case KindExternalTokenRegistered:
		var data ExternalTokenRegisteredData
		if err := r.unmarshal(&data); err != nil {
			return nil, err
		}
		return ExternalTokenRegistered{
			EventMeta: meta,
			Token:     data.TokenAddress,
			Registrar: data.Registrar,
			Name:      data.Name,
			Symbol:    data.Symbol,
		}, nil
	case KindTokenPurchased, KindTokenSold:
		var data TradeData
		if err := r.unmarshal(&data); err != nil {
			return nil, err
		}
		tokenAmount, err := parseAmount("token_amount", data.TokenAmount)
		if err != nil {
			return nil, err
		}
		bnbAmount, err := parseAmount("bnb_amount", data.BNBAmount)
		if err != nil {
			return nil, err
		}
		trade := Trade{Trader: data.Trader, TokenAmount: tokenAmount, BNBAmount: bnbAmount}
		if r.EventName == KindTokenPurchased {
			return TokenPurchased{EventMeta: meta, Trade: trade}, nil
		}
		return TokenSold{EventMeta: meta, Trade: trade}, nil
	case KindReservesSynced:
		var data ReservesSyncedData
		if err := r.unmarshal(&data); err != nil {
			return nil, err
		}
		reserveToken, err := parseAmount("reserve_token", data.ReserveToken)
		if err != nil {
			return nil, err
		}
		reserveBNB, err := parseAmount("reserve_bnb", data.ReserveBNB)
		if err != nil {
			return nil, err
		}
		return ReservesSynced{EventMeta: meta, ReserveToken: reserveToken, ReserveBNB: reserveBNB}, nil
	case KindTransfer:
		var data TransferData
		if err := r.unmarshal(&data); err != nil {
			return nil, err
		}
		value, err := parseAmount("value", data.Value)
		if err != nil {
			return nil, err
		}
		return Transfer{EventMeta: meta, From: data.From, To: data.To, Value: value}, nil
	case KindApproval:
		var data ApprovalData
		if err := r.unmarshal(&data); err != nil {
			return nil, err
		}
		value, err := parseAmount("value", data.Value)
		if err != nil {
			return nil, err
		}
		return Approval{EventMeta: meta, Owner: data.Owner, Spender: data.Spender, Value: value}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, r.EventName)
	}
}

func (r TypedEventRecord) unmarshal(dst interface{}) error {
	if len(r.Decoded) == 0 || strings.TrimSpace(string(r.Decoded)) == "null" {
		return fmt.Errorf("%s: missing decoded payload", r.EventName)
	}
	if err := json.Unmarshal(r.Decoded, dst); err != nil {
		return fmt.Errorf("%s: decode payload: %w", r.EventName, err)
	}
	return nil
}

func parseAmount(field, value string) (*big.Int, error) {
	amount, err := numeric.ParseUint256(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return amount, nil
}

package model

import (
	"fmt"
	"math/big"
)

// Event kinds as they appear in the typed event stream.
const (
	KindTokenLaunched           = "TokenLaunched"
	KindExternalTokenRegistered = "ExternalTokenRegistered"
	KindTokenPurchased          = "TokenPurchased"
	KindTokenSold               = "TokenSold"
	KindReservesSynced          = "ReservesSynced"
	KindTransfer                = "Transfer"
	KindApproval                = "Approval"
)

// Event is a decoded contract log ready for reduction.
type Event interface {
	Kind() string
	Meta() EventMeta
}

// EventMeta identifies where an event was emitted.
type EventMeta struct {
	Contract       string
	BlockNumber    uint64
	BlockTimestamp uint64
	LogIndex       uint64
	TxHash         string
}

func (m EventMeta) Meta() EventMeta { return m }

// Position returns the stream position of the event.
func (m EventMeta) Position() Position {
	return Position{Block: m.BlockNumber, LogIndex: m.LogIndex}
}

// Position orders events by (block number, log index).
type Position struct {
	Block    uint64 `json:"block"`
	LogIndex uint64 `json:"log_index"`
}

// Less reports whether p sorts strictly before o.
func (p Position) Less(o Position) bool {
	if p.Block != o.Block {
		return p.Block < o.Block
	}
	return p.LogIndex < o.LogIndex
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Block, p.LogIndex)
}

// TokenLaunched is emitted by the launcher when it mints a new token.
type TokenLaunched struct {
	EventMeta
	Token       string
	Creator     string
	Name        string
	Symbol      string
	TotalSupply *big.Int
}

func (TokenLaunched) Kind() string { return KindTokenLaunched }

// ExternalTokenRegistered is emitted when an existing token is listed.
type ExternalTokenRegistered struct {
	EventMeta
	Token     string
	Registrar string
	Name      string
	Symbol    string
}

func (ExternalTokenRegistered) Kind() string { return KindExternalTokenRegistered }

// Trade carries the parameters shared by pool buy and sell events.
type Trade struct {
	Trader      string
	TokenAmount *big.Int
	BNBAmount   *big.Int
}

// TokenPurchased is a pool buy. Contract is the pool address.
type TokenPurchased struct {
	EventMeta
	Trade
}

func (TokenPurchased) Kind() string { return KindTokenPurchased }

// TokenSold is a pool sell. Contract is the pool address.
type TokenSold struct {
	EventMeta
	Trade
}

func (TokenSold) Kind() string { return KindTokenSold }

// ReservesSynced reports the pool reserves after a state change.
type ReservesSynced struct {
	EventMeta
	ReserveToken *big.Int
	ReserveBNB   *big.Int
}

func (ReservesSynced) Kind() string { return KindReservesSynced }

// Transfer is an ERC20 transfer.
type Transfer struct {
	EventMeta
	From  string
	To    string
	Value *big.Int
}

func (Transfer) Kind() string { return KindTransfer }

// Approval is an ERC20 approval.
type Approval struct {
	EventMeta
	Owner   string
	Spender string
	Value   *big.Int
}

func (Approval) Kind() string { return KindApproval }

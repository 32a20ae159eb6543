package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// StatsID is the fixed key of the LaunchpadStats singleton.
const StatsID = "1"

// TokenDecimals is the decimal count of every token created by the launcher.
const TokenDecimals = 18

// TxType tags a Transaction by the action that produced it.
type TxType string

const (
	TxLaunch   TxType = "LAUNCH"
	TxBuy      TxType = "BUY"
	TxSell     TxType = "SELL"
	TxTransfer TxType = "TRANSFER"
	TxApproval TxType = "APPROVAL"
)

// Token is the per-token market state.
type Token struct {
	ID             string              `json:"id"`
	Address        string              `json:"address"`
	Name           string              `json:"name"`
	Symbol         string              `json:"symbol"`
	Decimals       uint8               `json:"decimals"`
	TotalSupply    *big.Int            `json:"total_supply"`
	CurrentPrice   decimal.Decimal     `json:"current_price"`
	PriceChange24h decimal.Decimal     `json:"price_change_24h"`
	Volume24h      decimal.Decimal     `json:"volume_24h"`
	VolumeUSD24h   decimal.NullDecimal `json:"volume_usd_24h"`
	MarketCap      decimal.Decimal     `json:"market_cap"`
	Liquidity      decimal.Decimal     `json:"liquidity"`
	ReserveToken   *big.Int            `json:"reserve_token"`
	ReserveBNB     *big.Int            `json:"reserve_bnb"`
	AMMPoolAddress string              `json:"amm_pool_address,omitempty"`
	CreatorID      string              `json:"creator_id"`
	IsActive       bool                `json:"is_active"`

	TransactionCount uint64 `json:"transaction_count"`
	HolderCount      uint64 `json:"holder_count"`

	LaunchedAt uint64 `json:"launched_at"`
	CreatedAt  uint64 `json:"created_at"`
	UpdatedAt  uint64 `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t Token) Clone() Token {
	t.TotalSupply = cloneInt(t.TotalSupply)
	t.ReserveToken = cloneInt(t.ReserveToken)
	t.ReserveBNB = cloneInt(t.ReserveBNB)
	return t
}

// User holds running counters for one chain address.
type User struct {
	ID                 string              `json:"id"`
	TotalTransactions  uint64              `json:"total_transactions"`
	TokensCreated      uint64              `json:"tokens_created"`
	TokensTraded       uint64              `json:"tokens_traded"`
	TotalVolumeUSD     decimal.NullDecimal `json:"total_volume_usd"`
	FirstTransactionAt uint64              `json:"first_transaction_at"`
	LastTransactionAt  uint64              `json:"last_transaction_at"`
}

// Transaction is an immutable record of one on-chain action.
type Transaction struct {
	ID          string              `json:"id"`
	BlockNumber uint64              `json:"block_number"`
	Timestamp   uint64              `json:"timestamp"`
	TxHash      string              `json:"tx_hash"`
	LogIndex    uint64              `json:"log_index"`
	TokenID     string              `json:"token_id"`
	UserID      string              `json:"user_id"`
	TxType      TxType              `json:"tx_type"`
	TokenAmount *big.Int            `json:"token_amount"`
	BNBAmount   *big.Int            `json:"bnb_amount"`
	FromAmount  *big.Int            `json:"from_amount"`
	ToAmount    *big.Int            `json:"to_amount"`
	AmountUSD   decimal.NullDecimal `json:"amount_usd"`
	PriceUSD    decimal.NullDecimal `json:"price_usd"`
}

func (t Transaction) Clone() Transaction {
	t.TokenAmount = cloneInt(t.TokenAmount)
	t.BNBAmount = cloneInt(t.BNBAmount)
	t.FromAmount = cloneInt(t.FromAmount)
	t.ToAmount = cloneInt(t.ToAmount)
	return t
}

// LaunchpadStats is the platform-wide counter singleton.
type LaunchpadStats struct {
	ID                string              `json:"id"`
	TotalTokens       uint64              `json:"total_tokens"`
	TotalTransactions uint64              `json:"total_transactions"`
	TotalUsers        uint64              `json:"total_users"`
	TotalVolumeUSD    decimal.NullDecimal `json:"total_volume_usd"`
	TokensToday       uint64              `json:"tokens_today"`
	TransactionsToday uint64              `json:"transactions_today"`
	VolumeToday       decimal.NullDecimal `json:"volume_today"`
	LastUpdated       uint64              `json:"last_updated"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

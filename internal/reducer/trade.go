package reducer

import (
	"context"

	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/numeric"
	"launchpadIndexer/internal/stats"
	"launchpadIndexer/internal/store"
)

// applyTrade records a pool buy or sell. The transaction references the pool
// address as its token id; pool trades carry no token address.
func (e *Engine) applyTrade(ctx context.Context, meta model.EventMeta, side model.TxType, trade model.Trade) (Outcome, error) {
	if err := requireAddress("pool", meta.Contract); err != nil {
		return "", err
	}
	if err := requireAddress("trader", trade.Trader); err != nil {
		return "", err
	}
	if err := requireAmount("token_amount", trade.TokenAmount); err != nil {
		return "", err
	}
	if err := requireAmount("bnb_amount", trade.BNBAmount); err != nil {
		return "", err
	}

	ts := meta.BlockTimestamp
	txID := TransactionID(meta.Contract, ts, meta.LogIndex)

	_, exists, err := e.store.GetTransaction(ctx, txID)
	if err != nil {
		return "", err
	}
	if exists {
		e.logger.Debug("trade already applied", zap.String("tx_id", txID))
		return Duplicate, nil
	}

	cs := &store.ChangeSet{}

	user, userCreated, err := e.loadUser(ctx, trade.Trader, ts)
	if err != nil {
		return "", err
	}
	user.TotalTransactions++
	user.TokensTraded++
	touchUser(&user, ts)

	tx := model.Transaction{
		ID:          txID,
		BlockNumber: meta.BlockNumber,
		Timestamp:   ts,
		TxHash:      meta.TxHash,
		LogIndex:    meta.LogIndex,
		TokenID:     normalizeID(meta.Contract),
		UserID:      trade.Trader,
		TxType:      side,
		TokenAmount: numeric.Copy(trade.TokenAmount),
		BNBAmount:   numeric.Copy(trade.BNBAmount),
		AmountUSD:   numeric.Unpriced(),
		PriceUSD:    numeric.Unpriced(),
	}
	if side == model.TxBuy {
		tx.FromAmount = numeric.Copy(trade.BNBAmount)
		tx.ToAmount = numeric.Copy(trade.TokenAmount)
	} else {
		tx.FromAmount = numeric.Copy(trade.TokenAmount)
		tx.ToAmount = numeric.Copy(trade.BNBAmount)
	}
	user.TotalVolumeUSD = numeric.AddUSD(user.TotalVolumeUSD, tx.AmountUSD)

	cs.PutUser(user)
	cs.AddTransaction(tx)

	// Trades only reach the stats row when they carry a USD amount or the
	// distinct user policy needs to count a new trader.
	if tx.AmountUSD.Valid || (userCreated && e.cfg.Users == stats.UsersDistinct) {
		st, err := e.loadStats(ctx, ts)
		if err != nil {
			return "", err
		}
		if userCreated {
			e.acc.RecordUser(st, ts)
		}
		stats.AddVolume(st, tx.AmountUSD, ts)
		cs.PutStats(*st)
	}

	if err := e.store.Commit(ctx, cs); err != nil {
		return "", err
	}

	e.logger.Debug("trade recorded",
		zap.String("tx_id", txID),
		zap.String("side", string(side)),
		zap.String("trader", trade.Trader),
		zap.String("token_amount", trade.TokenAmount.String()),
		zap.String("bnb_amount", trade.BNBAmount.String()),
	)
	return Applied, nil
}

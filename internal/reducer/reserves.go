package reducer

import (
	"context"

	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/numeric"
	"launchpadIndexer/internal/pricing"
	"launchpadIndexer/internal/store"
)

// applyReservesSynced reprices the token behind a pool. Every miss here is a
// skip: price updates are best effort.
func (e *Engine) applyReservesSynced(ctx context.Context, ev model.ReservesSynced) (Outcome, error) {
	if err := requireAddress("pool", ev.Contract); err != nil {
		return "", err
	}
	if err := requireAmount("reserve_token", ev.ReserveToken); err != nil {
		return "", err
	}
	if err := requireAmount("reserve_bnb", ev.ReserveBNB); err != nil {
		return "", err
	}

	pool := normalizeID(ev.Contract)
	tokenID, ok, err := e.pools.ResolvePool(ctx, pool)
	if err != nil {
		return "", err
	}
	if !ok {
		e.logger.Warn("reserves for unmapped pool",
			zap.String("pool", pool),
			zap.Uint64("block", ev.BlockNumber),
			zap.Uint64("log_index", ev.LogIndex),
		)
		return Skipped, nil
	}

	if ev.ReserveToken.Sign() == 0 {
		e.logger.Debug("zero token reserve, price undefined", zap.String("pool", pool))
		return Skipped, nil
	}

	token, found, err := e.store.GetToken(ctx, tokenID)
	if err != nil {
		return "", err
	}
	if !found {
		e.logger.Warn("reserves for unknown token", zap.String("pool", pool), zap.String("token", tokenID))
		return Skipped, nil
	}

	ts := ev.BlockTimestamp
	if ts < token.UpdatedAt {
		e.logger.Debug("stale reserves", zap.String("token", tokenID), zap.Uint64("ts", ts), zap.Uint64("updated_at", token.UpdatedAt))
		return Skipped, nil
	}

	quote, ok := pricing.Compute(ev.ReserveToken, ev.ReserveBNB, token.TotalSupply, token.Decimals)
	if !ok {
		return Skipped, nil
	}

	token.ReserveToken = numeric.Copy(ev.ReserveToken)
	token.ReserveBNB = numeric.Copy(ev.ReserveBNB)
	token.CurrentPrice = quote.Price
	token.Liquidity = quote.Liquidity
	token.MarketCap = quote.MarketCap
	token.AMMPoolAddress = pool
	token.UpdatedAt = ts

	if err := e.store.Commit(ctx, &store.ChangeSet{Tokens: []model.Token{token}}); err != nil {
		return "", err
	}

	e.logger.Debug("token repriced",
		zap.String("token", tokenID),
		zap.String("price", quote.Price.String()),
		zap.String("liquidity", quote.Liquidity.String()),
	)
	return Applied, nil
}

package reducer

import (
	"context"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/numeric"
	"launchpadIndexer/internal/stats"
	"launchpadIndexer/internal/store"
)

func (e *Engine) applyTokenLaunched(ctx context.Context, ev model.TokenLaunched) (Outcome, error) {
	if err := requireAddress("token", ev.Token); err != nil {
		return "", err
	}
	if err := requireAddress("creator", ev.Creator); err != nil {
		return "", err
	}
	if err := requireAmount("total_supply", ev.TotalSupply); err != nil {
		return "", err
	}

	ts := ev.BlockTimestamp
	tokenID := strings.ToLower(ev.Token)
	txID := TransactionID(tokenID, ts, ev.LogIndex)

	duplicate, err := e.tokenOrTxExists(ctx, tokenID, txID)
	if err != nil {
		return "", err
	}
	if duplicate {
		e.logger.Debug("launch already applied", zap.String("token", tokenID), zap.String("tx_id", txID))
		return Duplicate, nil
	}

	cs := &store.ChangeSet{}

	user, userCreated, err := e.creditCreator(ctx, ev.Creator, ts)
	if err != nil {
		return "", err
	}
	cs.PutUser(user)

	cs.PutToken(newToken(tokenID, ev.Name, ev.Symbol, ev.TotalSupply, ev.Creator, ts))

	cs.AddTransaction(model.Transaction{
		ID:          txID,
		BlockNumber: ev.BlockNumber,
		Timestamp:   ts,
		TxHash:      ev.TxHash,
		LogIndex:    ev.LogIndex,
		TokenID:     tokenID,
		UserID:      ev.Creator,
		TxType:      model.TxLaunch,
		TokenAmount: numeric.Copy(ev.TotalSupply),
		BNBAmount:   numeric.Zero(),
		FromAmount:  numeric.Zero(),
		ToAmount:    numeric.Copy(ev.TotalSupply),
		AmountUSD:   numeric.Unpriced(),
		PriceUSD:    numeric.Unpriced(),
	})

	st, err := e.loadStats(ctx, ts)
	if err != nil {
		return "", err
	}
	if userCreated {
		e.acc.RecordUser(st, ts)
	}
	e.acc.RecordLaunch(st, ts)
	cs.PutStats(*st)

	if err := e.store.Commit(ctx, cs); err != nil {
		return "", err
	}

	e.logger.Debug("token launched",
		zap.String("token", tokenID),
		zap.String("creator", ev.Creator),
		zap.String("symbol", ev.Symbol),
		zap.Uint64("total_tokens", st.TotalTokens),
	)
	return Applied, nil
}

func (e *Engine) applyExternalToken(ctx context.Context, ev model.ExternalTokenRegistered) (Outcome, error) {
	if err := requireAddress("token", ev.Token); err != nil {
		return "", err
	}
	if err := requireAddress("registrar", ev.Registrar); err != nil {
		return "", err
	}

	ts := ev.BlockTimestamp
	tokenID := strings.ToLower(ev.Token)

	_, exists, err := e.store.GetToken(ctx, tokenID)
	if err != nil {
		return "", err
	}
	if exists {
		e.logger.Debug("external token already known", zap.String("token", tokenID))
		return Duplicate, nil
	}

	cs := &store.ChangeSet{}

	user, userCreated, err := e.creditCreator(ctx, ev.Registrar, ts)
	if err != nil {
		return "", err
	}
	cs.PutUser(user)
	cs.PutToken(newToken(tokenID, ev.Name, ev.Symbol, numeric.Zero(), ev.Registrar, ts))

	if e.cfg.CountExternalTokens || (userCreated && e.cfg.Users == stats.UsersDistinct) {
		st, err := e.loadStats(ctx, ts)
		if err != nil {
			return "", err
		}
		if userCreated {
			e.acc.RecordUser(st, ts)
		}
		if e.cfg.CountExternalTokens {
			e.acc.RecordExternalToken(st, ts)
		}
		cs.PutStats(*st)
	}

	if err := e.store.Commit(ctx, cs); err != nil {
		return "", err
	}

	e.logger.Debug("external token registered", zap.String("token", tokenID), zap.String("registrar", ev.Registrar))
	return Applied, nil
}

// creditCreator applies the token-creation counters to a user.
func (e *Engine) creditCreator(ctx context.Context, id string, ts uint64) (model.User, bool, error) {
	user, created, err := e.loadUser(ctx, id, ts)
	if err != nil {
		return model.User{}, false, err
	}
	user.TokensCreated++
	touchUser(&user, ts)
	return user, created, nil
}

func (e *Engine) tokenOrTxExists(ctx context.Context, tokenID, txID string) (bool, error) {
	_, exists, err := e.store.GetToken(ctx, tokenID)
	if err != nil || exists {
		return exists, err
	}
	_, exists, err = e.store.GetTransaction(ctx, txID)
	return exists, err
}

func newToken(id, name, symbol string, supply *big.Int, creator string, ts uint64) model.Token {
	return model.Token{
		ID:             id,
		Address:        id,
		Name:           name,
		Symbol:         symbol,
		Decimals:       model.TokenDecimals,
		TotalSupply:    numeric.Copy(supply),
		CurrentPrice:   decimal.Zero,
		PriceChange24h: decimal.Zero,
		Volume24h:      decimal.Zero,
		VolumeUSD24h:   numeric.Unpriced(),
		MarketCap:      decimal.Zero,
		Liquidity:      decimal.Zero,
		ReserveToken:   numeric.Zero(),
		ReserveBNB:     numeric.Zero(),
		CreatorID:      creator,
		IsActive:       true,
		HolderCount:    1,
		LaunchedAt:     ts,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}

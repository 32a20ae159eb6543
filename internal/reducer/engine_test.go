package reducer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/numeric"
	"launchpadIndexer/internal/stats"
	"launchpadIndexer/internal/store"
)

const (
	creatorA = "0x00000000000000000000000000000000000000a1"
	creatorB = "0x00000000000000000000000000000000000000b2"
	traderC  = "0x00000000000000000000000000000000000000c3"
	poolP    = "0x0000000000000000000000000000000000000f01"
	day      = uint64(86400)
	baseTS   = uint64(1_700_000_000)
)

func tokenAddr(i int) string {
	return fmt.Sprintf("0x%040x", 0x1000+i)
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func meta(contract string, block, ts, logIndex uint64) model.EventMeta {
	return model.EventMeta{
		Contract:       contract,
		BlockNumber:    block,
		BlockTimestamp: ts,
		LogIndex:       logIndex,
		TxHash:         fmt.Sprintf("0x%064x", block*1000+logIndex),
	}
}

func launched(token, creator string, block, ts, logIndex uint64, supply *big.Int) model.TokenLaunched {
	return model.TokenLaunched{
		EventMeta:   meta("0x00000000000000000000000000000000000000f0", block, ts, logIndex),
		Token:       token,
		Creator:     creator,
		Name:        "Token",
		Symbol:      "TKN",
		TotalSupply: supply,
	}
}

func bought(pool, trader string, block, ts, logIndex uint64) model.TokenPurchased {
	return model.TokenPurchased{
		EventMeta: meta(pool, block, ts, logIndex),
		Trade:     model.Trade{Trader: trader, TokenAmount: eth(100), BNBAmount: eth(1)},
	}
}

func sold(pool, trader string, block, ts, logIndex uint64) model.TokenSold {
	return model.TokenSold{
		EventMeta: meta(pool, block, ts, logIndex),
		Trade:     model.Trade{Trader: trader, TokenAmount: eth(50), BNBAmount: big.NewInt(12345)},
	}
}

func synced(pool string, block, ts, logIndex uint64, reserveToken, reserveBNB *big.Int) model.ReservesSynced {
	return model.ReservesSynced{
		EventMeta:    meta(pool, block, ts, logIndex),
		ReserveToken: reserveToken,
		ReserveBNB:   reserveBNB,
	}
}

func newTestEngine(t *testing.T, cfg Config, pools PoolResolver) (*Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewEngine(mem, pools, cfg, nil, nil), mem
}

func mustApply(t *testing.T, e *Engine, ev model.Event) Outcome {
	t.Helper()
	outcome, err := e.Apply(context.Background(), ev)
	require.NoError(t, err)
	return outcome
}

func getStats(t *testing.T, mem *store.Memory) model.LaunchpadStats {
	t.Helper()
	st, found, err := mem.GetStats(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	return st
}

func getUser(t *testing.T, mem *store.Memory, id string) model.User {
	t.Helper()
	user, found, err := mem.GetUser(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found, "user %s", id)
	return user
}

func getToken(t *testing.T, mem *store.Memory, id string) model.Token {
	t.Helper()
	token, found, err := mem.GetToken(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found, "token %s", id)
	return token
}

func TestTokenLaunchedCreatesEntities(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	token := "0x00000000000000000000000000000000000ABCDE"

	outcome := mustApply(t, e, launched(token, creatorA, 10, baseTS, 3, eth(1_000_000)))
	assert.Equal(t, Applied, outcome)

	got := getToken(t, mem, "0x00000000000000000000000000000000000abcde")
	assert.Equal(t, got.ID, got.Address)
	assert.Equal(t, uint8(18), got.Decimals)
	assert.Equal(t, 0, got.TotalSupply.Cmp(eth(1_000_000)))
	assert.True(t, got.CurrentPrice.IsZero())
	assert.Equal(t, int64(0), got.ReserveToken.Int64())
	assert.Equal(t, creatorA, got.CreatorID)
	assert.True(t, got.IsActive)
	assert.Equal(t, uint64(1), got.HolderCount)
	assert.Equal(t, uint64(0), got.TransactionCount)
	assert.Equal(t, baseTS, got.LaunchedAt)
	assert.Equal(t, baseTS, got.CreatedAt)
	assert.Equal(t, baseTS, got.UpdatedAt)
	assert.False(t, got.VolumeUSD24h.Valid)

	user := getUser(t, mem, creatorA)
	assert.Equal(t, uint64(1), user.TokensCreated)
	assert.Equal(t, uint64(0), user.TokensTraded)
	assert.Equal(t, uint64(0), user.TotalTransactions)
	assert.False(t, user.TotalVolumeUSD.Valid)
	assert.Equal(t, baseTS, user.FirstTransactionAt)
	assert.Equal(t, baseTS, user.LastTransactionAt)

	txID := TransactionID(token, baseTS, 3)
	tx, found, err := mem.GetTransaction(context.Background(), txID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.TxLaunch, tx.TxType)
	assert.Equal(t, "0x00000000000000000000000000000000000abcde", tx.TokenID)
	assert.Equal(t, 0, tx.TokenAmount.Cmp(eth(1_000_000)))
	assert.Equal(t, 0, tx.ToAmount.Cmp(eth(1_000_000)))
	assert.Equal(t, 0, tx.BNBAmount.Sign())
	assert.Equal(t, 0, tx.FromAmount.Sign())
	assert.False(t, tx.AmountUSD.Valid)
	assert.False(t, tx.PriceUSD.Valid)

	st := getStats(t, mem)
	assert.Equal(t, model.StatsID, st.ID)
	assert.Equal(t, uint64(1), st.TotalTokens)
	assert.Equal(t, uint64(1), st.TotalTransactions)
	assert.Equal(t, uint64(1), st.TotalUsers)
	assert.Equal(t, uint64(1), st.TokensToday)
	assert.Equal(t, uint64(1), st.TransactionsToday)
	assert.False(t, st.VolumeToday.Valid)
	assert.False(t, st.TotalVolumeUSD.Valid)
	assert.Equal(t, baseTS, st.LastUpdated)
}

func TestDistinctLaunchesKeepExactSupply(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)

	huge := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	supplies := []*big.Int{big.NewInt(1), eth(1_000_000_000), huge, big.NewInt(0)}
	for i, supply := range supplies {
		mustApply(t, e, launched(tokenAddr(i), creatorA, uint64(100+i), baseTS+uint64(i), 0, supply))
	}

	tokens, users, txs := mem.Counts()
	assert.Equal(t, len(supplies), tokens)
	assert.Equal(t, 1, users)
	assert.Equal(t, len(supplies), txs)

	for i, supply := range supplies {
		got := getToken(t, mem, tokenAddr(i))
		assert.Equal(t, supply.String(), got.TotalSupply.String())
	}
	assert.Equal(t, uint64(len(supplies)), getStats(t, mem).TotalTokens)
	assert.Equal(t, uint64(len(supplies)), getUser(t, mem, creatorA).TokensCreated)
}

func TestTokenLaunchedReplayIsNoop(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	ev := launched(tokenAddr(1), creatorA, 5, baseTS, 1, eth(10))

	require.Equal(t, Applied, mustApply(t, e, ev))
	before := getStats(t, mem)

	assert.Equal(t, Duplicate, mustApply(t, e, ev))

	tokens, users, txs := mem.Counts()
	assert.Equal(t, 1, tokens)
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, txs)
	assert.Equal(t, before, getStats(t, mem))
	assert.Equal(t, uint64(1), getUser(t, mem, creatorA).TokensCreated)
}

func TestTradeReplayIsNoop(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	ev := bought(poolP, traderC, 7, baseTS, 2)

	require.Equal(t, Applied, mustApply(t, e, ev))
	assert.Equal(t, Duplicate, mustApply(t, e, ev))

	user := getUser(t, mem, traderC)
	assert.Equal(t, uint64(1), user.TokensTraded)
	assert.Equal(t, uint64(1), user.TotalTransactions)
}

func TestUserCountersIgnoreInterleaving(t *testing.T) {
	const launches, trades = 3, 5

	orders := map[string][]bool{
		"launches first": {true, true, true, false, false, false, false, false},
		"trades first":   {false, false, false, false, false, true, true, true},
		"interleaved":    {false, true, false, false, true, false, true, false},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			e, mem := newTestEngine(t, Config{}, nil)
			var li, ti int
			for i, isLaunch := range order {
				block := uint64(i + 1)
				ts := baseTS + uint64(i)
				if isLaunch {
					mustApply(t, e, launched(tokenAddr(li), creatorA, block, ts, 0, eth(1)))
					li++
					continue
				}
				if ti%2 == 0 {
					mustApply(t, e, bought(poolP, creatorA, block, ts, 1))
				} else {
					mustApply(t, e, sold(poolP, creatorA, block, ts, 1))
				}
				ti++
			}
			require.Equal(t, launches, li)
			require.Equal(t, trades, ti)

			user := getUser(t, mem, creatorA)
			assert.Equal(t, uint64(launches), user.TokensCreated)
			assert.Equal(t, uint64(trades), user.TokensTraded)
			assert.Equal(t, uint64(trades), user.TotalTransactions)
			assert.Equal(t, baseTS+uint64(len(order)-1), user.LastTransactionAt)
		})
	}
}

func TestTradeTransactionDirection(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	pool := "0x0000000000000000000000000000000000000FA1"

	mustApply(t, e, bought(pool, traderC, 1, baseTS, 0))
	mustApply(t, e, sold(pool, traderC, 1, baseTS, 1))

	buy, found, err := mem.GetTransaction(context.Background(), TransactionID(pool, baseTS, 0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.TxBuy, buy.TxType)
	assert.Equal(t, "0x0000000000000000000000000000000000000fa1", buy.TokenID)
	assert.Equal(t, traderC, buy.UserID)
	assert.Equal(t, eth(1).String(), buy.FromAmount.String())
	assert.Equal(t, eth(100).String(), buy.ToAmount.String())
	assert.False(t, buy.AmountUSD.Valid)

	sell, found, err := mem.GetTransaction(context.Background(), TransactionID(pool, baseTS, 1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.TxSell, sell.TxType)
	assert.Equal(t, eth(50).String(), sell.FromAmount.String())
	assert.Equal(t, "12345", sell.ToAmount.String())
}

func TestTradesDoNotCountGlobalTransactions(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)

	mustApply(t, e, launched(tokenAddr(1), creatorA, 1, baseTS, 0, eth(1000)))
	mustApply(t, e, bought(poolP, traderC, 2, baseTS+1, 0))
	mustApply(t, e, sold(poolP, traderC, 3, baseTS+2, 0))

	st := getStats(t, mem)
	assert.Equal(t, uint64(1), st.TotalTransactions)
	assert.Equal(t, uint64(1), st.TransactionsToday)
	assert.Equal(t, uint64(1), st.TotalUsers)
	assert.Equal(t, baseTS, st.LastUpdated)
}

func TestTransactionIDsUniqueByLogIndex(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)

	for i := uint64(0); i < 4; i++ {
		require.Equal(t, Applied, mustApply(t, e, bought(poolP, traderC, 9, baseTS, i)))
	}
	txs := mem.Transactions()
	require.Len(t, txs, 4)
	seen := map[string]bool{}
	for _, tx := range txs {
		assert.False(t, seen[tx.ID], tx.ID)
		seen[tx.ID] = true
	}
	assert.Equal(t, poolP+"-1700000000-3", TransactionID(poolP, baseTS, 3))
	assert.Equal(t, "0x0000000000000000000000000000000000000fa1-5-0",
		TransactionID("0x0000000000000000000000000000000000000FA1", 5, 0))
}

func TestReservesSyncedPricesToken(t *testing.T) {
	token := tokenAddr(1)
	e, mem := newTestEngine(t, Config{}, StaticPools{poolP: token})

	mustApply(t, e, launched(token, creatorA, 1, baseTS, 0, eth(1000)))
	outcome := mustApply(t, e, synced(poolP, 2, baseTS+10, 0, eth(2), eth(1)))
	assert.Equal(t, Applied, outcome)

	got := getToken(t, mem, token)
	assert.Equal(t, "0.5", got.CurrentPrice.String())
	assert.Equal(t, "2", got.Liquidity.String())
	assert.Equal(t, "500", got.MarketCap.String())
	assert.Equal(t, eth(2).String(), got.ReserveToken.String())
	assert.Equal(t, eth(1).String(), got.ReserveBNB.String())
	assert.Equal(t, poolP, got.AMMPoolAddress)
	assert.Equal(t, baseTS+10, got.UpdatedAt)
}

func TestReservesSyncedZeroTokenReserveKeepsPrice(t *testing.T) {
	token := tokenAddr(1)
	e, mem := newTestEngine(t, Config{}, StaticPools{poolP: token})

	mustApply(t, e, launched(token, creatorA, 1, baseTS, 0, eth(1000)))
	mustApply(t, e, synced(poolP, 2, baseTS+10, 0, eth(4), eth(1)))
	before := getToken(t, mem, token)

	outcome := mustApply(t, e, synced(poolP, 3, baseTS+20, 0, big.NewInt(0), eth(7)))
	assert.Equal(t, Skipped, outcome)

	after := getToken(t, mem, token)
	assert.Equal(t, "0.25", after.CurrentPrice.String())
	assert.Equal(t, before.ReserveBNB.String(), after.ReserveBNB.String())
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestReservesSyncedSkips(t *testing.T) {
	token := tokenAddr(1)

	t.Run("unmapped pool", func(t *testing.T) {
		e, mem := newTestEngine(t, Config{}, nil)
		mustApply(t, e, launched(token, creatorA, 1, baseTS, 0, eth(1000)))
		assert.Equal(t, Skipped, mustApply(t, e, synced(poolP, 2, baseTS+1, 0, eth(2), eth(1))))
		assert.True(t, getToken(t, mem, token).CurrentPrice.IsZero())
	})

	t.Run("unknown token", func(t *testing.T) {
		e, mem := newTestEngine(t, Config{}, StaticPools{poolP: token})
		assert.Equal(t, Skipped, mustApply(t, e, synced(poolP, 2, baseTS+1, 0, eth(2), eth(1))))
		tokens, _, _ := mem.Counts()
		assert.Zero(t, tokens)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		e, mem := newTestEngine(t, Config{}, StaticPools{poolP: token})
		mustApply(t, e, launched(token, creatorA, 1, baseTS, 0, eth(1000)))
		assert.Equal(t, Skipped, mustApply(t, e, synced(poolP, 2, baseTS-1, 0, eth(2), eth(1))))
		assert.True(t, getToken(t, mem, token).CurrentPrice.IsZero())
	})
}

type failingResolver struct{ err error }

func (f failingResolver) ResolvePool(context.Context, string) (string, bool, error) {
	return "", false, f.err
}

func TestReservesSyncedResolverError(t *testing.T) {
	boom := errors.New("rpc down")
	e, _ := newTestEngine(t, Config{}, failingResolver{err: boom})

	_, err := e.Apply(context.Background(), synced(poolP, 2, baseTS, 0, eth(2), eth(1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidEvent)
}

func TestDayBoundaryResetsTodayCounters(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	start := (baseTS / day) * day

	mustApply(t, e, launched(tokenAddr(1), creatorA, 1, start+10, 0, eth(1)))
	mustApply(t, e, launched(tokenAddr(2), creatorA, 2, start+day-1, 0, eth(1)))

	st := getStats(t, mem)
	assert.Equal(t, uint64(2), st.TokensToday)
	assert.Equal(t, uint64(2), st.TransactionsToday)

	mustApply(t, e, launched(tokenAddr(3), creatorB, 3, start+day, 0, eth(1)))

	st = getStats(t, mem)
	assert.Equal(t, uint64(3), st.TotalTokens)
	assert.Equal(t, uint64(3), st.TotalTransactions)
	assert.Equal(t, uint64(1), st.TokensToday)
	assert.Equal(t, uint64(1), st.TransactionsToday)
	assert.False(t, st.VolumeToday.Valid)
	assert.Equal(t, start+day, st.LastUpdated)
}

func TestExternalTokenPolicy(t *testing.T) {
	ext := model.ExternalTokenRegistered{
		EventMeta: meta("0x00000000000000000000000000000000000000f0", 4, baseTS+5, 2),
		Token:     "0x00000000000000000000000000000000000000EE",
		Registrar: creatorB,
		Name:      "External",
		Symbol:    "EXT",
	}

	t.Run("not counted", func(t *testing.T) {
		e, mem := newTestEngine(t, Config{}, nil)
		mustApply(t, e, launched(tokenAddr(1), creatorA, 1, baseTS, 0, eth(1)))
		assert.Equal(t, Applied, mustApply(t, e, ext))

		got := getToken(t, mem, "0x00000000000000000000000000000000000000ee")
		assert.Equal(t, 0, got.TotalSupply.Sign())
		assert.Equal(t, creatorB, got.CreatorID)
		assert.Equal(t, uint64(1), getUser(t, mem, creatorB).TokensCreated)

		_, _, txs := mem.Counts()
		assert.Equal(t, 1, txs)
		st := getStats(t, mem)
		assert.Equal(t, uint64(1), st.TotalTokens)
		assert.Equal(t, uint64(1), st.TotalTransactions)
		assert.Equal(t, baseTS, st.LastUpdated)

		assert.Equal(t, Duplicate, mustApply(t, e, ext))
		assert.Equal(t, uint64(1), getUser(t, mem, creatorB).TokensCreated)
	})

	t.Run("counted", func(t *testing.T) {
		e, mem := newTestEngine(t, Config{CountExternalTokens: true}, nil)
		mustApply(t, e, ext)

		st := getStats(t, mem)
		assert.Equal(t, uint64(1), st.TotalTokens)
		assert.Equal(t, uint64(1), st.TokensToday)
		assert.Equal(t, uint64(0), st.TotalTransactions)
		assert.Equal(t, uint64(1), st.TotalUsers)
	})
}

func TestDistinctUserPolicy(t *testing.T) {
	e, mem := newTestEngine(t, Config{Users: stats.UsersDistinct}, nil)

	mustApply(t, e, launched(tokenAddr(1), creatorA, 1, baseTS, 0, eth(1)))
	mustApply(t, e, launched(tokenAddr(2), creatorA, 2, baseTS+1, 0, eth(1)))
	mustApply(t, e, launched(tokenAddr(3), creatorB, 3, baseTS+2, 0, eth(1)))
	mustApply(t, e, bought(poolP, traderC, 4, baseTS+3, 0))
	mustApply(t, e, bought(poolP, traderC, 5, baseTS+4, 0))

	st := getStats(t, mem)
	_, users, _ := mem.Counts()
	assert.Equal(t, uint64(users), st.TotalUsers)
	assert.Equal(t, uint64(3), st.TotalUsers)
	assert.Equal(t, uint64(3), st.TotalTransactions)
}

func TestFirstLaunchUserPolicy(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)

	mustApply(t, e, launched(tokenAddr(1), creatorA, 1, baseTS, 0, eth(1)))
	mustApply(t, e, launched(tokenAddr(2), creatorB, 2, baseTS+1, 0, eth(1)))

	assert.Equal(t, uint64(1), getStats(t, mem).TotalUsers)
}

func TestInvalidEventsAreRejected(t *testing.T) {
	cases := map[string]model.Event{
		"nil supply":       launched(tokenAddr(1), creatorA, 1, baseTS, 0, nil),
		"negative supply":  launched(tokenAddr(1), creatorA, 1, baseTS, 0, big.NewInt(-1)),
		"bad token":        launched("0xnope", creatorA, 1, baseTS, 0, eth(1)),
		"bad creator":      launched(tokenAddr(1), "creator", 1, baseTS, 0, eth(1)),
		"negative trade":   model.TokenSold{EventMeta: meta(poolP, 1, baseTS, 0), Trade: model.Trade{Trader: traderC, TokenAmount: big.NewInt(-5), BNBAmount: eth(1)}},
		"bad trader":       model.TokenPurchased{EventMeta: meta(poolP, 1, baseTS, 0), Trade: model.Trade{Trader: "", TokenAmount: eth(1), BNBAmount: eth(1)}},
		"oversized bnb":    model.TokenPurchased{EventMeta: meta(poolP, 1, baseTS, 0), Trade: model.Trade{Trader: traderC, TokenAmount: eth(1), BNBAmount: new(big.Int).Lsh(big.NewInt(1), 256)}},
		"missing reserve":  synced(poolP, 1, baseTS, 0, eth(1), nil),
		"transfer no to":   model.Transfer{EventMeta: meta(tokenAddr(1), 1, baseTS, 0), From: creatorA, To: "", Value: eth(1)},
		"approval nil val": model.Approval{EventMeta: meta(tokenAddr(1), 1, baseTS, 0), Owner: creatorA, Spender: traderC},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			e, mem := newTestEngine(t, Config{}, StaticPools{poolP: tokenAddr(1)})
			_, err := e.Apply(context.Background(), ev)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEvent)

			tokens, users, txs := mem.Counts()
			assert.Zero(t, tokens+users+txs)
		})
	}

	e, _ := newTestEngine(t, Config{}, nil)
	_, err := e.Apply(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestTransferAndApprovalAreObserved(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)

	outcome := mustApply(t, e, model.Transfer{EventMeta: meta(tokenAddr(1), 1, baseTS, 0), From: creatorA, To: traderC, Value: eth(3)})
	assert.Equal(t, Observed, outcome)
	outcome = mustApply(t, e, model.Approval{EventMeta: meta(tokenAddr(1), 1, baseTS, 1), Owner: creatorA, Spender: traderC, Value: eth(3)})
	assert.Equal(t, Observed, outcome)

	tokens, users, txs := mem.Counts()
	assert.Zero(t, tokens+users+txs)
	_, found, err := mem.GetStats(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Commit(context.Context, *store.ChangeSet) error { return f.err }

func TestCommitFailureLeavesEventUnapplied(t *testing.T) {
	boom := errors.New("connection reset")
	mem := store.NewMemory()
	e := NewEngine(failingStore{Store: mem, err: boom}, nil, Config{}, nil, nil)

	_, err := e.Apply(context.Background(), launched(tokenAddr(1), creatorA, 1, baseTS, 0, eth(1)))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "TokenLaunched at 1:0")

	ok := NewEngine(mem, nil, Config{}, nil, nil)
	assert.Equal(t, Applied, mustApply(t, ok, launched(tokenAddr(1), creatorA, 1, baseTS, 0, eth(1))))
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	mem := store.NewMemory()
	e := NewEngine(mem, nil, Config{}, nil, metrics)
	ev := launched(tokenAddr(1), creatorA, 42, baseTS, 0, eth(1))
	mustApply(t, e, ev)
	mustApply(t, e, ev)
	mustApply(t, e, synced(poolP, 43, baseTS, 1, eth(1), eth(1)))

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	var lastBlock float64
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "launchpad_events_total":
				labels := map[string]string{}
				for _, lp := range m.GetLabel() {
					labels[lp.GetName()] = lp.GetValue()
				}
				counts[labels["kind"]+"/"+labels["outcome"]] = m.GetCounter().GetValue()
			case "launchpad_last_block":
				lastBlock = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), counts["TokenLaunched/applied"])
	assert.Equal(t, float64(1), counts["TokenLaunched/duplicate"])
	assert.Equal(t, float64(1), counts["ReservesSynced/skipped"])
	assert.Equal(t, float64(43), lastBlock)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestStaticPools(t *testing.T) {
	pools, err := NewStaticPools(map[string]string{
		"0x0000000000000000000000000000000000000FA1": "0x00000000000000000000000000000000000000AA",
	})
	require.NoError(t, err)

	token, ok, err := pools.ResolvePool(context.Background(), "0x0000000000000000000000000000000000000fa1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", token)

	_, err = NewStaticPools(map[string]string{"pool": "0x00000000000000000000000000000000000000AA"})
	assert.Error(t, err)
	_, err = NewStaticPools(map[string]string{poolP: "token"})
	assert.Error(t, err)
}

func TestChainedResolver(t *testing.T) {
	first := StaticPools{poolP: tokenAddr(1)}
	second := StaticPools{"0x0000000000000000000000000000000000000f02": tokenAddr(2)}
	chain := ChainedResolver{nil, first, second}

	token, ok, err := chain.ResolvePool(context.Background(), "0x0000000000000000000000000000000000000f02")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, tokenAddr(2), token)

	_, ok, err = chain.ResolvePool(context.Background(), "0x0000000000000000000000000000000000000f03")
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	_, _, err = ChainedResolver{failingResolver{err: boom}, first}.ResolvePool(context.Background(), poolP)
	assert.ErrorIs(t, err, boom)
}

func TestAmountsAreCopied(t *testing.T) {
	e, mem := newTestEngine(t, Config{}, nil)
	supply := eth(5)
	mustApply(t, e, launched(tokenAddr(1), creatorA, 1, baseTS, 0, supply))
	supply.SetInt64(1)

	assert.Equal(t, eth(5).String(), getToken(t, mem, tokenAddr(1)).TotalSupply.String())
	assert.Equal(t, "5.000000000000000000", numeric.FormatUnits(getToken(t, mem, tokenAddr(1)).TotalSupply, 18))
}

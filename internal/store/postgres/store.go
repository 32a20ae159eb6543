package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/retry"
	"launchpadIndexer/internal/store"
)

// Schema creates the entity and cursor tables. Amounts are NUMERIC so
// uint256 values and decimal prices round-trip without loss.
const Schema = `
CREATE TABLE IF NOT EXISTS tokens (
	id                text PRIMARY KEY,
	address           text NOT NULL,
	name              text NOT NULL,
	symbol            text NOT NULL,
	decimals          smallint NOT NULL,
	total_supply      numeric(78,0) NOT NULL,
	current_price     numeric NOT NULL,
	price_change_24h  numeric NOT NULL,
	volume_24h        numeric NOT NULL,
	volume_usd_24h    numeric,
	market_cap        numeric NOT NULL,
	liquidity         numeric NOT NULL,
	reserve_token     numeric(78,0) NOT NULL,
	reserve_bnb       numeric(78,0) NOT NULL,
	amm_pool_address  text,
	creator_id        text NOT NULL,
	is_active         boolean NOT NULL,
	transaction_count bigint NOT NULL,
	holder_count      bigint NOT NULL,
	launched_at       bigint NOT NULL,
	created_at        bigint NOT NULL,
	updated_at        bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id                   text PRIMARY KEY,
	total_transactions   bigint NOT NULL,
	tokens_created       bigint NOT NULL,
	tokens_traded        bigint NOT NULL,
	total_volume_usd     numeric,
	first_transaction_at bigint NOT NULL,
	last_transaction_at  bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id           text PRIMARY KEY,
	block_number bigint NOT NULL,
	timestamp    bigint NOT NULL,
	tx_hash      text NOT NULL,
	log_index    bigint NOT NULL,
	token_id     text NOT NULL,
	user_id      text NOT NULL,
	tx_type      text NOT NULL,
	token_amount numeric(78,0) NOT NULL,
	bnb_amount   numeric(78,0) NOT NULL,
	from_amount  numeric(78,0) NOT NULL,
	to_amount    numeric(78,0) NOT NULL,
	amount_usd   numeric,
	price_usd    numeric
);

CREATE TABLE IF NOT EXISTS launchpad_stats (
	id                 text PRIMARY KEY,
	total_tokens       bigint NOT NULL,
	total_transactions bigint NOT NULL,
	total_users        bigint NOT NULL,
	total_volume_usd   numeric,
	tokens_today       bigint NOT NULL,
	transactions_today bigint NOT NULL,
	volume_today       numeric,
	last_updated       bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS indexer_state (
	name           text PRIMARY KEY,
	last_block     bigint NOT NULL,
	last_log_index bigint NOT NULL,
	updated_at     timestamptz NOT NULL
);
`

// Store persists launchpad entities in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, id string) (model.Token, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, address, name, symbol, decimals, total_supply::text,
			current_price::text, price_change_24h::text, volume_24h::text, volume_usd_24h::text,
			market_cap::text, liquidity::text, reserve_token::text, reserve_bnb::text,
			amm_pool_address, creator_id, is_active, transaction_count, holder_count,
			launched_at, created_at, updated_at
		FROM tokens WHERE id=$1`, id)

	var (
		t                                                   model.Token
		decimals                                            int16
		supply, price, change, volume, marketCap, liquidity string
		reserveToken, reserveBNB                            string
		volumeUSD, pool                                     *string
		txCount, holders, launchedAt, createdAt, updatedAt  int64
	)
	err := row.Scan(&t.ID, &t.Address, &t.Name, &t.Symbol, &decimals, &supply,
		&price, &change, &volume, &volumeUSD, &marketCap, &liquidity, &reserveToken, &reserveBNB,
		&pool, &t.CreatorID, &t.IsActive, &txCount, &holders, &launchedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Token{}, false, nil
		}
		return model.Token{}, false, fmt.Errorf("get token %s: %w", id, err)
	}

	var p parser
	t.Decimals = uint8(decimals)
	t.TotalSupply = p.integer(supply)
	t.CurrentPrice = p.decimal(price)
	t.PriceChange24h = p.decimal(change)
	t.Volume24h = p.decimal(volume)
	t.VolumeUSD24h = p.nullDecimal(volumeUSD)
	t.MarketCap = p.decimal(marketCap)
	t.Liquidity = p.decimal(liquidity)
	t.ReserveToken = p.integer(reserveToken)
	t.ReserveBNB = p.integer(reserveBNB)
	if pool != nil {
		t.AMMPoolAddress = *pool
	}
	t.TransactionCount = uint64(txCount)
	t.HolderCount = uint64(holders)
	t.LaunchedAt = uint64(launchedAt)
	t.CreatedAt = uint64(createdAt)
	t.UpdatedAt = uint64(updatedAt)
	if p.err != nil {
		return model.Token{}, false, fmt.Errorf("get token %s: %w", id, p.err)
	}
	return t, true, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, total_transactions, tokens_created, tokens_traded, total_volume_usd::text,
			first_transaction_at, last_transaction_at
		FROM users WHERE id=$1`, id)

	var (
		u                      model.User
		total, created, traded int64
		first, last            int64
		volume                 *string
	)
	if err := row.Scan(&u.ID, &total, &created, &traded, &volume, &first, &last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, false, nil
		}
		return model.User{}, false, fmt.Errorf("get user %s: %w", id, err)
	}

	var p parser
	u.TotalTransactions = uint64(total)
	u.TokensCreated = uint64(created)
	u.TokensTraded = uint64(traded)
	u.TotalVolumeUSD = p.nullDecimal(volume)
	u.FirstTransactionAt = uint64(first)
	u.LastTransactionAt = uint64(last)
	if p.err != nil {
		return model.User{}, false, fmt.Errorf("get user %s: %w", id, p.err)
	}
	return u, true, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (model.Transaction, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, block_number, timestamp, tx_hash, log_index, token_id, user_id, tx_type,
			token_amount::text, bnb_amount::text, from_amount::text, to_amount::text,
			amount_usd::text, price_usd::text
		FROM transactions WHERE id=$1`, id)

	var (
		tx                               model.Transaction
		block, ts, logIndex              int64
		txType                           string
		tokenAmount, bnbAmount, from, to string
		amountUSD, priceUSD              *string
	)
	err := row.Scan(&tx.ID, &block, &ts, &tx.TxHash, &logIndex, &tx.TokenID, &tx.UserID, &txType,
		&tokenAmount, &bnbAmount, &from, &to, &amountUSD, &priceUSD)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, false, nil
		}
		return model.Transaction{}, false, fmt.Errorf("get transaction %s: %w", id, err)
	}

	var p parser
	tx.BlockNumber = uint64(block)
	tx.Timestamp = uint64(ts)
	tx.LogIndex = uint64(logIndex)
	tx.TxType = model.TxType(txType)
	tx.TokenAmount = p.integer(tokenAmount)
	tx.BNBAmount = p.integer(bnbAmount)
	tx.FromAmount = p.integer(from)
	tx.ToAmount = p.integer(to)
	tx.AmountUSD = p.nullDecimal(amountUSD)
	tx.PriceUSD = p.nullDecimal(priceUSD)
	if p.err != nil {
		return model.Transaction{}, false, fmt.Errorf("get transaction %s: %w", id, p.err)
	}
	return tx, true, nil
}

func (s *Store) GetStats(ctx context.Context) (model.LaunchpadStats, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, total_tokens, total_transactions, total_users, total_volume_usd::text,
			tokens_today, transactions_today, volume_today::text, last_updated
		FROM launchpad_stats WHERE id=$1`, model.StatsID)

	var (
		st                                      model.LaunchpadStats
		tokens, txs, users, tokensToday, txsDay int64
		lastUpdated                             int64
		volume, volumeToday                     *string
	)
	err := row.Scan(&st.ID, &tokens, &txs, &users, &volume, &tokensToday, &txsDay, &volumeToday, &lastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LaunchpadStats{}, false, nil
		}
		return model.LaunchpadStats{}, false, fmt.Errorf("get stats: %w", err)
	}

	var p parser
	st.TotalTokens = uint64(tokens)
	st.TotalTransactions = uint64(txs)
	st.TotalUsers = uint64(users)
	st.TotalVolumeUSD = p.nullDecimal(volume)
	st.TokensToday = uint64(tokensToday)
	st.TransactionsToday = uint64(txsDay)
	st.VolumeToday = p.nullDecimal(volumeToday)
	st.LastUpdated = uint64(lastUpdated)
	if p.err != nil {
		return model.LaunchpadStats{}, false, fmt.Errorf("get stats: %w", p.err)
	}
	return st, true, nil
}

// Commit writes the change set inside one database transaction.
func (s *Store) Commit(ctx context.Context, cs *store.ChangeSet) error {
	if cs.Empty() {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range cs.Tokens {
		batch.Queue(`
			INSERT INTO tokens (
				id, address, name, symbol, decimals, total_supply, current_price, price_change_24h,
				volume_24h, volume_usd_24h, market_cap, liquidity, reserve_token, reserve_bnb,
				amm_pool_address, creator_id, is_active, transaction_count, holder_count,
				launched_at, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
			ON CONFLICT (id) DO UPDATE SET
				address = EXCLUDED.address,
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				decimals = EXCLUDED.decimals,
				total_supply = EXCLUDED.total_supply,
				current_price = EXCLUDED.current_price,
				price_change_24h = EXCLUDED.price_change_24h,
				volume_24h = EXCLUDED.volume_24h,
				volume_usd_24h = EXCLUDED.volume_usd_24h,
				market_cap = EXCLUDED.market_cap,
				liquidity = EXCLUDED.liquidity,
				reserve_token = EXCLUDED.reserve_token,
				reserve_bnb = EXCLUDED.reserve_bnb,
				amm_pool_address = EXCLUDED.amm_pool_address,
				creator_id = EXCLUDED.creator_id,
				is_active = EXCLUDED.is_active,
				transaction_count = EXCLUDED.transaction_count,
				holder_count = EXCLUDED.holder_count,
				launched_at = EXCLUDED.launched_at,
				created_at = EXCLUDED.created_at,
				updated_at = EXCLUDED.updated_at
		`,
			t.ID, t.Address, t.Name, t.Symbol, int16(t.Decimals), intText(t.TotalSupply),
			t.CurrentPrice.String(), t.PriceChange24h.String(), t.Volume24h.String(), nullDecimalText(t.VolumeUSD24h),
			t.MarketCap.String(), t.Liquidity.String(), intText(t.ReserveToken), intText(t.ReserveBNB),
			optionalText(t.AMMPoolAddress), t.CreatorID, t.IsActive, int64(t.TransactionCount), int64(t.HolderCount),
			int64(t.LaunchedAt), int64(t.CreatedAt), int64(t.UpdatedAt),
		)
	}
	for _, u := range cs.Users {
		batch.Queue(`
			INSERT INTO users (
				id, total_transactions, tokens_created, tokens_traded, total_volume_usd,
				first_transaction_at, last_transaction_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET
				total_transactions = EXCLUDED.total_transactions,
				tokens_created = EXCLUDED.tokens_created,
				tokens_traded = EXCLUDED.tokens_traded,
				total_volume_usd = EXCLUDED.total_volume_usd,
				first_transaction_at = EXCLUDED.first_transaction_at,
				last_transaction_at = EXCLUDED.last_transaction_at
		`,
			u.ID, int64(u.TotalTransactions), int64(u.TokensCreated), int64(u.TokensTraded),
			nullDecimalText(u.TotalVolumeUSD), int64(u.FirstTransactionAt), int64(u.LastTransactionAt),
		)
	}
	for _, tx := range cs.Transactions {
		batch.Queue(`
			INSERT INTO transactions (
				id, block_number, timestamp, tx_hash, log_index, token_id, user_id, tx_type,
				token_amount, bnb_amount, from_amount, to_amount, amount_usd, price_usd
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (id) DO NOTHING
		`,
			tx.ID, int64(tx.BlockNumber), int64(tx.Timestamp), tx.TxHash, int64(tx.LogIndex),
			tx.TokenID, tx.UserID, string(tx.TxType),
			intText(tx.TokenAmount), intText(tx.BNBAmount), intText(tx.FromAmount), intText(tx.ToAmount),
			nullDecimalText(tx.AmountUSD), nullDecimalText(tx.PriceUSD),
		)
	}
	if st := cs.Stats; st != nil {
		batch.Queue(`
			INSERT INTO launchpad_stats (
				id, total_tokens, total_transactions, total_users, total_volume_usd,
				tokens_today, transactions_today, volume_today, last_updated
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO UPDATE SET
				total_tokens = EXCLUDED.total_tokens,
				total_transactions = EXCLUDED.total_transactions,
				total_users = EXCLUDED.total_users,
				total_volume_usd = EXCLUDED.total_volume_usd,
				tokens_today = EXCLUDED.tokens_today,
				transactions_today = EXCLUDED.transactions_today,
				volume_today = EXCLUDED.volume_today,
				last_updated = EXCLUDED.last_updated
		`,
			model.StatsID, int64(st.TotalTokens), int64(st.TotalTransactions), int64(st.TotalUsers),
			nullDecimalText(st.TotalVolumeUSD), int64(st.TokensToday), int64(st.TransactionsToday),
			nullDecimalText(st.VolumeToday), int64(st.LastUpdated),
		)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("commit change set: %w", err)
			}
		}
		return br.Close()
	})
	return classify(err)
}

// classify marks data exceptions (class 22) and integrity violations
// (class 23) as permanent; repeating the same change set cannot fix them.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
		return retry.Permanent(err)
	}
	return err
}

// LoadState returns the last applied stream position for a name.
func (s *Store) LoadState(ctx context.Context, name string) (model.Position, bool, error) {
	if name == "" {
		return model.Position{}, false, fmt.Errorf("state name required")
	}
	var block, logIndex int64
	row := s.pool.QueryRow(ctx, `SELECT last_block, last_log_index FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block, &logIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Position{}, false, nil
		}
		return model.Position{}, false, err
	}
	return model.Position{Block: uint64(block), LogIndex: uint64(logIndex)}, true, nil
}

// SaveState upserts the last applied stream position for a name.
func (s *Store) SaveState(ctx context.Context, name string, pos model.Position) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_block, last_log_index, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_block = EXCLUDED.last_block, last_log_index = EXCLUDED.last_log_index, updated_at = now()
	`, name, int64(pos.Block), int64(pos.LogIndex))
	return err
}

func intText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func nullDecimalText(v decimal.NullDecimal) *string {
	if !v.Valid {
		return nil
	}
	text := v.Decimal.String()
	return &text
}

func optionalText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// parser keeps the first conversion error so row mapping stays linear.
type parser struct {
	err error
}

func (p *parser) integer(text string) *big.Int {
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		if p.err == nil {
			p.err = fmt.Errorf("parse integer %q", text)
		}
		return new(big.Int)
	}
	return v
}

func (p *parser) decimal(text string) decimal.Decimal {
	v, err := decimal.NewFromString(text)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("parse decimal %q: %w", text, err)
		}
		return decimal.Zero
	}
	return v
}

func (p *parser) nullDecimal(text *string) decimal.NullDecimal {
	if text == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: p.decimal(*text), Valid: true}
}

// Package reducer turns ordered launchpad events into Token, User,
// Transaction and LaunchpadStats updates. Each event is a read-modify-write
// cycle against a store.Store whose writes are committed as one ChangeSet.
package reducer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/numeric"
	"launchpadIndexer/internal/stats"
	"launchpadIndexer/internal/store"
)

// ErrInvalidEvent marks a payload that can never be applied. The stream must
// not advance past it.
var ErrInvalidEvent = errors.New("invalid event")

// Outcome describes what Apply did with an event.
type Outcome string

const (
	Applied   Outcome = "applied"
	Duplicate Outcome = "duplicate"
	Skipped   Outcome = "skipped"
	Observed  Outcome = "observed"
)

// Config holds the policy switches left open by the event model.
type Config struct {
	// CountExternalTokens adds registered external tokens to totalTokens.
	CountExternalTokens bool
	// Users selects how LaunchpadStats.totalUsers is maintained.
	Users stats.UserPolicy
}

// Engine dispatches events to their reducers. It is not safe for concurrent
// use; events must be applied one at a time in stream order.
type Engine struct {
	store   store.Store
	pools   PoolResolver
	cfg     Config
	acc     stats.Accumulator
	logger  *zap.Logger
	metrics *Metrics
}

func NewEngine(st store.Store, pools PoolResolver, cfg Config, logger *zap.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pools == nil {
		pools = StaticPools{}
	}
	if cfg.Users == "" {
		cfg.Users = stats.UsersFirstLaunch
	}
	return &Engine{
		store:   st,
		pools:   pools,
		cfg:     cfg,
		acc:     stats.Accumulator{Users: cfg.Users},
		logger:  logger,
		metrics: metrics,
	}
}

// Apply runs the reducer for event to completion.
func (e *Engine) Apply(ctx context.Context, event model.Event) (Outcome, error) {
	if event == nil {
		return "", fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}

	var (
		outcome Outcome
		err     error
	)
	switch ev := event.(type) {
	case model.TokenLaunched:
		outcome, err = e.applyTokenLaunched(ctx, ev)
	case model.ExternalTokenRegistered:
		outcome, err = e.applyExternalToken(ctx, ev)
	case model.TokenPurchased:
		outcome, err = e.applyTrade(ctx, ev.EventMeta, model.TxBuy, ev.Trade)
	case model.TokenSold:
		outcome, err = e.applyTrade(ctx, ev.EventMeta, model.TxSell, ev.Trade)
	case model.ReservesSynced:
		outcome, err = e.applyReservesSynced(ctx, ev)
	case model.Transfer:
		outcome, err = e.observeTransfer(ev)
	case model.Approval:
		outcome, err = e.observeApproval(ev)
	default:
		err = fmt.Errorf("%w: unsupported event type %T", ErrInvalidEvent, event)
	}
	if err != nil {
		return "", fmt.Errorf("%s at %s: %w", event.Kind(), event.Meta().Position(), err)
	}

	e.metrics.observe(event.Kind(), outcome, event.Meta().BlockNumber)
	return outcome, nil
}

// TransactionID builds the unique Transaction key for an event.
func TransactionID(address string, timestamp, logIndex uint64) string {
	return fmt.Sprintf("%s-%d-%d", strings.ToLower(address), timestamp, logIndex)
}

// loadStats returns the stored singleton or a fresh one stamped at ts.
func (e *Engine) loadStats(ctx context.Context, ts uint64) (*model.LaunchpadStats, error) {
	current, found, err := e.store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return e.acc.Init(ts), nil
	}
	return &current, nil
}

// loadUser returns the stored user or a zero-valued one with created=true.
func (e *Engine) loadUser(ctx context.Context, id string, ts uint64) (model.User, bool, error) {
	user, found, err := e.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, false, err
	}
	if found {
		return user, false, nil
	}
	return model.User{
		ID:                 id,
		TotalVolumeUSD:     numeric.Unpriced(),
		FirstTransactionAt: ts,
		LastTransactionAt:  ts,
	}, true, nil
}

func normalizeID(address string) string {
	return strings.ToLower(address)
}

func touchUser(user *model.User, ts uint64) {
	if ts > user.LastTransactionAt {
		user.LastTransactionAt = ts
	}
}

func requireAddress(field, value string) error {
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%w: %s is not an address: %q", ErrInvalidEvent, field, value)
	}
	return nil
}

func requireAmount(field string, value *big.Int) error {
	if err := numeric.CheckUint256(value); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidEvent, field, err)
	}
	return nil
}

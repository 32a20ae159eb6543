package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/retry"
)

// Retrying wraps a Store and retries failed calls with exponential backoff.
// Commit is retried as a whole, which is safe because backends apply a
// ChangeSet atomically.
type Retrying struct {
	next       Store
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewRetrying(next Store, maxRetries int, backoff time.Duration, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

var _ Store = (*Retrying)(nil)

func (r *Retrying) GetToken(ctx context.Context, id string) (model.Token, bool, error) {
	var (
		token model.Token
		found bool
	)
	err := r.do(ctx, "get token", func(ctx context.Context) error {
		var err error
		token, found, err = r.next.GetToken(ctx, id)
		return err
	})
	return token, found, err
}

func (r *Retrying) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	var (
		user  model.User
		found bool
	)
	err := r.do(ctx, "get user", func(ctx context.Context) error {
		var err error
		user, found, err = r.next.GetUser(ctx, id)
		return err
	})
	return user, found, err
}

func (r *Retrying) GetTransaction(ctx context.Context, id string) (model.Transaction, bool, error) {
	var (
		tx    model.Transaction
		found bool
	)
	err := r.do(ctx, "get transaction", func(ctx context.Context) error {
		var err error
		tx, found, err = r.next.GetTransaction(ctx, id)
		return err
	})
	return tx, found, err
}

func (r *Retrying) GetStats(ctx context.Context) (model.LaunchpadStats, bool, error) {
	var (
		stats model.LaunchpadStats
		found bool
	)
	err := r.do(ctx, "get stats", func(ctx context.Context) error {
		var err error
		stats, found, err = r.next.GetStats(ctx)
		return err
	})
	return stats, found, err
}

func (r *Retrying) Commit(ctx context.Context, cs *ChangeSet) error {
	return r.do(ctx, "commit", func(ctx context.Context) error {
		return r.next.Commit(ctx, cs)
	})
}

func (r *Retrying) do(ctx context.Context, op string, fn func(context.Context) error) error {
	return retry.Do(ctx, r.maxRetries, r.backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			r.logger.Warn("store call failed", zap.String("op", op), zap.Error(err))
		}
		return err
	})
}

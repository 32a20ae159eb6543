// Package store defines the entity store the reducers read from and commit to.
package store

import (
	"context"

	"launchpadIndexer/internal/model"
)

// Reader looks up entities by primary key. A missing entity is reported with
// found=false and a nil error.
type Reader interface {
	GetToken(ctx context.Context, id string) (model.Token, bool, error)
	GetUser(ctx context.Context, id string) (model.User, bool, error)
	GetTransaction(ctx context.Context, id string) (model.Transaction, bool, error)
	GetStats(ctx context.Context) (model.LaunchpadStats, bool, error)
}

// Store is a Reader that can commit one event's writes as a unit.
type Store interface {
	Reader
	// Commit applies every write in cs or none of them. Transactions are
	// insert-only: an id that already exists keeps its stored value.
	Commit(ctx context.Context, cs *ChangeSet) error
}

// ChangeSet stages the writes produced by one event.
type ChangeSet struct {
	Tokens       []model.Token
	Users        []model.User
	Transactions []model.Transaction
	Stats        *model.LaunchpadStats
}

func (cs *ChangeSet) PutToken(token model.Token) {
	cs.Tokens = append(cs.Tokens, token)
}

func (cs *ChangeSet) PutUser(user model.User) {
	cs.Users = append(cs.Users, user)
}

func (cs *ChangeSet) AddTransaction(tx model.Transaction) {
	cs.Transactions = append(cs.Transactions, tx)
}

func (cs *ChangeSet) PutStats(stats model.LaunchpadStats) {
	cs.Stats = &stats
}

// Empty reports whether there is nothing to commit.
func (cs *ChangeSet) Empty() bool {
	return cs == nil || (len(cs.Tokens) == 0 && len(cs.Users) == 0 && len(cs.Transactions) == 0 && cs.Stats == nil)
}

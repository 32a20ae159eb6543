// Package redisstore keeps launchpad entities in Redis as JSON values.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/store"
)

const defaultPrefix = "launchpad"

// Store implements store.Store on a Redis client. Commit runs in MULTI/EXEC.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ store.Store = (*Store)(nil)

// NewStore dials a single Redis node.
func NewStore(addr, password string, db int, prefix string) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(client, prefix)
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) tokenKey(id string) string { return fmt.Sprintf("%s:token:%s", s.prefix, id) }
func (s *Store) userKey(id string) string { return fmt.Sprintf("%s:user:%s", s.prefix, id) }
func (s *Store) txKey(id string) string { return fmt.Sprintf("%s:tx:%s", s.prefix, id) }
func (s *Store) statsKey() string { return fmt.Sprintf("%s:stats:%s", s.prefix, model.StatsID) }
func (s *Store) stateKey(name string) string {
	return fmt.Sprintf("%s:state:%s", s.prefix, name)
}

func (s *Store) GetToken(ctx context.Context, id string) (model.Token, bool, error) {
	var token model.Token
	found, err := s.getJSON(ctx, s.tokenKey(id), &token)
	if err != nil {
		return model.Token{}, false, fmt.Errorf("get token %s: %w", id, err)
	}
	return token, found, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	var user model.User
	found, err := s.getJSON(ctx, s.userKey(id), &user)
	if err != nil {
		return model.User{}, false, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, found, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (model.Transaction, bool, error) {
	var tx model.Transaction
	found, err := s.getJSON(ctx, s.txKey(id), &tx)
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, found, nil
}

func (s *Store) GetStats(ctx context.Context) (model.LaunchpadStats, bool, error) {
	var stats model.LaunchpadStats
	found, err := s.getJSON(ctx, s.statsKey(), &stats)
	if err != nil {
		return model.LaunchpadStats{}, false, fmt.Errorf("get stats: %w", err)
	}
	return stats, found, nil
}

// Commit encodes every entity first so a marshal failure writes nothing.
func (s *Store) Commit(ctx context.Context, cs *store.ChangeSet) error {
	if cs.Empty() {
		return nil
	}

	type entry struct {
		key    string
		value  []byte
		insert bool
	}
	entries := make([]entry, 0, len(cs.Tokens)+len(cs.Users)+len(cs.Transactions)+1)
	add := func(key string, value interface{}, insert bool) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		entries = append(entries, entry{key: key, value: data, insert: insert})
		return nil
	}

	for _, t := range cs.Tokens {
		if err := add(s.tokenKey(t.ID), t, false); err != nil {
			return err
		}
	}
	for _, u := range cs.Users {
		if err := add(s.userKey(u.ID), u, false); err != nil {
			return err
		}
	}
	for _, tx := range cs.Transactions {
		if err := add(s.txKey(tx.ID), tx, true); err != nil {
			return err
		}
	}
	if cs.Stats != nil {
		if err := add(s.statsKey(), cs.Stats, false); err != nil {
			return err
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			if e.insert {
				pipe.SetNX(ctx, e.key, e.value, 0)
				continue
			}
			pipe.Set(ctx, e.key, e.value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit change set: %w", err)
	}
	return nil
}

// LoadState returns the last applied stream position for a name.
func (s *Store) LoadState(ctx context.Context, name string) (model.Position, bool, error) {
	if name == "" {
		return model.Position{}, false, fmt.Errorf("state name required")
	}
	var pos model.Position
	found, err := s.getJSON(ctx, s.stateKey(name), &pos)
	if err != nil {
		return model.Position{}, false, fmt.Errorf("load state: %w", err)
	}
	return pos, found, nil
}

// SaveState stores the last applied stream position for a name.
func (s *Store) SaveState(ctx context.Context, name string, pos model.Position) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.client.Set(ctx, s.stateKey(name), data, 0).Err()
}

func (s *Store) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

package store

import (
	"context"
	"sort"
	"sync"

	"launchpadIndexer/internal/model"
)

// Memory is an in-process Store. Values are copied on the way in and out.
type Memory struct {
	mu           sync.RWMutex
	tokens       map[string]model.Token
	users        map[string]model.User
	transactions map[string]model.Transaction
	stats        *model.LaunchpadStats
}

func NewMemory() *Memory {
	return &Memory{
		tokens:       make(map[string]model.Token),
		users:        make(map[string]model.User),
		transactions: make(map[string]model.Transaction),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) GetToken(_ context.Context, id string) (model.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[id]
	if !ok {
		return model.Token{}, false, nil
	}
	return token.Clone(), true, nil
}

func (m *Memory) GetUser(_ context.Context, id string) (model.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *Memory) GetTransaction(_ context.Context, id string) (model.Transaction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return model.Transaction{}, false, nil
	}
	return tx.Clone(), true, nil
}

func (m *Memory) GetStats(_ context.Context) (model.LaunchpadStats, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stats == nil {
		return model.LaunchpadStats{}, false, nil
	}
	return *m.stats, true, nil
}

func (m *Memory) Commit(_ context.Context, cs *ChangeSet) error {
	if cs.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, token := range cs.Tokens {
		m.tokens[token.ID] = token.Clone()
	}
	for _, user := range cs.Users {
		m.users[user.ID] = user
	}
	for _, tx := range cs.Transactions {
		if _, exists := m.transactions[tx.ID]; exists {
			continue
		}
		m.transactions[tx.ID] = tx.Clone()
	}
	if cs.Stats != nil {
		stats := *cs.Stats
		m.stats = &stats
	}
	return nil
}

// Tokens returns every stored token ordered by id.
func (m *Memory) Tokens() []model.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Token, 0, len(m.tokens))
	for _, token := range m.tokens {
		out = append(out, token.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transactions returns every stored transaction ordered by id.
func (m *Memory) Transactions() []model.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		out = append(out, tx.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts returns the number of tokens, users and transactions held.
func (m *Memory) Counts() (tokens, users, transactions int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens), len(m.users), len(m.transactions)
}

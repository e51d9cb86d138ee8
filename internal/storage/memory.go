package storage

import (
	"context"
	"sync"

	"ledger/internal/core"
)

// MemoryStore keeps accounts in a map behind one mutex. Every operation,
// transfers included, runs inside the critical section, which gives the same
// all-or-nothing visibility as the SQLite transaction without the file.
// State is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]int64)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) FindByOwner(ctx context.Context, ownerID string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.accounts[ownerID]
	if !ok {
		return core.Account{}, core.ErrAccountNotFound
	}
	return core.Account{OwnerID: ownerID, Balance: balance}, nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, ownerID string, initialBalance int64) (core.Account, error) {
	if initialBalance < 0 {
		return core.Account{}, core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[ownerID]; ok {
		return core.Account{}, core.ErrAccountExists
	}
	s.accounts[ownerID] = initialBalance
	return core.Account{OwnerID: ownerID, Balance: initialBalance}, nil
}

func (s *MemoryStore) AtomicIncrement(ctx context.Context, ownerID string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.accounts[ownerID]
	if !ok {
		return 0, core.ErrAccountNotFound
	}
	if balance+delta < 0 {
		return 0, core.ErrInsufficientBalance
	}
	s.accounts[ownerID] = balance + delta
	return balance + delta, nil
}

func (s *MemoryStore) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fromBalance, ok1 := s.accounts[from]
	_, ok2 := s.accounts[to]
	if !ok1 || !ok2 {
		return core.ErrAccountNotFound
	}
	if fromBalance < amount {
		return core.ErrInsufficientBalance
	}
	s.accounts[from] -= amount
	s.accounts[to] += amount
	return nil
}

func (s *MemoryStore) SumBalances(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, balance := range s.accounts {
		sum += balance
	}
	return sum, nil
}

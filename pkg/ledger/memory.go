package ledger

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store for tests and lite mode.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[string]int64)}
}

func (s *MemoryStore) CreateAccount(_ context.Context, accountID string, startingBalance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[accountID]; exists {
		return nil
	}
	s.balances[accountID] = startingBalance
	return nil
}

func (s *MemoryStore) Balance(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[accountID], nil
}

func (s *MemoryStore) TopUp(_ context.Context, accountID string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] += amount
	return nil
}

func (s *MemoryStore) ChargeIfAffordable(_ context.Context, accountID string, cost int64) error {
	if err := validateAmount(cost); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[accountID] < cost {
		return ErrInsufficientFunds
	}
	s.balances[accountID] -= cost
	return nil
}

func (s *MemoryStore) Refund(_ context.Context, accountID string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] += amount
	return nil
}

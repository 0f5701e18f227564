package store

import (
	"context"
	"sync"
	"time"

	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/participant/domain"
)

// InMemoryStore is a concurrency-safe AccountStore useful for unit tests
// and for running a participant without a database, grounded on the
// teacher's ledger.inMemoryLedger.
type InMemoryStore struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	commits  map[string]RecentCommit
}

// NewInMemoryStore builds an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[string]domain.Account),
		commits:  make(map[string]RecentCommit),
	}
}

// Seed inserts or overwrites an account, for test setup.
func (s *InMemoryStore) Seed(a domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.AccountID] = a
}

func commitKey(accountID, txID string) string { return txID + ":" + accountID }

// Get implements AccountStore.
func (s *InMemoryStore) Get(_ context.Context, accountID string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return a, nil
}

// TryLock implements AccountStore.
func (s *InMemoryStore) TryLock(_ context.Context, accountID, txID string, delta money.Money) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}

	if a.Locked() {
		if a.LockedBy(txID) {
			return a, nil
		}
		return domain.Account{}, ErrLockConflict
	}

	if delta.IsNegative() && a.Balance.Cmp(delta.Abs()) < 0 {
		return domain.Account{}, ErrInsufficientFunds
	}

	tx := txID
	d := delta
	a.LockHolder = &tx
	a.PendingDelta = &d
	a.UpdatedAt = time.Now().UTC()
	s.accounts[accountID] = a
	return a, nil
}

// GetLockedBy implements AccountStore.
func (s *InMemoryStore) GetLockedBy(_ context.Context, accountID, txID string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	if !a.LockedBy(txID) {
		return domain.Account{}, ErrLockConflict
	}
	return a, nil
}

// Commit implements AccountStore.
func (s *InMemoryStore) Commit(_ context.Context, accountID, txID string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	if !a.LockedBy(txID) {
		return domain.Account{}, ErrLockConflict
	}
	a.Balance = a.Balance.Add(*a.PendingDelta)
	a.LockHolder = nil
	a.PendingDelta = nil
	a.UpdatedAt = time.Now().UTC()
	s.accounts[accountID] = a
	return a, nil
}

// Abort implements AccountStore.
func (s *InMemoryStore) Abort(_ context.Context, accountID, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil
	}
	if !a.LockedBy(txID) {
		return nil
	}
	a.LockHolder = nil
	a.PendingDelta = nil
	a.UpdatedAt = time.Now().UTC()
	s.accounts[accountID] = a
	return nil
}

// RecordRecentCommit implements AccountStore.
func (s *InMemoryStore) RecordRecentCommit(_ context.Context, rc RecentCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := commitKey(rc.AccountID, rc.TransactionID)
	if _, exists := s.commits[key]; !exists {
		s.commits[key] = rc
	}
	return nil
}

// FindRecentCommit implements AccountStore.
func (s *InMemoryStore) FindRecentCommit(_ context.Context, accountID, txID string) (RecentCommit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, ok := s.commits[commitKey(accountID, txID)]
	return rc, ok, nil
}

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/participant/domain"
	"github.com/congo-pay/twopc/internal/participant/store"
)

func seededStore(balance float64) *store.InMemoryStore {
	s := store.NewInMemoryStore()
	s.Seed(domain.Account{AccountID: "A", OwnerID: "owner", Balance: money.FromFloat(balance)})
	return s
}

func TestTryLockRejectsUnknownAccount(t *testing.T) {
	s := store.NewInMemoryStore()
	_, err := s.TryLock(context.Background(), "missing", "tx-1", money.FromFloat(-10))
	require.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestTryLockRejectsInsufficientFunds(t *testing.T) {
	s := seededStore(10)
	_, err := s.TryLock(context.Background(), "A", "tx-1", money.FromFloat(-50))
	require.ErrorIs(t, err, store.ErrInsufficientFunds)
}

func TestTryLockSecondTransactionConflicts(t *testing.T) {
	s := seededStore(1000)
	_, err := s.TryLock(context.Background(), "A", "tx-1", money.FromFloat(-50))
	require.NoError(t, err)

	_, err = s.TryLock(context.Background(), "A", "tx-2", money.FromFloat(-50))
	require.ErrorIs(t, err, store.ErrLockConflict)
}

func TestTryLockSameTransactionIsIdempotent(t *testing.T) {
	s := seededStore(1000)
	first, err := s.TryLock(context.Background(), "A", "tx-1", money.FromFloat(-50))
	require.NoError(t, err)

	second, err := s.TryLock(context.Background(), "A", "tx-1", money.FromFloat(-50))
	require.NoError(t, err)
	require.Equal(t, first.PendingDelta.String(), second.PendingDelta.String())
}

func TestCommitRequiresMatchingLockHolder(t *testing.T) {
	s := seededStore(1000)
	_, err := s.TryLock(context.Background(), "A", "tx-1", money.FromFloat(-50))
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), "A", "tx-2")
	require.ErrorIs(t, err, store.ErrLockConflict)
}

func TestCommitAppliesDeltaAndReleasesLock(t *testing.T) {
	s := seededStore(1000)
	_, err := s.TryLock(context.Background(), "A", "tx-1", money.FromFloat(-50))
	require.NoError(t, err)

	acct, err := s.Commit(context.Background(), "A", "tx-1")
	require.NoError(t, err)
	require.Equal(t, "950.0000", acct.Balance.String())
	require.False(t, acct.Locked())
}

func TestAbortOnUnlockedAccountIsNoop(t *testing.T) {
	s := seededStore(1000)
	err := s.Abort(context.Background(), "A", "tx-never-locked")
	require.NoError(t, err)
}

func TestAbortOnUnknownAccountIsNoop(t *testing.T) {
	s := store.NewInMemoryStore()
	err := s.Abort(context.Background(), "missing", "tx-1")
	require.NoError(t, err)
}

func TestRecentCommitIsRecordedOnceAndFindable(t *testing.T) {
	s := seededStore(1000)
	rc := store.RecentCommit{TransactionID: "tx-1", AccountID: "A", NewBalance: money.FromFloat(950)}
	require.NoError(t, s.RecordRecentCommit(context.Background(), rc))

	found, ok, err := s.FindRecentCommit(context.Background(), "A", "tx-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "950.0000", found.NewBalance.String())

	_, ok, err = s.FindRecentCommit(context.Background(), "A", "tx-does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)
}

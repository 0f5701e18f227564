package store

import (
	"context"
	"errors"

	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/participant/domain"
)

// ErrAccountNotFound mirrors errtax.ErrAccountNotFound at the store
// boundary so store implementations do not need to import the service
// package's error taxonomy wiring.
var ErrAccountNotFound = errors.New("participant/store: account not found")

// ErrLockConflict is returned by TryLock when the account is already
// locked by a different transaction, or by Commit/GetLockedBy when the
// lock does not match the caller's transaction id.
var ErrLockConflict = errors.New("participant/store: lock conflict")

// ErrInsufficientFunds is returned by TryLock for a debit whose magnitude
// exceeds the unlocked balance.
var ErrInsufficientFunds = errors.New("participant/store: insufficient funds")

// RecentCommit is a row in the recent-commits table consulted by
// Commit when an account no longer holds the lock a retry expects — see
// spec §4.2 commit idempotence.
type RecentCommit struct {
	TransactionID string
	AccountID     string
	NewBalance    money.Money
}

// AccountStore is the persistence contract for the participant's account
// table (spec §6.3). Every lock-checking mutation (TryLock, Commit, Abort)
// performs its compare-and-set atomically (one database transaction holding
// the row lock, or one mutex section in memory) so two concurrent callers
// can never both observe a successful lock acquisition on the same account.
type AccountStore interface {
	// Get returns the current row, or ErrAccountNotFound.
	Get(ctx context.Context, accountID string) (domain.Account, error)

	// TryLock attempts to set lock_holder=txID and pending_delta=delta,
	// but only if the account is currently unlocked. On a fresh lock it
	// returns the updated account; if txID already holds the lock it
	// returns the account unchanged, with the previously stored
	// pending_delta. It returns ErrLockConflict if another transaction
	// holds the lock.
	TryLock(ctx context.Context, accountID, txID string, delta money.Money) (domain.Account, error)

	// GetLockedBy returns the account currently locked by txID. Returns
	// ErrLockConflict if the account is not locked by txID (including if
	// it is unlocked).
	GetLockedBy(ctx context.Context, accountID, txID string) (domain.Account, error)

	// Commit applies pending_delta to balance and clears the lock, but
	// only if the account is currently locked by exactly txID. Returns
	// ErrLockConflict otherwise.
	Commit(ctx context.Context, accountID, txID string) (domain.Account, error)

	// Abort clears the lock and pending_delta if the account is
	// currently locked by exactly txID. It is a silent no-op — never an
	// error — when the account is not locked by txID, per the abort
	// idempotence rule in spec §4.2.
	Abort(ctx context.Context, accountID, txID string) error

	// RecordRecentCommit persists the outcome of a successful commit so a
	// retried commit call that arrives after the lock has already been
	// released can still be answered idempotently.
	RecordRecentCommit(ctx context.Context, rc RecentCommit) error

	// FindRecentCommit looks up a previously recorded commit outcome.
	FindRecentCommit(ctx context.Context, accountID, txID string) (RecentCommit, bool, error)
}

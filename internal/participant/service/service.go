// Package service implements the participant's three 2PC verbs (spec §4.2)
// over an AccountStore.
package service

import (
	"context"
	"errors"

	"github.com/congo-pay/twopc/internal/errtax"
	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/participant/store"
	"github.com/congo-pay/twopc/internal/wire"
)

// Service owns the account store and enforces the per-account state
// machine described in spec §4.2.
type Service struct {
	accounts store.AccountStore
}

// New builds a Service.
func New(accounts store.AccountStore) *Service {
	return &Service{accounts: accounts}
}

// PrepareResult is the outcome of a Prepare call.
type PrepareResult struct {
	Vote           wire.Vote
	CurrentBalance money.Money
	PendingChange  money.Money
	Err            error // taxonomy sentinel explaining an abort vote, nil on commit
}

// signedAmount returns the signed delta implied by op and amount: negative
// for a debit, positive for a credit, per spec §4.2's sign convention.
func signedAmount(op wire.Operation, amount money.Money) (money.Money, error) {
	switch op {
	case wire.OperationDebit:
		if amount.IsNegative() {
			return amount, nil // already signed by the caller
		}
		return amount.Neg(), nil
	case wire.OperationCredit:
		if amount.IsNegative() {
			return money.Money{}, errtax.ErrInvalidArgument
		}
		return amount, nil
	default:
		return money.Money{}, errtax.ErrInvalidArgument
	}
}

// Prepare implements spec §4.2's Prepare verb.
func (s *Service) Prepare(ctx context.Context, txID, accountID string, op wire.Operation, amount money.Money) PrepareResult {
	delta, err := signedAmount(op, amount)
	if err != nil {
		return PrepareResult{Vote: wire.VoteAbort, Err: errtax.ErrInvalidArgument}
	}

	acct, err := s.accounts.TryLock(ctx, accountID, txID, delta)
	switch {
	case err == nil:
		// Either a fresh lock, or an idempotent re-prepare against our own tx.
		if acct.LockedBy(txID) && acct.PendingDelta != nil && acct.PendingDelta.Cmp(delta) != 0 {
			// Idempotent replay MUST carry the same parameters (spec §4.2).
			return PrepareResult{Vote: wire.VoteAbort, Err: errtax.ErrConflict}
		}
		return PrepareResult{
			Vote:           wire.VoteCommit,
			CurrentBalance: acct.Balance,
			PendingChange:  delta,
		}
	case errors.Is(err, store.ErrAccountNotFound):
		return PrepareResult{Vote: wire.VoteAbort, Err: errtax.ErrAccountNotFound}
	case errors.Is(err, store.ErrInsufficientFunds):
		return PrepareResult{Vote: wire.VoteAbort, Err: errtax.ErrInsufficientFunds}
	case errors.Is(err, store.ErrLockConflict):
		return PrepareResult{Vote: wire.VoteAbort, Err: errtax.ErrConflict}
	default:
		return PrepareResult{Vote: wire.VoteAbort, Err: err}
	}
}

// CommitResult is the outcome of a Commit call.
type CommitResult struct {
	NewBalance money.Money
	Err        error
}

// Commit implements spec §4.2's Commit verb, including the recent-commits
// idempotence fallback recommended for a lock that has already been
// released by a prior, successful commit of the same transaction.
func (s *Service) Commit(ctx context.Context, txID, accountID string) CommitResult {
	acct, err := s.accounts.Commit(ctx, accountID, txID)
	if err == nil {
		_ = s.accounts.RecordRecentCommit(ctx, store.RecentCommit{
			TransactionID: txID,
			AccountID:     accountID,
			NewBalance:    acct.Balance,
		})
		return CommitResult{NewBalance: acct.Balance}
	}

	if errors.Is(err, store.ErrLockConflict) {
		if rc, found, findErr := s.accounts.FindRecentCommit(ctx, accountID, txID); findErr == nil && found {
			return CommitResult{NewBalance: rc.NewBalance}
		}
		return CommitResult{Err: errtax.ErrConflict}
	}
	if errors.Is(err, store.ErrAccountNotFound) {
		return CommitResult{Err: errtax.ErrAccountNotFound}
	}
	return CommitResult{Err: err}
}

// Abort implements spec §4.2's Abort verb: always idempotent, always a
// success once the request itself is well-formed.
func (s *Service) Abort(ctx context.Context, txID, accountID string) error {
	if err := s.accounts.Abort(ctx, accountID, txID); err != nil {
		return err
	}
	return nil
}

// LockStatus reports whether accountID is currently locked by txID, for
// the reconciliation sweeper's POST /2pc/status extension.
func (s *Service) LockStatus(ctx context.Context, txID, accountID string) (locked bool, pending *money.Money, err error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return false, nil, errtax.ErrAccountNotFound
		}
		return false, nil, err
	}
	if acct.LockedBy(txID) {
		return true, acct.PendingDelta, nil
	}
	return false, nil, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/participant/domain"
)

// PostgresStore persists accounts and recent commit outcomes, grounded on
// the teacher's ledger.PostgresLedger.Transfer: a single pgx transaction
// takes SELECT ... FOR UPDATE row locks and folds the compare-and-set logic
// into ordinary application code before a single UPDATE and COMMIT, rather
// than expressing the CAS purely as a WHERE clause. The FOR UPDATE row lock
// is what makes the whole sequence race-free (spec §4.2's "single
// underlying data-store operation with predicate-based update").
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	var lockHolder *string
	var pendingDelta *money.Money
	if err := row.Scan(&a.AccountID, &a.OwnerID, &a.Balance, &lockHolder, &pendingDelta, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	a.LockHolder = lockHolder
	a.PendingDelta = pendingDelta
	return a, nil
}

const selectForUpdate = `SELECT account_id, owner_id, balance, lock_holder, pending_delta, created_at, updated_at
	FROM accounts WHERE account_id = $1 FOR UPDATE`

// Get implements AccountStore.
func (s *PostgresStore) Get(ctx context.Context, accountID string) (domain.Account, error) {
	const q = `SELECT account_id, owner_id, balance, lock_holder, pending_delta, created_at, updated_at
		FROM accounts WHERE account_id = $1`
	return scanAccount(s.db.QueryRow(ctx, q, accountID))
}

// TryLock implements AccountStore.
func (s *PostgresStore) TryLock(ctx context.Context, accountID, txID string, delta money.Money) (domain.Account, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Account{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	acct, err := scanAccount(tx.QueryRow(ctx, selectForUpdate, accountID))
	if err != nil {
		return domain.Account{}, err
	}

	if acct.Locked() {
		if acct.LockedBy(txID) {
			// Idempotent re-prepare: caller decides whether the delta matches.
			if err := tx.Commit(ctx); err != nil {
				return domain.Account{}, err
			}
			return acct, nil
		}
		return domain.Account{}, ErrLockConflict
	}

	if delta.IsNegative() && acct.Balance.Cmp(delta.Abs()) < 0 {
		return domain.Account{}, ErrInsufficientFunds
	}

	const upd = `UPDATE accounts SET lock_holder = $2, pending_delta = $3, updated_at = $4
		WHERE account_id = $1`
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, upd, accountID, txID, delta, now); err != nil {
		return domain.Account{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, err
	}

	acct.LockHolder = &txID
	acct.PendingDelta = &delta
	acct.UpdatedAt = now
	return acct, nil
}

// GetLockedBy implements AccountStore.
func (s *PostgresStore) GetLockedBy(ctx context.Context, accountID, txID string) (domain.Account, error) {
	acct, err := s.Get(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if !acct.LockedBy(txID) {
		return domain.Account{}, ErrLockConflict
	}
	return acct, nil
}

// Commit implements AccountStore.
func (s *PostgresStore) Commit(ctx context.Context, accountID, txID string) (domain.Account, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Account{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	acct, err := scanAccount(tx.QueryRow(ctx, selectForUpdate, accountID))
	if err != nil {
		return domain.Account{}, err
	}
	if !acct.LockedBy(txID) {
		return domain.Account{}, ErrLockConflict
	}

	newBalance := acct.Balance.Add(*acct.PendingDelta)
	const upd = `UPDATE accounts SET balance = $2, lock_holder = NULL, pending_delta = NULL, updated_at = $3
		WHERE account_id = $1`
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, upd, accountID, newBalance, now); err != nil {
		return domain.Account{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, err
	}

	acct.Balance = newBalance
	acct.LockHolder = nil
	acct.PendingDelta = nil
	acct.UpdatedAt = now
	return acct, nil
}

// Abort implements AccountStore.
func (s *PostgresStore) Abort(ctx context.Context, accountID, txID string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	acct, err := scanAccount(tx.QueryRow(ctx, selectForUpdate, accountID))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil // nothing to abort
		}
		return err
	}
	if !acct.LockedBy(txID) {
		return nil // idempotent no-op, spec §4.2
	}

	const upd = `UPDATE accounts SET lock_holder = NULL, pending_delta = NULL, updated_at = $2
		WHERE account_id = $1`
	if _, err := tx.Exec(ctx, upd, accountID, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RecordRecentCommit implements AccountStore.
func (s *PostgresStore) RecordRecentCommit(ctx context.Context, rc RecentCommit) error {
	const q = `INSERT INTO recent_commits (transaction_id, account_id, new_balance, committed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (transaction_id, account_id) DO NOTHING`
	_, err := s.db.Exec(ctx, q, rc.TransactionID, rc.AccountID, rc.NewBalance)
	return err
}

// FindRecentCommit implements AccountStore.
func (s *PostgresStore) FindRecentCommit(ctx context.Context, accountID, txID string) (RecentCommit, bool, error) {
	const q = `SELECT transaction_id, account_id, new_balance FROM recent_commits
		WHERE transaction_id = $1 AND account_id = $2`
	var rc RecentCommit
	err := s.db.QueryRow(ctx, q, txID, accountID).Scan(&rc.TransactionID, &rc.AccountID, &rc.NewBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RecentCommit{}, false, nil
		}
		return RecentCommit{}, false, fmt.Errorf("find recent commit: %w", err)
	}
	return rc, true, nil
}

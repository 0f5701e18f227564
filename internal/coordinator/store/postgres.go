package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/twopc/internal/coordinator/domain"
)

// PostgresStore backs TransactionStore with the coordinator's transactions
// table (spec §6.3), grounded on the teacher's ledger.PostgresLedger for
// scan/insert idiom, generalized to a log table instead of a balance table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(&t.TransactionID, &t.SourceAccountID, &t.DestinationAccountID, &t.Amount, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, ErrTransactionNotFound
		}
		return domain.Transaction{}, err
	}
	return t, nil
}

// Begin implements TransactionStore.
func (s *PostgresStore) Begin(ctx context.Context, txn domain.Transaction) (domain.Transaction, error) {
	if existing, err := s.Get(ctx, txn.TransactionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrTransactionNotFound) {
		return domain.Transaction{}, err
	}

	const q = `INSERT INTO transactions (transaction_id, source_account_id, destination_account_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING transaction_id, source_account_id, destination_account_id, amount, status, created_at, updated_at`
	now := time.Now().UTC()
	return scanTransaction(s.db.QueryRow(ctx, q, txn.TransactionID, txn.SourceAccountID, txn.DestinationAccountID, txn.Amount, domain.StatusPending, now))
}

// Finalize implements TransactionStore.
func (s *PostgresStore) Finalize(ctx context.Context, transactionID string, status domain.Status) (domain.Transaction, error) {
	const q = `UPDATE transactions SET status = $2, updated_at = $3
		WHERE transaction_id = $1 AND status = $4
		RETURNING transaction_id, source_account_id, destination_account_id, amount, status, created_at, updated_at`
	row := s.db.QueryRow(ctx, q, transactionID, status, time.Now().UTC(), domain.StatusPending)
	t, err := scanTransaction(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTransactionNotFound) {
		return domain.Transaction{}, err
	}
	// Already terminal (or missing): return the current row unchanged,
	// satisfying terminal monotonicity (spec §8 property 4) as a no-op.
	return s.Get(ctx, transactionID)
}

// Get implements TransactionStore.
func (s *PostgresStore) Get(ctx context.Context, transactionID string) (domain.Transaction, error) {
	const q = `SELECT transaction_id, source_account_id, destination_account_id, amount, status, created_at, updated_at
		FROM transactions WHERE transaction_id = $1`
	return scanTransaction(s.db.QueryRow(ctx, q, transactionID))
}

// PendingOlderThan implements TransactionStore.
func (s *PostgresStore) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	const q = `SELECT transaction_id, source_account_id, destination_account_id, amount, status, created_at, updated_at
		FROM transactions WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`
	rows, err := s.db.Query(ctx, q, domain.StatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// History implements TransactionStore, per §9's Open Question decision:
// UNION ALL, not UNION, since source_account_id != destination_account_id
// means a row can never match both branches for the same account.
func (s *PostgresStore) History(ctx context.Context, accountID string, limit, offset int) (HistoryPage, error) {
	const countQ = `SELECT count(*) FROM (
		SELECT transaction_id FROM transactions WHERE source_account_id = $1
		UNION ALL
		SELECT transaction_id FROM transactions WHERE destination_account_id = $1
	) matches`
	var total int
	if err := s.db.QueryRow(ctx, countQ, accountID).Scan(&total); err != nil {
		return HistoryPage{}, err
	}

	const q = `SELECT transaction_id, source_account_id, destination_account_id, amount, status, created_at, updated_at FROM (
		SELECT * FROM transactions WHERE source_account_id = $1
		UNION ALL
		SELECT * FROM transactions WHERE destination_account_id = $1
	) matches
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`
	rows, err := s.db.Query(ctx, q, accountID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return HistoryPage{}, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return HistoryPage{}, err
	}
	return HistoryPage{Transactions: out, Total: total}, nil
}

// Package store persists the coordinator's transaction log (spec §4.3).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/twopc/internal/coordinator/domain"
)

// ErrTransactionNotFound is returned when a transaction_id has no row.
var ErrTransactionNotFound = errors.New("coordinator/store: transaction not found")

// HistoryPage is one page of a paginated account history query.
type HistoryPage struct {
	Transactions []domain.Transaction
	Total        int
}

// TransactionStore is the persistence contract for the coordinator's
// transaction log. Begin is called before any prepare call goes out;
// Finalize is called exactly once, when the transfer reaches a terminal
// status (spec §3's "transitions exactly once to a terminal status").
type TransactionStore interface {
	// Begin inserts a pending row. If a row with this TransactionID
	// already exists (a client-supplied tx_id being retried) it is
	// returned unchanged instead of erroring, supporting end-to-end
	// idempotent retry (spec §6.2).
	Begin(ctx context.Context, txn domain.Transaction) (domain.Transaction, error)

	// Finalize sets status to a terminal value. It is a no-op, returning
	// the current row, if the row is already terminal (spec §8 property 4:
	// terminal monotonicity).
	Finalize(ctx context.Context, transactionID string, status domain.Status) (domain.Transaction, error)

	// Get returns the current row, or ErrTransactionNotFound.
	Get(ctx context.Context, transactionID string) (domain.Transaction, error)

	// PendingOlderThan lists pending rows whose created_at precedes cutoff,
	// for the reconciliation sweeper (spec §9).
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error)

	// History returns transactions where accountID is source or
	// destination, newest first, offset/limit paginated (spec §4.3, §6.2).
	History(ctx context.Context, accountID string, limit, offset int) (HistoryPage, error)
}

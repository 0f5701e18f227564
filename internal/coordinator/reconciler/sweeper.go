// Package reconciler implements the background sweeper described in spec
// §9 "Failure of coordinator": periodically scans pending transactions
// older than the transaction timeout and asks each participant for the
// lock status of that transaction id, aborting or closing the row
// accordingly. Shaped like the teacher's cmd/api/main.go graceful-shutdown
// goroutine: a ticker loop selecting on a done channel.
package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/congo-pay/twopc/internal/coordinator/domain"
	"github.com/congo-pay/twopc/internal/coordinator/store"
	"github.com/congo-pay/twopc/internal/coordinator/twophase"
	"github.com/congo-pay/twopc/internal/wire"
)

// ParticipantResolver maps an account id to the client for the participant
// deployment that owns it, letting the sweeper reach either side of a
// transaction without knowing deployment topology.
type ParticipantResolver interface {
	ClientFor(accountID string) twophase.ParticipantClient
}

// Sweeper periodically reconciles dangling pending transactions.
type Sweeper struct {
	txns               store.TransactionStore
	resolver           ParticipantResolver
	logger             *slog.Logger
	transactionTimeout time.Duration
	interval           time.Duration
}

// New builds a Sweeper. interval controls how often the sweep runs;
// transactionTimeout is the advisory age (spec §6.4 transaction_timeout)
// past which a pending row is considered dangling.
func New(txns store.TransactionStore, resolver ParticipantResolver, logger *slog.Logger, transactionTimeout, interval time.Duration) *Sweeper {
	return &Sweeper{
		txns:               txns,
		resolver:           resolver,
		logger:             logger,
		transactionTimeout: transactionTimeout,
		interval:           interval,
	}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.transactionTimeout)
	pending, err := s.txns.PendingOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("reconciler: list pending transactions failed", "error", err)
		return
	}

	for _, txn := range pending {
		s.reconcile(ctx, txn)
	}
}

func (s *Sweeper) reconcile(ctx context.Context, txn domain.Transaction) {
	srcClient := s.resolver.ClientFor(txn.SourceAccountID)
	dstClient := s.resolver.ClientFor(txn.DestinationAccountID)

	srcStatus, srcErr := srcClient.Status(ctx, wire.StatusRequest{TransactionID: txn.TransactionID, AccountID: txn.SourceAccountID})
	dstStatus, dstErr := dstClient.Status(ctx, wire.StatusRequest{TransactionID: txn.TransactionID, AccountID: txn.DestinationAccountID})

	stillLocked := (srcErr == nil && srcStatus.Locked) || (dstErr == nil && dstStatus.Locked)

	if stillLocked {
		if srcStatus.Locked {
			if _, err := srcClient.Abort(ctx, wire.AbortRequest{TransactionID: txn.TransactionID, AccountID: txn.SourceAccountID}); err != nil {
				s.logger.Warn("reconciler: abort call failed", "transaction_id", txn.TransactionID, "account_id", txn.SourceAccountID, "error", err)
			}
		}
		if dstStatus.Locked {
			if _, err := dstClient.Abort(ctx, wire.AbortRequest{TransactionID: txn.TransactionID, AccountID: txn.DestinationAccountID}); err != nil {
				s.logger.Warn("reconciler: abort call failed", "transaction_id", txn.TransactionID, "account_id", txn.DestinationAccountID, "error", err)
			}
		}
	}

	if _, err := s.txns.Finalize(ctx, txn.TransactionID, domain.StatusAborted); err != nil {
		s.logger.Error("reconciler: finalize failed", "transaction_id", txn.TransactionID, "error", err)
		return
	}
	s.logger.Info("reconciler: closed dangling transaction", "transaction_id", txn.TransactionID, "was_locked", stillLocked)
}

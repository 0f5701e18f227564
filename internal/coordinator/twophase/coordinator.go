// Package twophase drives the coordinator side of the protocol (spec §4.1):
// Begin/Prepare/Collect/Commit-or-Abort/Finalize, with a fixed-delay retry
// wrapper. Concurrent fan-out of the two prepare calls, and of the two
// commit (or abort) calls, uses golang.org/x/sync/errgroup so that either
// leg's context expiring cancels its sibling immediately — the fan-out/join
// shape spec §5 describes.
package twophase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/twopc/internal/coordinator/domain"
	"github.com/congo-pay/twopc/internal/coordinator/store"
	"github.com/congo-pay/twopc/internal/diagnostics"
	"github.com/congo-pay/twopc/internal/errtax"
	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/wire"
)

// ParticipantClient is the subset of participantclient.Client the
// coordinator needs, kept as an interface so tests can supply a fake.
type ParticipantClient interface {
	Prepare(ctx context.Context, req wire.PrepareRequest) (wire.PrepareResponse, error)
	Commit(ctx context.Context, req wire.CommitRequest) (wire.CommitResponse, error)
	Abort(ctx context.Context, req wire.AbortRequest) (wire.AbortResponse, error)
	Status(ctx context.Context, req wire.StatusRequest) (wire.StatusResponse, error)
}

// Config holds the timeout and retry knobs of spec §6.4.
type Config struct {
	PrepareTimeout     time.Duration
	CommitTimeout      time.Duration
	TransactionTimeout time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
}

// DefaultConfig matches spec §6.4's stated defaults.
func DefaultConfig() Config {
	return Config{
		PrepareTimeout:     5 * time.Second,
		CommitTimeout:      5 * time.Second,
		TransactionTimeout: 30 * time.Second,
		MaxRetries:         3,
		RetryDelay:         1 * time.Second,
	}
}

// Coordinator drives 2PC transfers between exactly two participant
// deployments identified by account ownership; both source and destination
// clients are supplied per-call since either account may live on either
// deployment.
type Coordinator struct {
	txns   store.TransactionStore
	diag   diagnostics.Publisher
	logger *slog.Logger
	cfg    Config
}

// New builds a Coordinator.
func New(txns store.TransactionStore, diag diagnostics.Publisher, logger *slog.Logger, cfg Config) *Coordinator {
	return &Coordinator{txns: txns, diag: diag, logger: logger, cfg: cfg}
}

// Result is the outcome of a single Transfer or TransferWithRetry call.
type Result struct {
	TransactionID string
	Status        domain.Status
	Message       string
	Code          errtax.Code // set only when Status == aborted
	RetryAttempt  int
	TotalAttempts int
}

// Transfer implements spec §4.1's Protocol as a single, non-retried
// attempt: on abort it finalizes the row immediately, since there is no
// further attempt that could still use the lock state a bare abort leaves
// behind. Callers that want the retry policy of spec §4.1 use
// TransferWithRetry instead, which drives the same attempt logic but defers
// finalizing an abort until retries are exhausted.
func (c *Coordinator) Transfer(ctx context.Context, txID, src, dst string, amount money.Money, srcClient, dstClient ParticipantClient) (Result, error) {
	if txID == "" {
		txID = uuid.NewString()
	}
	res, committed, err := c.attempt(ctx, txID, src, dst, amount, srcClient, dstClient)
	if err != nil || committed {
		return res, err
	}

	final, err := c.txns.Finalize(ctx, txID, domain.StatusAborted)
	if err != nil {
		return Result{}, err
	}
	res.Status = final.Status
	return res, nil
}

// attempt runs Begin/Prepare/Commit-or-Abort for one pass of the protocol.
// It never finalizes an abort outcome — that decision belongs to the
// caller, which may still want to retry with the same tx_id — but it does
// finalize (and diagnose) a commit outcome immediately, since a commit is
// never retried once decided.
func (c *Coordinator) attempt(ctx context.Context, txID, src, dst string, amount money.Money, srcClient, dstClient ParticipantClient) (Result, bool, error) {
	if src == dst {
		return Result{}, false, errtax.ErrInvalidArgument
	}
	if err := amount.RequirePositive(); err != nil {
		return Result{}, false, errtax.ErrInvalidArgument
	}

	txn, err := c.txns.Begin(ctx, domain.Transaction{
		TransactionID:        txID,
		SourceAccountID:      src,
		DestinationAccountID: dst,
		Amount:               amount,
	})
	if err != nil {
		return Result{}, false, err
	}
	if txn.Status.IsTerminal() {
		// Idempotent replay of an already-finalized transaction id.
		return c.resultFromTerminal(txn), txn.Status == domain.StatusCommitted, nil
	}

	vote, code := c.prepareBoth(ctx, txID, src, dst, amount, srcClient, dstClient)
	if vote != wire.VoteCommit {
		c.abortBoth(ctx, txID, src, dst, srcClient, dstClient)
		return Result{TransactionID: txID, Status: domain.StatusAborted, Message: "transfer aborted", Code: code}, false, nil
	}

	if failed := c.commitBoth(ctx, txID, src, dst, srcClient, dstClient); len(failed) > 0 {
		// At least one commit failed after both sides voted to commit: the
		// spec biases toward reporting success and raising a critical
		// diagnostic rather than leaving the lock held indefinitely (§7).
		final, err := c.txns.Finalize(ctx, txID, domain.StatusCommitted)
		if err != nil {
			return Result{}, false, err
		}
		for _, failedAccountID := range failed {
			c.diag.PublishCritical(ctx, diagnostics.CriticalDiagnostic{
				TransactionID:   txID,
				SourceAccountID: src,
				DestAccountID:   dst,
				FailedAccountID: failedAccountID,
				Reason:          "commit call failed on at least one participant after both prepared",
				ObservedAt:      time.Now().UTC(),
			})
		}
		return Result{TransactionID: txID, Status: final.Status, Message: "transfer committed with a pending reconciliation alert"}, true, nil
	}

	final, err := c.txns.Finalize(ctx, txID, domain.StatusCommitted)
	if err != nil {
		return Result{}, false, err
	}
	return Result{TransactionID: txID, Status: final.Status, Message: "transfer committed"}, true, nil
}

func (c *Coordinator) resultFromTerminal(txn domain.Transaction) Result {
	if txn.Status == domain.StatusCommitted {
		return Result{TransactionID: txn.TransactionID, Status: txn.Status, Message: "transfer committed"}
	}
	return Result{TransactionID: txn.TransactionID, Status: txn.Status, Message: "transfer aborted"}
}

// prepareBoth sends the two prepare calls concurrently and returns the
// collective vote: commit only if both voted commit (spec §4.1 step 3).
func (c *Coordinator) prepareBoth(ctx context.Context, txID, src, dst string, amount money.Money, srcClient, dstClient ParticipantClient) (wire.Vote, errtax.Code) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PrepareTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var srcResp, dstResp wire.PrepareResponse
	g.Go(func() error {
		resp, err := srcClient.Prepare(gctx, wire.PrepareRequest{TransactionID: txID, AccountID: src, Amount: amount.Neg(), Operation: wire.OperationDebit})
		srcResp = resp
		return err
	})
	g.Go(func() error {
		resp, err := dstClient.Prepare(gctx, wire.PrepareRequest{TransactionID: txID, AccountID: dst, Amount: amount, Operation: wire.OperationCredit})
		dstResp = resp
		return err
	})
	_ = g.Wait() // transport errors already folded into an abort vote on the response

	if srcResp.Vote == wire.VoteCommit && dstResp.Vote == wire.VoteCommit {
		return wire.VoteCommit, ""
	}

	code := errtax.CodeConflict
	if srcResp.Error != nil {
		code = errtax.Code(srcResp.Error.Code)
	} else if dstResp.Error != nil {
		code = errtax.Code(dstResp.Error.Code)
	}
	return wire.VoteAbort, code
}

// commitBoth sends the two commit calls concurrently and returns the
// account ids of any participant whose commit did not succeed, so the
// caller can attribute a critical diagnostic to the account that failed.
func (c *Coordinator) commitBoth(ctx context.Context, txID, src, dst string, srcClient, dstClient ParticipantClient) []string {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommitTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	var srcOK, dstOK bool
	g.Go(func() error {
		resp, err := srcClient.Commit(gctx, wire.CommitRequest{TransactionID: txID, AccountID: src})
		srcOK = err == nil && resp.Success
		if err != nil {
			c.logger.Error("commit call failed", "account_id", src, "transaction_id", txID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		resp, err := dstClient.Commit(gctx, wire.CommitRequest{TransactionID: txID, AccountID: dst})
		dstOK = err == nil && resp.Success
		if err != nil {
			c.logger.Error("commit call failed", "account_id", dst, "transaction_id", txID, "error", err)
		}
		return nil
	})
	_ = g.Wait()

	var failed []string
	if !srcOK {
		failed = append(failed, src)
	}
	if !dstOK {
		failed = append(failed, dst)
	}
	return failed
}

// abortBoth sends the two abort calls concurrently; failures are logged but
// never change the transfer's outcome (spec §4.1 step 5).
func (c *Coordinator) abortBoth(ctx context.Context, txID, src, dst string, srcClient, dstClient ParticipantClient) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommitTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := srcClient.Abort(gctx, wire.AbortRequest{TransactionID: txID, AccountID: src}); err != nil {
			c.logger.Warn("abort call failed", "account_id", src, "transaction_id", txID, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := dstClient.Abort(gctx, wire.AbortRequest{TransactionID: txID, AccountID: dst}); err != nil {
			c.logger.Warn("abort call failed", "account_id", dst, "transaction_id", txID, "error", err)
		}
		return nil
	})
	_ = g.Wait()
}

// TransferWithRetry runs the protocol at most cfg.MaxRetries times in total,
// with a fixed delay between attempts, reusing the same transaction id so a
// participant holding a lock from a prior attempt recognizes the replay
// (spec §4.1 Retry policy). Stops on the first committed outcome.
func (c *Coordinator) TransferWithRetry(ctx context.Context, txID, src, dst string, amount money.Money, srcClient, dstClient ParticipantClient) (Result, error) {
	if txID == "" {
		txID = uuid.NewString()
	}

	var last Result
	var committed bool
	var err error
	for n := 1; n <= c.cfg.MaxRetries; n++ {
		last, committed, err = c.attempt(ctx, txID, src, dst, amount, srcClient, dstClient)
		if err != nil {
			return Result{}, err
		}
		last.RetryAttempt = n
		last.TotalAttempts = n
		if committed {
			return last, nil
		}
		if n < c.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}
	}

	// Retries exhausted with no commit: finalize the row as aborted now.
	final, err := c.txns.Finalize(ctx, txID, domain.StatusAborted)
	if err != nil {
		return Result{}, err
	}
	last.Status = final.Status
	return last, nil
}

package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/twopc/internal/errtax"
	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/participant/domain"
	"github.com/congo-pay/twopc/internal/participant/service"
	"github.com/congo-pay/twopc/internal/participant/store"
	"github.com/congo-pay/twopc/internal/wire"
)

func newService(balance float64) (*service.Service, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	st.Seed(domain.Account{AccountID: "A", OwnerID: "owner", Balance: money.FromFloat(balance)})
	return service.New(st), st
}

func TestPrepareDebitLocksAccount(t *testing.T) {
	svc, st := newService(1000)
	result := svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))
	require.Equal(t, wire.VoteCommit, result.Vote)

	acct, err := st.Get(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, acct.LockedBy("t1"))
}

func TestPrepareIdempotentReplaySameParams(t *testing.T) {
	svc, _ := newService(1000)
	first := svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))
	second := svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))
	require.Equal(t, wire.VoteCommit, first.Vote)
	require.Equal(t, wire.VoteCommit, second.Vote)
}

func TestPrepareIdempotentReplayMismatchedParamsAborts(t *testing.T) {
	svc, _ := newService(1000)
	first := svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))
	require.Equal(t, wire.VoteCommit, first.Vote)

	mismatched := svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(75))
	require.Equal(t, wire.VoteAbort, mismatched.Vote)
	require.True(t, errors.Is(mismatched.Err, errtax.ErrConflict))
}

func TestPrepareSecondTransactionConflicts(t *testing.T) {
	svc, _ := newService(1000)
	first := svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))
	require.Equal(t, wire.VoteCommit, first.Vote)

	second := svc.Prepare(context.Background(), "t2", "A", wire.OperationDebit, money.FromFloat(50))
	require.Equal(t, wire.VoteAbort, second.Vote)
	require.True(t, errors.Is(second.Err, errtax.ErrConflict))
}

func TestPrepareInsufficientFunds(t *testing.T) {
	svc, _ := newService(10)
	result := svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))
	require.Equal(t, wire.VoteAbort, result.Vote)
	require.True(t, errors.Is(result.Err, errtax.ErrInsufficientFunds))
}

func TestPrepareCreditRejectsNegativeAmount(t *testing.T) {
	svc, _ := newService(10)
	result := svc.Prepare(context.Background(), "t1", "A", wire.OperationCredit, money.FromFloat(-5))
	require.Equal(t, wire.VoteAbort, result.Vote)
	require.True(t, errors.Is(result.Err, errtax.ErrInvalidArgument))
}

func TestCommitAppliesDeltaAndUnlocks(t *testing.T) {
	svc, st := newService(1000)
	svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))

	result := svc.Commit(context.Background(), "t1", "A")
	require.NoError(t, result.Err)
	require.Equal(t, "950.0000", result.NewBalance.String())

	acct, err := st.Get(context.Background(), "A")
	require.NoError(t, err)
	require.False(t, acct.Locked())
}

func TestCommitRetryAfterReleaseIsIdempotentViaRecentCommits(t *testing.T) {
	svc, _ := newService(1000)
	svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))
	first := svc.Commit(context.Background(), "t1", "A")
	require.NoError(t, first.Err)

	replay := svc.Commit(context.Background(), "t1", "A")
	require.NoError(t, replay.Err)
	require.Equal(t, first.NewBalance.String(), replay.NewBalance.String())
}

func TestAbortReleasesLockWithoutChangingBalance(t *testing.T) {
	svc, st := newService(1000)
	svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))

	require.NoError(t, svc.Abort(context.Background(), "t1", "A"))

	acct, err := st.Get(context.Background(), "A")
	require.NoError(t, err)
	require.False(t, acct.Locked())
	require.Equal(t, "1000.0000", acct.Balance.String())
}

func TestAbortIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	svc, _ := newService(1000)
	svc.Prepare(context.Background(), "t1", "A", wire.OperationDebit, money.FromFloat(50))

	require.NoError(t, svc.Abort(context.Background(), "t1", "A"))
	require.NoError(t, svc.Abort(context.Background(), "t1", "A"))
}

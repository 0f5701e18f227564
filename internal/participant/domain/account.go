// Package domain holds the participant's account row, per spec §3.
package domain

import (
	"time"

	"github.com/congo-pay/twopc/internal/money"
)

// Account is one participant-owned ledger row. LockHolder and PendingDelta
// are either both set or both unset (invariant 2): a nil LockHolder means
// AVAILABLE, a non-nil one means LOCKED(tx) in the state machine of §4.2.
type Account struct {
	AccountID    string
	OwnerID      string
	Balance      money.Money
	LockHolder   *string
	PendingDelta *money.Money
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Locked reports whether the account currently holds a lock.
func (a Account) Locked() bool {
	return a.LockHolder != nil
}

// LockedBy reports whether the account is locked by exactly txID.
func (a Account) LockedBy(txID string) bool {
	return a.LockHolder != nil && *a.LockHolder == txID
}

// EffectiveBalance is the balance a locked account would present to its
// holder if the transaction committed: balance + pending_delta.
func (a Account) EffectiveBalance() money.Money {
	if a.PendingDelta == nil {
		return a.Balance
	}
	return a.Balance.Add(*a.PendingDelta)
}

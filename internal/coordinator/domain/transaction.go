// Package domain holds the coordinator's transaction log row, per spec §3.
package domain

import (
	"time"

	"github.com/congo-pay/twopc/internal/money"
)

// Status is the transaction's position in the sink automaton described in
// spec §3: pending is the only non-terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCommitted Status = "committed"
	StatusAborted   Status = "aborted"
)

// Transaction is the coordinator's durable record of one transfer attempt.
type Transaction struct {
	TransactionID        string
	SourceAccountID      string
	DestinationAccountID string
	Amount               money.Money
	Status               Status
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsTerminal reports whether Status is an absorbing state.
func (s Status) IsTerminal() bool {
	return s == StatusCommitted || s == StatusAborted
}

// Package wire defines the JSON bodies exchanged between the coordinator
// and a participant over the /2pc/* endpoints (spec §6.1), shared by both
// the participantclient (coordinator side) and the handler (participant
// side) so the two never drift apart.
package wire

import "github.com/congo-pay/twopc/internal/money"

// Operation names the sign convention of a Prepare call: debits carry
// negative signed amounts, credits positive (spec §4.2).
type Operation string

const (
	OperationDebit  Operation = "debit"
	OperationCredit Operation = "credit"
)

// Vote is a participant's prepare-phase decision.
type Vote string

const (
	VoteCommit Vote = "commit"
	VoteAbort  Vote = "abort"
)

// PrepareRequest is the POST /2pc/prepare body.
type PrepareRequest struct {
	TransactionID string      `json:"transaction_id"`
	AccountID     string      `json:"account_id"`
	Amount        money.Money `json:"amount"`
	Operation     Operation   `json:"operation"`
}

// PrepareDetails is embedded in a successful (vote=commit) prepare response.
type PrepareDetails struct {
	AccountID      string      `json:"account_id"`
	CurrentBalance money.Money `json:"current_balance"`
	PendingChange  money.Money `json:"pending_change"`
	Operation      Operation   `json:"operation"`
}

// ErrorBody is the `error` object carried on any non-success response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PrepareResponse is the POST /2pc/prepare response envelope.
type PrepareResponse struct {
	Success bool            `json:"success"`
	Vote    Vote            `json:"vote"`
	Details *PrepareDetails `json:"details,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// CommitRequest is the POST /2pc/commit body.
type CommitRequest struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

// CommitDetails is embedded in a successful commit response.
type CommitDetails struct {
	AccountID  string      `json:"account_id"`
	NewBalance money.Money `json:"new_balance"`
}

// CommitResponse is the POST /2pc/commit response envelope.
type CommitResponse struct {
	Success bool           `json:"success"`
	Details *CommitDetails `json:"details,omitempty"`
	Error   *ErrorBody     `json:"error,omitempty"`
}

// AbortRequest is the POST /2pc/abort body.
type AbortRequest struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

// AbortResponse is the POST /2pc/abort response envelope. Abort is
// idempotent and always reports success once the request is well-formed.
type AbortResponse struct {
	Success bool       `json:"success"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// StatusRequest is the POST /2pc/status body — the reconciliation
// extension described in SPEC_FULL.md, additive to the three core verbs.
type StatusRequest struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

// StatusResponse reports whether an account is still locked by the given
// transaction, and if so, the pending delta recorded against it.
type StatusResponse struct {
	Success       bool         `json:"success"`
	Locked        bool         `json:"locked"`
	PendingChange *money.Money `json:"pending_change,omitempty"`
	Error         *ErrorBody   `json:"error,omitempty"`
}

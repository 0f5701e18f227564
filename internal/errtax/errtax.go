// Package errtax defines the error taxonomy shared by the coordinator and
// participant services (spec §7): a small set of sentinel errors plus the
// wire-level code each maps to, in the style of the teacher's
// ledger.ErrInsufficientFunds / ledger.ErrDuplicateTransaction sentinels.
package errtax

import "errors"

// Code is a taxonomy code carried on the wire in error responses.
type Code string

const (
	CodeInvalidArgument   Code = "InvalidArgument"
	CodeNotFound          Code = "NotFound"
	CodeInsufficientFunds Code = "InsufficientFunds"
	CodeConflict          Code = "Conflict"
	CodeTransport         Code = "Transport"
	CodeCritical          Code = "Critical"
	CodeInternal          Code = "Internal"
)

var (
	// ErrInvalidArgument: malformed or self-referential transfer.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAccountNotFound: unknown account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransactionNotFound: unknown transaction.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInsufficientFunds: prepare-time debit check failed.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConflict: lock collision on prepare, or lock mismatch on commit/abort.
	ErrConflict = errors.New("conflict")
	// ErrTransport: timeout or connection failure in the 2PC channel.
	ErrTransport = errors.New("transport failure")
)

// CodeOf maps a sentinel (or a wrapped sentinel) to its wire taxonomy code.
// An error that isn't one of this package's classified sentinels — a raw
// Postgres error surfacing from a store call, for instance — is a genuine
// operational fault, not a legitimate lock collision, and maps to
// CodeInternal rather than being folded into CodeConflict.
func CodeOf(err error) Code {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrTransactionNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrTransport):
		return CodeTransport
	default:
		return CodeInternal
	}
}

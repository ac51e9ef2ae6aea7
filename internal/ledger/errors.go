package ledger

import "errors"

var (
	// ErrBalanceNotFound indicates no balance row matched the lookup.
	ErrBalanceNotFound = errors.New("ledger: balance not found")
	// ErrConversionFailed wraps a currency conversion failure during a
	// balance mutation. The enclosing unit rolls back.
	ErrConversionFailed = errors.New("ledger: currency conversion failed")
	// ErrDefaultBalanceCurrencyMissing indicates a default balance row whose
	// currency no longer resolves. Setup corruption, not retryable.
	ErrDefaultBalanceCurrencyMissing = errors.New("ledger: default balance currency missing")
)

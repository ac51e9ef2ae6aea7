package fx

import "errors"

var (
	// ErrCurrencyNotFound indicates the requested currency does not exist.
	ErrCurrencyNotFound = errors.New("fx: currency not found")
	// ErrDefaultCurrencyNotConfigured indicates no currency carries the
	// system default flag. This is a setup problem, not a retryable one.
	ErrDefaultCurrencyNotConfigured = errors.New("fx: default currency not configured")
	// ErrInvalidRate indicates a non-positive exchange rate.
	ErrInvalidRate = errors.New("fx: exchange rate must be positive")
)

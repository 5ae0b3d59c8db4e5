package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input (missing fields, bad wallet format).
	ErrValidation = errors.New("validation failed")
	// ErrCustomerExists is returned when the wallet is already registered.
	ErrCustomerExists = errors.New("customer with this wallet already exists")
	// ErrCustomerNotFound is returned when no customer matches the id.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrStaleWrite is returned when a conditional snapshot write lost the race.
	ErrStaleWrite = errors.New("customer snapshot changed concurrently")
	// ErrProviderUnavailable is the root of every position provider failure.
	ErrProviderUnavailable = errors.New("position provider unavailable")
)

// ProviderErrorKind classifies position provider failures.
type ProviderErrorKind string

const (
	ProviderErrorTransport ProviderErrorKind = "transport"
	ProviderErrorStatus    ProviderErrorKind = "status"
	ProviderErrorDecode    ProviderErrorKind = "decode"
	ProviderErrorTimeout   ProviderErrorKind = "timeout"
	ProviderErrorRateLimit ProviderErrorKind = "rate_limit"
)

// ProviderError represents a failed position provider call for one wallet.
type ProviderError struct {
	WalletAddress string
	Kind          ProviderErrorKind
	StatusCode    int
	Err           error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("position provider %s error for %s", e.Kind, e.WalletAddress)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the cause and ErrProviderUnavailable to errors.Is.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderUnavailable}
	}
	return []error{ErrProviderUnavailable, e.Err}
}

// ValidationError wraps ErrValidation with a human-readable message.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

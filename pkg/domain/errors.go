// Package domain holds the error taxonomy shared by the ledger core. Business
// rule violations are typed so callers can render a user-facing message
// without string matching; infrastructure faults stay generic.
package domain

import (
	"errors"
	"fmt"

	"github.com/corebank/ledger/pkg/money"
)

// Common domain errors
var (
	// ErrNotFound is returned when a requested account or transaction is not found.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when a unique constraint (account number,
	// transaction reference, idempotency key) is violated.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails.
	ErrValidation = errors.New("validation error")
	// ErrInsufficientFunds is returned when a debit would breach the overdraft limit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidStateTransition is returned on an illegal status change.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrNonZeroBalance is returned when closing or deleting an account that still holds funds.
	ErrNonZeroBalance = errors.New("account balance is not zero")
	// ErrConcurrencyConflict is returned when a lock or optimistic check failed; safe to retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrAuditWriteFailure is returned when a required audit record could not be written.
	ErrAuditWriteFailure = errors.New("audit write failure")
)

// ValidationError describes malformed caller input. It wraps ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientFundsError carries the available and requested amounts so the
// caller can display them. It wraps ErrInsufficientFunds.
type InsufficientFundsError struct {
	Available money.Money
	Requested money.Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s",
		e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// StateTransitionError describes an illegal status change on an entity. It
// wraps ErrInvalidStateTransition.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s -> %s", e.Entity, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// AuditWriteError wraps the underlying store fault behind ErrAuditWriteFailure
// so the triggering mutation can abort without leaking infrastructure detail.
type AuditWriteError struct {
	Err error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("audit write failure: %v", e.Err)
}

func (e *AuditWriteError) Unwrap() error { return ErrAuditWriteFailure }

package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers lookups of ids that never existed or whose
	// pending entry expired.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessed is returned when a claim or reject targets a
	// pending order another staff member already accepted. Distinct from
	// ErrNotFound so the UI can tell the operator what happened.
	ErrAlreadyProcessed = errors.New("pending order already processed")

	// ErrRetriesExhausted means every admission attempt hit a uniqueness
	// conflict. The caller may retry; nothing was persisted.
	ErrRetriesExhausted = errors.New("order admission failed after retries")

	// ErrInFlight is returned when a request carries an idempotency key
	// whose original call has not finished yet.
	ErrInFlight = errors.New("request with this idempotency key is still being processed")

	// ErrVersionConflict means an optimistic status update lost the race.
	ErrVersionConflict = errors.New("order was modified concurrently")

	ErrLoginTaken         = errors.New("login already exists")
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// ValidationError marks bad input: unknown or unavailable products,
// payment sums that do not match the total, malformed origins. Never
// retried, surfaced to the caller with the message intact.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

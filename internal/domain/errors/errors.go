// Package errors holds the sentinel and structured errors shared by the
// services and the HTTP layer, which maps them to status codes.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrLockedPeriod is returned when a write targets a locked bill period.
	ErrLockedPeriod = errors.New("bill period is locked")

	// ErrValidation is returned when a request is missing or has malformed fields.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRange is returned for inverted or oversized date ranges.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrConflict is returned when a create targets an id that already exists.
	ErrConflict = errors.New("record already exists")
)

// LockedPeriodError describes which date, range or period id rejected a write.
type LockedPeriodError struct {
	Date     string
	From     string
	To       string
	PeriodID string
}

func (e *LockedPeriodError) Error() string {
	switch {
	case e.PeriodID != "" && e.Date != "":
		return fmt.Sprintf("date %s falls in locked period %s", e.Date, e.PeriodID)
	case e.From != "" || e.To != "":
		return fmt.Sprintf("range %s..%s overlaps a locked period", e.From, e.To)
	case e.PeriodID != "":
		return fmt.Sprintf("period %s is locked", e.PeriodID)
	default:
		return fmt.Sprintf("date %s is locked", e.Date)
	}
}

func (e *LockedPeriodError) Unwrap() error { return ErrLockedPeriod }

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsLocked reports whether err is a locked-period rejection.
func IsLocked(err error) bool { return errors.Is(err, ErrLockedPeriod) }

// IsValidation reports whether err is caused by invalid input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidRange)
}

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a duplicate-id rejection.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

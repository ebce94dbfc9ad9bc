package services

import (
	"errors"
	"fmt"

	"github.com/anjiri1684/tutor_booking/database"
	"gorm.io/gorm"
)

// ValidationError reports missing or invalid input. No store round trip has
// been attempted when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError is returned when a conditional write loses, e.g. the slot was
// booked by someone else first.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// StoreError wraps a persistence failure. It is recoverable; callers decide
// whether to retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// ErrInconsistentSession means a signed-in principal has no profile record.
var ErrInconsistentSession = errors.New("signed-in account has no profile")

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFound(entity string, id fmt.Stringer) error {
	if id == nil {
		return &NotFoundError{Entity: entity}
	}
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// storeErr classifies a gorm error. Missing rows become NotFoundError when an
// entity name is given.
func storeErr(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var (
		verr *ValidationError
		terr *InvalidTransitionError
		nerr *NotFoundError
		cerr *ConflictError
		perr *PermissionError
		serr *StoreError
	)
	if errors.As(err, &verr) || errors.As(err, &terr) || errors.As(err, &nerr) ||
		errors.As(err, &cerr) || errors.As(err, &perr) || errors.As(err, &serr) {
		return err
	}
	if entity != "" && errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity}
	}
	return &StoreError{Op: op, Err: err}
}

func isUnique(err error) bool { return database.IsUniqueViolation(err) }

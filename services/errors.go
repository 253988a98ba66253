package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Service-level errors. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotParticipant    = errors.New("not a participant of this conversation")
	ErrConflict          = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPersistence       = errors.New("persistence error")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func persistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// lookupErr turns gorm's not-found into ErrNotFound and everything else into ErrPersistence.
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return persistence(err)
}

// passthrough keeps service errors raised inside a transaction intact.
func passthrough(err error) error {
	for _, known := range []error{ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrForbidden,
		ErrNotParticipant, ErrConflict, ErrInsufficientFunds, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	return persistence(err)
}

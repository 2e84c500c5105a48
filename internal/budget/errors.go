package budget

import (
	"errors"
	"fmt"

	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
)

var (
	// ErrInvalidInput marks caller mistakes such as a missing category.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated marks requests without a valid credential.
	ErrUnauthenticated = identity.ErrUnauthenticated

	// ErrCollaboratorUnavailable marks failures of the Ledger Store or Notifier.
	// The engine never retries; the caller owns retry policy.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// InputError is a field-level validation failure.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any InputError.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, msg string) error {
	return &InputError{Field: field, Message: msg}
}

// unavailable tags err as a collaborator failure while keeping it unwrappable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrCollaboratorUnavailable, err)
}

package scheduling

import (
	"errors"
	"fmt"

	"petwiz/internal/domain"
)

// ErrForbidden is returned when the caller lacks authority over the
// appointment it is acting on.
var ErrForbidden = errors.New("forbidden")

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// InvalidTransitionError reports an operation that is not valid from
// the appointment's current status.
type InvalidTransitionError struct {
	From domain.Status
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment in status %s", e.Op, e.From)
}

package scheduling

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentFinal    = errors.New("appointment is in a terminal state and cannot be modified")
)

// ValidationError marks malformed caller input, rejected before any schedule
// access. It is distinct from conflicts, which are reported as data on the
// operation result.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

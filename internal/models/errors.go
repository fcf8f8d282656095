package models

import "fmt"

// ValidationError is an input problem the client can fix. The HTTP layer maps
// it to a 400 with the message verbatim, so messages must name the offending
// field.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

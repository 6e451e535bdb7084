package locator

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrRegistrationNotFound matches every *RegistrationNotFoundError with errors.Is.
var ErrRegistrationNotFound = errors.New("locator: registration not found")

// RegistrationNotFoundError is returned when the kernel cannot supply the
// requested type (and key). Err is the kernel's original failure.
type RegistrationNotFoundError struct {
	Type reflect.Type
	Key  string
	Err  error
}

func (e *RegistrationNotFoundError) Error() string {
	msg := fmt.Sprintf("locator: no registration for %s", typeString(e.Type))
	if e.Key != "" {
		msg += fmt.Sprintf(" with key %q", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RegistrationNotFoundError) Unwrap() error { return e.Err }

func (e *RegistrationNotFoundError) Is(target error) bool {
	return target == ErrRegistrationNotFound
}

// InvalidCastError is returned by the generic helpers when the resolved value
// is not a Want.
type InvalidCastError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *InvalidCastError) Error() string {
	return fmt.Sprintf("locator: cannot cast %s to %s", typeString(e.Got), typeString(e.Want))
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

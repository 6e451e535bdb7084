package kernel

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidRegistration = errors.New("kernel: invalid registration")
	ErrDuplicateComponent  = errors.New("kernel: duplicate component name")
	ErrActivation          = errors.New("kernel: activation failed")
	ErrTypeMismatch        = errors.New("kernel: component does not provide requested service")
)

// ComponentNotFoundError is returned when no component matches the requested
// service type or name.
type ComponentNotFoundError struct {
	Service reflect.Type
	Name    string
}

func (e *ComponentNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("kernel: no component named %q for service %s", e.Name, typeName(e.Service))
	}
	return fmt.Sprintf("kernel: no component for service %s", typeName(e.Service))
}

// DependencyError reports a failure while wiring a dependency of Component.
type DependencyError struct {
	Component string
	Field     string
	Err       error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("kernel: component %q: dependency %s: %v", e.Component, e.Field, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// CircularDependencyError carries the component names on the cycle, the
// repeated name last.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "kernel: circular dependency: " + strings.Join(e.Path, " -> ")
}

// IsComponentNotFound reports whether err says the requested component itself
// is missing. A missing dependency of an existing component does not count.
func IsComponentNotFound(err error) bool {
	var dep *DependencyError
	if errors.As(err, &dep) {
		return false
	}
	var nf *ComponentNotFoundError
	return errors.As(err, &nf)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<any>"
	}
	return t.String()
}

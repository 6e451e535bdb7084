package locator

import (
	"fmt"
	"reflect"

	"github.com/km-arc/go-locator/framework/kernel"
)

// TypeOf returns the reflect.Type of T, interfaces included.
func TypeOf[T any]() reflect.Type { return kernel.TypeOf[T]() }

// ── Generic resolution ────────────────────────────────────────────────────────

// GetInstanceOf resolves T.
//
//	repo, err := locator.GetInstanceOf[UserRepository](l)
func GetInstanceOf[T any](l ServiceLocator, args ...ResolutionArgument) (T, error) {
	return cast[T](l.GetInstance(TypeOf[T](), args...))
}

// GetNamedInstanceOf resolves the component key as T.
func GetNamedInstanceOf[T any](l ServiceLocator, key string, args ...ResolutionArgument) (T, error) {
	return cast[T](l.GetNamedInstance(TypeOf[T](), key, args...))
}

// GetInstanceAs resolves t and casts the result to T.
//
//	var r io.Reader
//	r, err := locator.GetInstanceAs[io.Reader](l, locator.TypeOf[*bytes.Buffer]())
func GetInstanceAs[T any](l ServiceLocator, t reflect.Type, args ...ResolutionArgument) (T, error) {
	return cast[T](l.GetInstance(t, args...))
}

// GetAllInstancesOf resolves every component registered for T.
func GetAllInstancesOf[T any](l ServiceLocator) ([]T, error) {
	all, err := l.GetAllInstances(TypeOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, v := range all {
		typed, err := cast[T](v, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

// MustGetInstanceOf is GetInstanceOf for bootstrap code; it panics on error.
func MustGetInstanceOf[T any](l ServiceLocator, args ...ResolutionArgument) T {
	v, err := GetInstanceOf[T](l, args...)
	if err != nil {
		panic(fmt.Sprintf("locator: MustGetInstanceOf[%s]: %v", TypeOf[T](), err))
	}
	return v
}

func cast[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &InvalidCastError{Want: TypeOf[T](), Got: reflect.TypeOf(v)}
	}
	return typed, nil
}

// ── Generic registration ──────────────────────────────────────────────────────

// RegisterType is Register(TypeOf[From](), TypeOf[To]()).
func RegisterType[From, To any](l ServiceLocator) error {
	return l.Register(TypeOf[From](), TypeOf[To]())
}

// RegisterTypeWithName is RegisterWithName for type parameters.
func RegisterTypeWithName[From, To any](l ServiceLocator, name string) error {
	return l.RegisterWithName(TypeOf[From](), TypeOf[To](), name)
}

// RegisterInstanceOf binds instance as T.
func RegisterInstanceOf[T any](l ServiceLocator, instance T) error {
	return l.RegisterInstance(TypeOf[T](), instance)
}

// RegisterFactory registers a typed producer for T.
func RegisterFactory[T any](l ServiceLocator, producer func() T) error {
	if producer == nil {
		return l.RegisterFactoryMethod(TypeOf[T](), nil)
	}
	return l.RegisterFactoryMethod(TypeOf[T](), func() any { return producer() })
}

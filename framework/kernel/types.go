package kernel

import "reflect"

// TypeOf returns the reflect.Type of T. Unlike reflect.TypeOf on a value it
// works for interface types:
//
//	kernel.TypeOf[io.Reader]()     // io.Reader
//	kernel.TypeOf[*bytes.Buffer]() // *bytes.Buffer
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// TypeKey returns the package-qualified name of t with pointers removed,
// useful as a stable name for components keyed by type.
//
//	kernel.TypeKey(kernel.TypeOf[*UserRepository]()) // "example.com/app.UserRepository"
func TypeKey(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

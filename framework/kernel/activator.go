package kernel

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Struct tags read by ReflectionActivator.
const (
	// ParameterTag renames a field's parameter; "-" excludes the field.
	ParameterTag = "locator"
	// DefaultTag holds a default value decoded into the field.
	DefaultTag = "default"
)

// InstanceActivator always returns the same pre-built value.
type InstanceActivator struct {
	Instance any
}

func (a *InstanceActivator) Create(_ *CreationContext) (any, error) {
	return a.Instance, nil
}

// ReflectionActivator constructs Type. For a struct or pointer-to-struct
// every exported field is a constructor parameter, named by its `locator`
// tag or its field name. Each parameter is filled in this order:
//
//  1. an override from the creation context (names match case-insensitively)
//  2. the `default` tag, weakly decoded
//  3. a component the kernel can resolve for the field type
//
// Fields matching none of these keep their zero value.
type ReflectionActivator struct {
	Type reflect.Type
}

func (a *ReflectionActivator) Create(ctx *CreationContext) (any, error) {
	t := a.Type
	switch {
	case t == nil:
		return nil, errors.Wrap(ErrActivation, "no implementation type")
	case t.Kind() == reflect.Interface:
		return nil, errors.Wrapf(ErrActivation, "cannot instantiate interface %s", t)
	case t.Kind() == reflect.Struct:
		v := reflect.New(t).Elem()
		if err := populate(ctx, v); err != nil {
			return nil, err
		}
		return v.Interface(), nil
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		v := reflect.New(t.Elem())
		if err := populate(ctx, v.Elem()); err != nil {
			return nil, err
		}
		return v.Interface(), nil
	case t.Kind() == reflect.Pointer:
		return reflect.New(t.Elem()).Interface(), nil
	default:
		return reflect.New(t).Elem().Interface(), nil
	}
}

func populate(ctx *CreationContext, v reflect.Value) error {
	st := v.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup(ParameterTag); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		fv := v.Field(i)

		if value, ok := lookupArg(ctx.Args, name); ok {
			if err := assign(fv, value); err != nil {
				return errors.Wrapf(ErrActivation, "%s: parameter %q: %v", st, name, err)
			}
			continue
		}

		if def, ok := f.Tag.Lookup(DefaultTag); ok {
			if err := mapstructure.WeakDecode(def, fv.Addr().Interface()); err != nil {
				return errors.Wrapf(ErrActivation, "%s: default for %q: %v", st, name, err)
			}
			continue
		}

		if !wireable(f) || !ctx.CanResolve(f.Type) {
			continue
		}
		dep, err := ctx.Resolve(f.Type)
		if err != nil {
			component := ""
			if ctx.Model != nil {
				component = ctx.Model.Name
			}
			return &DependencyError{Component: component, Field: f.Name, Err: err}
		}
		if dep != nil {
			fv.Set(reflect.ValueOf(dep))
		}
	}
	return nil
}

// wireable keeps scalar fields out of dependency wiring unless the field
// carries an explicit parameter tag.
func wireable(f reflect.StructField) bool {
	if _, tagged := f.Tag.Lookup(ParameterTag); tagged {
		return true
	}
	switch f.Type.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	}
	return true
}

func lookupArg(args map[string]any, name string) (any, bool) {
	if len(args) == 0 {
		return nil, false
	}
	if v, ok := args[name]; ok {
		return v, true
	}
	key, ok := lo.FindKeyBy(args, func(k string, _ any) bool {
		return strings.EqualFold(k, name)
	})
	if !ok {
		return nil, false
	}
	return args[key], true
}

// assign sets value on fv, keeping identity when the types line up and
// falling back to a weak decode ("42" into an int field) otherwise.
func assign(fv reflect.Value, value any) error {
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return nil
	}
	return mapstructure.WeakDecode(value, fv.Addr().Interface())
}

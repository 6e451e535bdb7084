package kernel

import (
	"reflect"

	"github.com/pkg/errors"
)

// Facility extends a kernel. Init runs once, when the facility is added.
type Facility interface {
	Init(host FacilityHost) error
}

// FacilityHost is the part of a kernel a facility may touch.
type FacilityHost interface {
	// AddContributor registers c for every component model, including the
	// ones registered before the call.
	AddContributor(c ModelContributor) error
}

// ModelContributor inspects or rewrites a component model during
// registration.
type ModelContributor interface {
	ProcessModel(m *ComponentModel) error
}

// ModelContributorFunc adapts a function to ModelContributor.
type ModelContributorFunc func(m *ComponentModel) error

func (f ModelContributorFunc) ProcessModel(m *ComponentModel) error { return f(m) }

// ── Factory support ───────────────────────────────────────────────────────────

// Configuration attributes understood by FactorySupportFacility.
const (
	// FactoryIDAttribute names the component that builds instances.
	FactoryIDAttribute = "factoryId"
	// FactoryCreateAttribute names the zero-argument method to call on it.
	FactoryCreateAttribute = "factoryCreate"
)

// FactorySupportFacility lets a registration delegate construction to a
// method of another, named component:
//
//	kernel.For(svc).Configuration(
//	    kernel.Attrib(kernel.FactoryIDAttribute).Eq("greeterFactory"),
//	    kernel.Attrib(kernel.FactoryCreateAttribute).Eq("Create"),
//	)
type FactorySupportFacility struct{}

func (f *FactorySupportFacility) Init(host FacilityHost) error {
	return host.AddContributor(ModelContributorFunc(f.processModel))
}

func (f *FactorySupportFacility) processModel(m *ComponentModel) error {
	id, ok := m.Configuration[FactoryIDAttribute]
	if !ok {
		return nil
	}
	method := m.Configuration[FactoryCreateAttribute]
	if id == "" || method == "" {
		return errors.Wrapf(ErrInvalidRegistration, "component %q: %s and %s must both be set",
			m.Name, FactoryIDAttribute, FactoryCreateAttribute)
	}
	m.Activator = &FactoryMethodActivator{FactoryID: id, Method: method}
	return nil
}

// FactoryMethodActivator resolves the component named FactoryID and calls
// its Method. The method takes no arguments and returns the instance,
// optionally followed by an error.
type FactoryMethodActivator struct {
	FactoryID string
	Method    string
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (a *FactoryMethodActivator) Create(ctx *CreationContext) (any, error) {
	factory, err := ctx.ResolveNamed(a.FactoryID, nil)
	if err != nil {
		// A missing factory is a missing dependency, not a missing component.
		component := ""
		if ctx.Model != nil {
			component = ctx.Model.Name
		}
		return nil, &DependencyError{Component: component, Field: FactoryIDAttribute + "=" + a.FactoryID, Err: err}
	}

	m := reflect.ValueOf(factory).MethodByName(a.Method)
	if !m.IsValid() {
		return nil, errors.Wrapf(ErrActivation, "factory %q (%T) has no method %s", a.FactoryID, factory, a.Method)
	}
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() < 1 || mt.NumOut() > 2 ||
		(mt.NumOut() == 2 && mt.Out(1) != errorType) {
		return nil, errors.Wrapf(ErrActivation, "factory %q: %s has unsupported signature %s", a.FactoryID, a.Method, mt)
	}

	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, errors.Wrapf(out[1].Interface().(error), "factory %q", a.FactoryID)
	}
	if !out[0].IsValid() || (isNillable(out[0].Kind()) && out[0].IsNil()) {
		return nil, errors.Wrapf(ErrActivation, "factory %q returned nil", a.FactoryID)
	}

	instance := out[0].Interface()
	if ctx.Model != nil {
		it := reflect.TypeOf(instance)
		for _, svc := range ctx.Model.Services {
			if !it.AssignableTo(svc) {
				return nil, errors.Wrapf(ErrActivation, "factory %q produced %s, not a %s", a.FactoryID, it, svc)
			}
		}
	}
	return instance, nil
}

func isNillable(k reflect.Kind) bool {
	switch k {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	}
	return false
}

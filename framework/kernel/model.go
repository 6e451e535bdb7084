package kernel

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ComponentModel is the kernel's view of a registered component. Facilities
// may rewrite it (usually the Activator) while it is being registered.
type ComponentModel struct {
	Name           string
	Services       []reflect.Type
	Implementation reflect.Type
	Lifestyle      Lifestyle
	Configuration  map[string]string
	Activator      Activator

	// External is true for instance registrations; the kernel did not
	// build the value and never releases it.
	External bool
}

// Provides reports whether t is one of the model's services.
func (m *ComponentModel) Provides(t reflect.Type) bool {
	return lo.Contains(m.Services, t)
}

// Activator builds component instances.
type Activator interface {
	Create(ctx *CreationContext) (any, error)
}

// ActivatorFunc adapts a function to Activator.
type ActivatorFunc func(ctx *CreationContext) (any, error)

func (f ActivatorFunc) Create(ctx *CreationContext) (any, error) { return f(ctx) }

// DependencyResolver is what an activator may call back into while building.
// Kernels pass one that remembers the components already on the build path.
type DependencyResolver interface {
	CanResolve(t reflect.Type) bool
	ResolveDependency(t reflect.Type) (any, error)
	ResolveNamedDependency(name string, t reflect.Type) (any, error)
}

// CreationContext is handed to an activator for one resolution.
type CreationContext struct {
	Model *ComponentModel
	// Args are constructor-parameter overrides keyed by parameter name.
	Args     map[string]any
	resolver DependencyResolver
}

func NewCreationContext(model *ComponentModel, args map[string]any, resolver DependencyResolver) *CreationContext {
	return &CreationContext{Model: model, Args: args, resolver: resolver}
}

func (c *CreationContext) CanResolve(t reflect.Type) bool {
	return c.resolver != nil && c.resolver.CanResolve(t)
}

func (c *CreationContext) Resolve(t reflect.Type) (any, error) {
	if c.resolver == nil {
		return nil, &ComponentNotFoundError{Service: t}
	}
	return c.resolver.ResolveDependency(t)
}

func (c *CreationContext) ResolveNamed(name string, t reflect.Type) (any, error) {
	if c.resolver == nil {
		return nil, &ComponentNotFoundError{Service: t, Name: name}
	}
	return c.resolver.ResolveNamedDependency(name, t)
}

// NewModel validates a registration and builds its model with the default
// activator. name is the final component name chosen by the kernel.
func NewModel(reg *ComponentRegistration, name string) (*ComponentModel, error) {
	if len(reg.services) == 0 || lo.Contains(reg.services, nil) {
		return nil, errors.Wrap(ErrInvalidRegistration, "at least one non-nil service type is required")
	}
	if name == "" {
		return nil, errors.Wrap(ErrInvalidRegistration, "component name is empty")
	}

	m := &ComponentModel{
		Name:          name,
		Services:      lo.Uniq(reg.services),
		Lifestyle:     reg.lifestyle,
		Configuration: make(map[string]string, len(reg.configuration)),
	}
	for _, attr := range reg.configuration {
		m.Configuration[attr.Name] = attr.Value
	}

	switch {
	case reg.hasInstance:
		if reg.instance == nil {
			return nil, errors.Wrapf(ErrInvalidRegistration, "component %q: instance is nil", name)
		}
		it := reflect.TypeOf(reg.instance)
		for _, svc := range m.Services {
			if !it.AssignableTo(svc) {
				return nil, errors.Wrapf(ErrInvalidRegistration, "component %q: instance of %s is not a %s", name, it, svc)
			}
		}
		m.Implementation = it
		m.Activator = &InstanceActivator{Instance: reg.instance}
		m.External = true
		if m.Lifestyle == LifestyleUndefined {
			m.Lifestyle = Singleton
		}
	default:
		impl := reg.implementation
		if impl == nil {
			impl = m.Services[0]
		}
		// Factory-configured components are built by a facility; the
		// implementation only has to match when the kernel builds it.
		if _, factory := m.Configuration[FactoryIDAttribute]; !factory {
			for _, svc := range m.Services {
				if !impl.AssignableTo(svc) {
					return nil, errors.Wrapf(ErrInvalidRegistration, "component %q: %s does not implement %s", name, impl, svc)
				}
			}
		}
		m.Implementation = impl
		m.Activator = &ReflectionActivator{Type: impl}
		if m.Lifestyle == LifestyleUndefined {
			m.Lifestyle = Transient
		}
	}
	return m, nil
}

package kernel

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Lifestyle is the reuse policy of a component.
type Lifestyle int

const (
	// LifestyleUndefined lets the kernel pick: instances are shared,
	// everything else is transient.
	LifestyleUndefined Lifestyle = iota
	// Transient builds a new instance per resolution.
	Transient
	// Singleton builds once and caches the instance.
	Singleton
)

func (l Lifestyle) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	default:
		return "undefined"
	}
}

// Attribute is a single configuration entry attached to a registration.
// Facilities read them when they contribute to a component model.
type Attribute struct {
	Name  string
	Value string
}

// AttributeKey starts an attribute expression: kernel.Attrib("factoryId").Eq("x").
type AttributeKey string

// Attrib names a configuration attribute.
func Attrib(name string) AttributeKey { return AttributeKey(name) }

// Eq binds a value to the attribute name.
func (k AttributeKey) Eq(value string) Attribute {
	return Attribute{Name: string(k), Value: value}
}

// ── ComponentRegistration ─────────────────────────────────────────────────────

// ComponentRegistration describes one component to the kernel. Build it with
// For and the fluent setters:
//
//	kernel.For(kernel.TypeOf[Greeter]()).
//	    ImplementedBy(kernel.TypeOf[*englishGreeter]()).
//	    Named("english").
//	    LifestyleTransient()
type ComponentRegistration struct {
	services        []reflect.Type
	implementation  reflect.Type
	instance        any
	hasInstance     bool
	name            string
	lifestyle       Lifestyle
	onlyNewServices bool
	configuration   []Attribute
}

// For starts a registration exposing the given service types.
func For(services ...reflect.Type) *ComponentRegistration {
	return &ComponentRegistration{services: services}
}

// ImplementedBy sets the concrete type the kernel constructs.
func (r *ComponentRegistration) ImplementedBy(t reflect.Type) *ComponentRegistration {
	r.implementation = t
	return r
}

// Instance binds a pre-built value. The kernel never constructs anything
// for instance registrations.
func (r *ComponentRegistration) Instance(v any) *ComponentRegistration {
	r.instance = v
	r.hasInstance = true
	return r
}

// Named sets an explicit component name.
func (r *ComponentRegistration) Named(name string) *ComponentRegistration {
	r.name = name
	return r
}

func (r *ComponentRegistration) LifestyleTransient() *ComponentRegistration {
	r.lifestyle = Transient
	return r
}

func (r *ComponentRegistration) LifestyleSingleton() *ComponentRegistration {
	r.lifestyle = Singleton
	return r
}

// OnlyNewServices drops every service type that already has a component.
// A registration left without services is skipped.
func (r *ComponentRegistration) OnlyNewServices() *ComponentRegistration {
	r.onlyNewServices = true
	return r
}

// Configuration appends configuration attributes.
func (r *ComponentRegistration) Configuration(attrs ...Attribute) *ComponentRegistration {
	r.configuration = append(r.configuration, attrs...)
	return r
}

func (r *ComponentRegistration) Services() []reflect.Type     { return r.services }
func (r *ComponentRegistration) Implementation() reflect.Type { return r.implementation }
func (r *ComponentRegistration) ExplicitName() string         { return r.name }
func (r *ComponentRegistration) IsOnlyNewServices() bool      { return r.onlyNewServices }

// DefaultName is the name a component gets when none was given: the
// implementation type, then the instance type, then the first service.
func (r *ComponentRegistration) DefaultName() string {
	switch {
	case r.name != "":
		return r.name
	case r.implementation != nil:
		return r.implementation.String()
	case r.hasInstance && r.instance != nil:
		return reflect.TypeOf(r.instance).String()
	case len(r.services) > 0 && r.services[0] != nil:
		return r.services[0].String()
	}
	return ""
}

// Applicable applies OnlyNewServices against has, which reports whether a
// service already has a component. It returns nil when nothing is left to
// register.
func (r *ComponentRegistration) Applicable(has func(reflect.Type) bool) *ComponentRegistration {
	if !r.onlyNewServices {
		return r
	}
	fresh := lo.Reject(r.services, func(t reflect.Type, _ int) bool { return has(t) })
	if len(fresh) == 0 {
		return nil
	}
	cp := *r
	cp.services = fresh
	return &cp
}

// ComponentName picks the final name of reg given the names already taken.
// An explicit name must be free; a default name gets a numeric suffix until
// it is.
func ComponentName(reg *ComponentRegistration, taken func(string) bool) (string, error) {
	name := reg.DefaultName()
	if !taken(name) {
		return name, nil
	}
	if reg.name != "" {
		return "", errors.Wrapf(ErrDuplicateComponent, "%q", name)
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s#%d", name, i)
		if !taken(candidate) {
			return candidate, nil
		}
	}
}

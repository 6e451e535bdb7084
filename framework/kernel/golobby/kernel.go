package golobby

import (
	"log/slog"
	"reflect"
	"regexp"
	"slices"
	"sync"

	"github.com/golobby/container/v3"
	"github.com/km-arc/go-locator/framework/kernel"
	"github.com/pkg/errors"
)

var (
	// golobby has no typed errors; all of its messages start with "container:".
	containerErrorRegex = regexp.MustCompile("^container:")
	notFoundRegex       = regexp.MustCompile("no concrete found")

	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

type component struct {
	model    *kernel.ComponentModel
	instance any
	built    bool
}

// frame is one call into the golobby container. The bound resolvers take no
// arguments, so overrides and the build path travel here.
type frame struct {
	args map[string]any
	path []string
	err  error
}

// Kernel stores components in a golobby container. Every service of a
// component is bound under the component name, and the first component of
// each service is also bound under golobby's default (empty) name.
//
// The golobby container is a plain map, so one mutex covers registration
// and the whole of each resolution. Factory producers and AfterResolving
// callbacks must not call back into the same kernel.
type Kernel struct {
	mu    sync.Mutex
	inner container.Container

	byName    map[string]*component
	byService map[reflect.Type][]*component
	order     []string
	frames    []*frame

	facilities   []kernel.Facility
	contributors []kernel.ModelContributor

	releasePolicy  kernel.ReleasePolicy
	afterResolving []func(*kernel.ComponentModel, any)

	logger *slog.Logger
}

var _ kernel.FacilityHost = (*Kernel)(nil)

// Option configures a Kernel.
type Option func(*Kernel)

func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) { k.logger = logger }
}

func WithReleasePolicy(p kernel.ReleasePolicy) Option {
	return func(k *Kernel) { k.releasePolicy = p }
}

// New creates a kernel over an empty golobby container.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		inner:         container.New(),
		byName:        make(map[string]*component),
		byService:     make(map[reflect.Type][]*component),
		releasePolicy: kernel.NewLifecycledComponentsReleasePolicy(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// ── Registration ──────────────────────────────────────────────────────────────

func (k *Kernel) Register(regs ...*kernel.ComponentRegistration) error {
	for _, reg := range regs {
		if err := k.register(reg); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kernel) register(reg *kernel.ComponentRegistration) error {
	if reg == nil {
		return errors.Wrap(kernel.ErrInvalidRegistration, "nil registration")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	applicable := reg.Applicable(func(t reflect.Type) bool { return len(k.byService[t]) > 0 })
	if applicable == nil {
		k.logger.Debug("golobby: registration skipped, services already registered",
			slog.String("component", reg.DefaultName()))
		return nil
	}

	name, err := kernel.ComponentName(applicable, func(n string) bool { _, ok := k.byName[n]; return ok })
	if err != nil {
		return err
	}
	model, err := kernel.NewModel(applicable, name)
	if err != nil {
		return err
	}
	for _, c := range k.contributors {
		if err := c.ProcessModel(model); err != nil {
			return err
		}
	}

	c := &component{model: model}
	for _, svc := range model.Services {
		if err := k.bind(svc, name, c); err != nil {
			return err
		}
		if len(k.byService[svc]) == 0 {
			if err := k.bind(svc, "", c); err != nil {
				return err
			}
		}
	}
	k.byName[name] = c
	k.order = append(k.order, name)
	for _, svc := range model.Services {
		k.byService[svc] = append(k.byService[svc], c)
	}

	k.logger.Debug("golobby: component registered",
		slog.String("component", name),
		slog.String("lifestyle", model.Lifestyle.String()))
	return nil
}

// bind registers a lazy golobby resolver of type func() (svc, error) that
// builds c.
func (k *Kernel) bind(svc reflect.Type, name string, c *component) error {
	fnType := reflect.FuncOf(nil, []reflect.Type{svc, errorType}, false)
	resolver := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		out, errOut := reflect.New(svc).Elem(), reflect.New(errorType).Elem()
		instance, err := k.build(c)
		if err != nil {
			errOut.Set(reflect.ValueOf(err))
			return []reflect.Value{out, errOut}
		}
		if instance != nil {
			out.Set(reflect.ValueOf(instance))
		}
		return []reflect.Value{out, errOut}
	})
	if err := k.inner.NamedTransientLazy(name, resolver.Interface()); err != nil {
		return errors.Wrapf(kernel.ErrInvalidRegistration, "component %q: %v", c.model.Name, err)
	}
	return nil
}

// ── Facilities ────────────────────────────────────────────────────────────────

func (k *Kernel) AddFacility(f kernel.Facility) error {
	if f == nil {
		return errors.New("golobby: nil facility")
	}
	if err := f.Init(k); err != nil {
		return errors.Wrapf(err, "golobby: facility %T", f)
	}
	k.mu.Lock()
	k.facilities = append(k.facilities, f)
	k.mu.Unlock()
	return nil
}

func (k *Kernel) Facilities() []kernel.Facility {
	k.mu.Lock()
	defer k.mu.Unlock()
	return slices.Clone(k.facilities)
}

func (k *Kernel) AddContributor(c kernel.ModelContributor) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, name := range k.order {
		if err := c.ProcessModel(k.byName[name].model); err != nil {
			return err
		}
	}
	k.contributors = append(k.contributors, c)
	return nil
}

// ── Release policy ────────────────────────────────────────────────────────────

func (k *Kernel) ReleasePolicy() kernel.ReleasePolicy {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.releasePolicy
}

func (k *Kernel) ReleaseComponent(instance any) error {
	return k.ReleasePolicy().Release(instance)
}

// Close closes every instance the release policy tracks.
func (k *Kernel) Close() error {
	return k.ReleasePolicy().Close()
}

// ── Resolution ────────────────────────────────────────────────────────────────

func (k *Kernel) Resolve(t reflect.Type, args map[string]any) (any, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.byService[t]) == 0 {
		return nil, &kernel.ComponentNotFoundError{Service: t}
	}
	return k.make(t, "", args, nil)
}

// ResolveNamed builds the component called name. When t is not nil the
// component must provide it.
func (k *Kernel) ResolveNamed(name string, t reflect.Type, args map[string]any) (any, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.resolveNamed(name, t, args, nil)
}

func (k *Kernel) resolveNamed(name string, t reflect.Type, args map[string]any, path []string) (any, error) {
	c := k.byName[name]
	if c == nil {
		return nil, &kernel.ComponentNotFoundError{Service: t, Name: name}
	}
	if t != nil && !c.model.Provides(t) && !c.model.Implementation.AssignableTo(t) {
		return nil, errors.Wrapf(kernel.ErrTypeMismatch, "component %q is not a %s", name, t)
	}
	svc := c.model.Services[0]
	if t != nil && c.model.Provides(t) {
		svc = t
	}
	return k.make(svc, name, args, path)
}

// ResolveAll builds every component registered for t, in registration order.
func (k *Kernel) ResolveAll(t reflect.Type) ([]any, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	components := k.byService[t]
	out := make([]any, 0, len(components))
	for _, c := range components {
		instance, err := k.make(t, c.model.Name, nil, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

func (k *Kernel) HasComponent(t reflect.Type) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.byService[t]) > 0
}

func (k *Kernel) HasComponentNamed(name string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.byName[name] != nil
}

// Components returns all component names in registration order.
func (k *Kernel) Components() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return slices.Clone(k.order)
}

// make asks golobby for the binding (svc, name). Must hold mu.
func (k *Kernel) make(svc reflect.Type, name string, args map[string]any, path []string) (any, error) {
	f := &frame{args: args, path: path}
	k.frames = append(k.frames, f)
	defer func() { k.frames = k.frames[:len(k.frames)-1] }()

	ptr := reflect.New(svc)
	if err := k.inner.NamedResolve(ptr.Interface(), name); err != nil {
		if f.err != nil {
			return nil, f.err
		}
		return nil, translate(err, svc, name)
	}
	return ptr.Elem().Interface(), nil
}

// build runs the activator of c for the innermost frame. It is only ever
// called by golobby from inside make.
func (k *Kernel) build(c *component) (any, error) {
	f := k.frames[len(k.frames)-1]
	name := c.model.Name
	if slices.Contains(f.path, name) {
		f.err = &kernel.CircularDependencyError{Path: append(slices.Clone(f.path), name)}
		return nil, f.err
	}
	if c.model.Lifestyle == kernel.Singleton && c.built {
		return c.instance, nil
	}

	path := append(slices.Clone(f.path), name)
	ctx := kernel.NewCreationContext(c.model, f.args, &resolution{kernel: k, path: path})
	instance, err := c.model.Activator.Create(ctx)
	if err != nil {
		f.err = err
		return nil, err
	}

	if c.model.Lifestyle == kernel.Singleton {
		c.instance, c.built = instance, true
	}
	k.releasePolicy.Track(instance, c.model)
	for _, cb := range k.afterResolving {
		cb(c.model, instance)
	}
	return instance, nil
}

// ContainerError is a golobby failure that did not come from an activator.
// It matches kernel.ErrActivation and unwraps to the golobby error.
type ContainerError struct {
	Err error
}

func (e *ContainerError) Error() string {
	return kernel.ErrActivation.Error() + ": " + e.Err.Error()
}

func (e *ContainerError) Unwrap() error { return e.Err }

func (e *ContainerError) Is(target error) bool { return target == kernel.ErrActivation }

// translate maps a golobby error that did not come from an activator.
func translate(err error, svc reflect.Type, name string) error {
	if !containerErrorRegex.MatchString(err.Error()) {
		return err
	}
	if notFoundRegex.MatchString(err.Error()) {
		return &kernel.ComponentNotFoundError{Service: svc, Name: name}
	}
	return &ContainerError{Err: err}
}

// resolution is the DependencyResolver handed to activators. It runs with
// mu already held.
type resolution struct {
	kernel *Kernel
	path   []string
}

func (r *resolution) CanResolve(t reflect.Type) bool {
	return len(r.kernel.byService[t]) > 0
}

func (r *resolution) ResolveDependency(t reflect.Type) (any, error) {
	if !r.CanResolve(t) {
		return nil, &kernel.ComponentNotFoundError{Service: t}
	}
	return r.kernel.make(t, "", nil, r.path)
}

func (r *resolution) ResolveNamedDependency(name string, t reflect.Type) (any, error) {
	return r.kernel.resolveNamed(name, t, nil, r.path)
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after every activation.
func (k *Kernel) AfterResolving(cb func(model *kernel.ComponentModel, instance any)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.afterResolving = append(k.afterResolving, cb)
}


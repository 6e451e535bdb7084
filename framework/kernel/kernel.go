package kernel

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/pkg/errors"
)

// handler owns one component model and, for singletons, its instance.
// instance, built, owner and done are guarded by Kernel.buildMu.
type handler struct {
	model *ComponentModel

	instance any
	built    bool

	// owner is the resolution building the singleton; done closes when it
	// finishes, successfully or not.
	owner *build
	done  chan struct{}
}

// build is one top-level resolution. waiting is the singleton it is blocked
// on, guarded by Kernel.buildMu.
type build struct {
	waiting *handler
}

// ── Kernel ────────────────────────────────────────────────────────────────────

// Kernel is the default component kernel. Components are registered with
// ComponentRegistration descriptors and resolved by service type or name.
//
// It supports:
//   - transient and singleton lifestyles, plus pre-built instances
//   - several components per service (the first registered is the default)
//   - constructor-parameter overrides at resolution time
//   - field wiring of registered dependencies, with cycle detection
//   - facilities that rewrite component models (see FactorySupportFacility)
//   - a pluggable release policy for instances implementing io.Closer
type Kernel struct {
	mu sync.RWMutex

	// buildMu guards singleton ownership; it is never held while an
	// activator runs.
	buildMu sync.Mutex

	// name → handler
	byName map[string]*handler

	// service → handlers, in registration order
	byService map[reflect.Type][]*handler

	// component names, in registration order
	order []string

	facilities   []Facility
	contributors []ModelContributor

	releasePolicy ReleasePolicy

	// resolved callbacks: (model, instance)
	afterResolving []func(*ComponentModel, any)

	logger *slog.Logger
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Kernel) { k.logger = logger }
}

// WithReleasePolicy replaces the default LifecycledComponentsReleasePolicy.
func WithReleasePolicy(p ReleasePolicy) Option {
	return func(k *Kernel) { k.releasePolicy = p }
}

// New creates an empty kernel.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		byName:        make(map[string]*handler),
		byService:     make(map[reflect.Type][]*handler),
		releasePolicy: NewLifecycledComponentsReleasePolicy(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register adds components. Registrations are applied in order; the first
// failure stops the batch and is returned.
func (k *Kernel) Register(regs ...*ComponentRegistration) error {
	for _, reg := range regs {
		if err := k.register(reg); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kernel) register(reg *ComponentRegistration) error {
	if reg == nil {
		return errors.Wrap(ErrInvalidRegistration, "nil registration")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	applicable := reg.Applicable(func(t reflect.Type) bool { return len(k.byService[t]) > 0 })
	if applicable == nil {
		k.logger.Debug("kernel: registration skipped, services already registered",
			slog.String("component", reg.DefaultName()))
		return nil
	}
	reg = applicable

	name, err := ComponentName(reg, func(n string) bool { _, ok := k.byName[n]; return ok })
	if err != nil {
		return err
	}

	model, err := NewModel(reg, name)
	if err != nil {
		return err
	}
	for _, c := range k.contributors {
		if err := c.ProcessModel(model); err != nil {
			return err
		}
	}

	h := &handler{model: model}
	k.byName[name] = h
	k.order = append(k.order, name)
	for _, svc := range model.Services {
		k.byService[svc] = append(k.byService[svc], h)
	}

	k.logger.Debug("kernel: component registered",
		slog.String("component", name),
		slog.String("lifestyle", model.Lifestyle.String()),
		slog.Int("services", len(model.Services)))
	return nil
}

// ── Facilities ────────────────────────────────────────────────────────────────

// AddFacility initialises f against this kernel and keeps it.
func (k *Kernel) AddFacility(f Facility) error {
	if f == nil {
		return errors.New("kernel: nil facility")
	}
	if err := f.Init(k); err != nil {
		return errors.Wrapf(err, "kernel: facility %T", f)
	}
	k.mu.Lock()
	k.facilities = append(k.facilities, f)
	k.mu.Unlock()
	return nil
}

// Facilities returns the installed facilities in installation order.
func (k *Kernel) Facilities() []Facility {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.facilities)
}

// AddContributor implements FacilityHost.
func (k *Kernel) AddContributor(c ModelContributor) error {
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

func (k *Kernel) ReleasePolicy() ReleasePolicy {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.releasePolicy
}

func (k *Kernel) SetReleasePolicy(p ReleasePolicy) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.releasePolicy = p
}

// ReleaseComponent closes instance if the release policy tracks it.
func (k *Kernel) ReleaseComponent(instance any) error {
	return k.ReleasePolicy().Release(instance)
}

// Close closes every tracked instance.
func (k *Kernel) Close() error {
	return k.ReleasePolicy().Close()
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve builds the default component for t.
func (k *Kernel) Resolve(t reflect.Type, args map[string]any) (any, error) {
	h := k.handlerFor(t)
	if h == nil {
		return nil, &ComponentNotFoundError{Service: t}
	}
	return k.activate(h, args, nil, &build{})
}

// ResolveNamed builds the component called name. When t is not nil the
// component must provide it.
func (k *Kernel) ResolveNamed(name string, t reflect.Type, args map[string]any) (any, error) {
	h := k.handlerNamed(name)
	if h == nil {
		return nil, &ComponentNotFoundError{Service: t, Name: name}
	}
	if t != nil && !h.model.Provides(t) && !h.model.Implementation.AssignableTo(t) {
		return nil, errors.Wrapf(ErrTypeMismatch, "component %q is not a %s", name, t)
	}
	return k.activate(h, args, nil, &build{})
}

// ResolveAll builds every component registered for t, in registration order.
func (k *Kernel) ResolveAll(t reflect.Type) ([]any, error) {
	k.mu.RLock()
	handlers := slices.Clone(k.byService[t])
	k.mu.RUnlock()

	out := make([]any, 0, len(handlers))
	for _, h := range handlers {
		instance, err := k.activate(h, nil, nil, &build{})
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

// HasComponent reports whether any component provides t.
func (k *Kernel) HasComponent(t reflect.Type) bool {
	return k.handlerFor(t) != nil
}

// HasComponentNamed reports whether a component called name exists.
func (k *Kernel) HasComponentNamed(name string) bool {
	return k.handlerNamed(name) != nil
}

// Model returns the model of the component called name.
func (k *Kernel) Model(name string) (*ComponentModel, bool) {
	h := k.handlerNamed(name)
	if h == nil {
		return nil, false
	}
	return h.model, true
}

// Components returns all component names in registration order.
func (k *Kernel) Components() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.order)
}

func (k *Kernel) handlerFor(t reflect.Type) *handler {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if hs := k.byService[t]; len(hs) > 0 {
		return hs[0]
	}
	return nil
}

func (k *Kernel) handlerNamed(name string) *handler {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.byName[name]
}

// activate builds an instance of h. path holds the components already being
// built by the enclosing resolution b.
func (k *Kernel) activate(h *handler, args map[string]any, path []string, b *build) (any, error) {
	name := h.model.Name
	if slices.Contains(path, name) {
		return nil, &CircularDependencyError{Path: append(slices.Clone(path), name)}
	}
	path = append(slices.Clone(path), name)

	singleton := h.model.Lifestyle == Singleton
	settled := true
	if singleton {
		instance, ok, err := k.claim(h, path, b)
		if ok || err != nil {
			return instance, err
		}
		settled = false
		// an activator panic must not leave h owned
		defer func() {
			if !settled {
				k.settle(h, nil, false)
			}
		}()
	}

	ctx := NewCreationContext(h.model, args, &resolution{kernel: k, path: path, build: b})
	instance, err := h.model.Activator.Create(ctx)
	if singleton {
		k.settle(h, instance, err == nil)
		settled = true
	}
	if err != nil {
		return nil, err
	}

	k.ReleasePolicy().Track(instance, h.model)
	k.fireAfterResolving(h.model, instance)
	return instance, nil
}

// claim returns the built singleton of h (ok true), or makes b its owner so
// the caller builds it. It waits while another resolution owns h, unless
// that resolution is itself waiting, directly or through others, on a
// singleton b owns: two goroutines building A -> B and B -> A get a
// CircularDependencyError instead of blocking each other.
func (k *Kernel) claim(h *handler, path []string, b *build) (any, bool, error) {
	k.buildMu.Lock()
	defer k.buildMu.Unlock()
	for {
		if h.built {
			return h.instance, true, nil
		}
		if h.owner == nil {
			h.owner, h.done = b, make(chan struct{})
			return nil, false, nil
		}
		for o := h.owner; o != nil; {
			if o == b {
				return nil, false, &CircularDependencyError{Path: path}
			}
			if o.waiting == nil {
				break
			}
			o = o.waiting.owner
		}

		b.waiting = h
		done := h.done
		k.buildMu.Unlock()
		<-done
		k.buildMu.Lock()
		b.waiting = nil
	}
}

// settle ends the ownership of h and wakes its waiters. A failed build
// leaves h unbuilt so the next resolution tries again.
func (k *Kernel) settle(h *handler, instance any, ok bool) {
	k.buildMu.Lock()
	defer k.buildMu.Unlock()
	if ok {
		h.instance, h.built = instance, true
	}
	h.owner = nil
	close(h.done)
}

// resolution is the DependencyResolver handed to activators.
type resolution struct {
	kernel *Kernel
	path   []string
	build  *build
}

func (r *resolution) CanResolve(t reflect.Type) bool {
	return r.kernel.HasComponent(t)
}

func (r *resolution) ResolveDependency(t reflect.Type) (any, error) {
	h := r.kernel.handlerFor(t)
	if h == nil {
		return nil, &ComponentNotFoundError{Service: t}
	}
	return r.kernel.activate(h, nil, r.path, r.build)
}

func (r *resolution) ResolveNamedDependency(name string, t reflect.Type) (any, error) {
	h := r.kernel.handlerNamed(name)
	if h == nil {
		return nil, &ComponentNotFoundError{Service: t, Name: name}
	}
	return r.kernel.activate(h, nil, r.path, r.build)
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after every activation.
func (k *Kernel) AfterResolving(cb func(model *ComponentModel, instance any)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.afterResolving = append(k.afterResolving, cb)
}

func (k *Kernel) fireAfterResolving(model *ComponentModel, instance any) {
	k.mu.RLock()
	cbs := k.afterResolving
	k.mu.RUnlock()
	for _, cb := range cbs {
		cb(model, instance)
	}
}

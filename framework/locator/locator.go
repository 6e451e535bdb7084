package locator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"

	"github.com/km-arc/go-locator/framework/kernel"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ServiceLocator is the registration and resolution contract application code
// depends on. It never exposes which kernel does the work.
type ServiceLocator interface {
	io.Closer

	GetAllInstances(t reflect.Type) ([]any, error)
	GetInstance(t reflect.Type, args ...ResolutionArgument) (any, error)
	GetNamedInstance(t reflect.Type, key string, args ...ResolutionArgument) (any, error)
	HasTypeRegistered(t reflect.Type) bool

	Register(from, to reflect.Type) error
	RegisterWithName(from, to reflect.Type, name string) error
	RegisterInstance(t reflect.Type, instance any) error
	RegisterInstanceWithName(t reflect.Type, instance any, name string) error
	RegisterFactoryMethod(t reflect.Type, producer func() any) error
}

// Kernel is the container capability the locator drives. *kernel.Kernel and
// the golobby-backed kernel both satisfy it.
type Kernel interface {
	Register(regs ...*kernel.ComponentRegistration) error
	Resolve(t reflect.Type, args map[string]any) (any, error)
	ResolveNamed(name string, t reflect.Type, args map[string]any) (any, error)
	ResolveAll(t reflect.Type) ([]any, error)
	HasComponent(t reflect.Type) bool
	HasComponentNamed(name string) bool
	Facilities() []kernel.Facility
	AddFacility(f kernel.Facility) error
}

// Locator adapts a Kernel to ServiceLocator.
type Locator struct {
	kernel Kernel
	logger *slog.Logger

	// held across each check-then-register sequence
	mu sync.Mutex
}

var _ ServiceLocator = (*Locator)(nil)

// Option configures a Locator.
type Option func(*Locator)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) { l.logger = logger }
}

// New creates a locator over a fresh kernel that does not track resolved
// instances and has factory support installed.
func New(opts ...Option) *Locator {
	l := &Locator{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	l.kernel = kernel.New(
		kernel.WithReleasePolicy(kernel.NoTrackingReleasePolicy{}),
		kernel.WithLogger(l.logger),
	)
	if err := l.ensureFactorySupport(); err != nil {
		// A fresh kernel has no components a contributor could reject.
		panic(fmt.Sprintf("locator: %v", err))
	}
	return l
}

// NewWithKernel creates a locator over k, adding factory support unless k
// already has it.
func NewWithKernel(k Kernel, opts ...Option) (*Locator, error) {
	if k == nil {
		return nil, errors.New("locator: nil kernel")
	}
	l := &Locator{kernel: k, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.ensureFactorySupport(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Locator) ensureFactorySupport() error {
	installed := lo.ContainsBy(l.kernel.Facilities(), func(f kernel.Facility) bool {
		_, ok := f.(*kernel.FactorySupportFacility)
		return ok
	})
	if installed {
		return nil
	}
	return l.kernel.AddFacility(&kernel.FactorySupportFacility{})
}

// Kernel returns the wrapped kernel.
func (l *Locator) Kernel() Kernel { return l.kernel }

// Close does nothing; the kernel's lifetime is owned elsewhere.
func (l *Locator) Close() error { return nil }

// ── Registration ──────────────────────────────────────────────────────────────

// Register maps from to the concrete type to, transient. It is a no-op when
// either type already has a component.
func (l *Locator) Register(from, to reflect.Type) error {
	if from == nil || to == nil {
		return errors.Wrap(kernel.ErrInvalidRegistration, "locator: register: nil type")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kernel.HasComponent(from) || l.kernel.HasComponent(to) {
		l.skipped("register", slog.String("from", from.String()), slog.String("to", to.String()))
		return nil
	}
	return l.kernel.Register(kernel.For(from).ImplementedBy(to).LifestyleTransient().OnlyNewServices())
}

// RegisterWithName maps from to to under name, transient. It is a no-op when
// name is taken.
func (l *Locator) RegisterWithName(from, to reflect.Type, name string) error {
	if from == nil || to == nil {
		return errors.Wrap(kernel.ErrInvalidRegistration, "locator: register: nil type")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kernel.HasComponentNamed(name) {
		l.skipped("register", slog.String("name", name))
		return nil
	}
	return l.kernel.Register(kernel.For(from).ImplementedBy(to).Named(name).LifestyleTransient())
}

// RegisterInstance binds instance under the package-qualified name of t,
// e.g. "*net/http.Response".
func (l *Locator) RegisterInstance(t reflect.Type, instance any) error {
	if t == nil {
		return errors.Wrap(kernel.ErrInvalidRegistration, "locator: register instance: nil type")
	}
	return l.RegisterInstanceWithName(t, instance, qualifiedName(t))
}

// RegisterInstanceWithName binds instance under name. It is a no-op when name
// is taken, or when t already has a component.
func (l *Locator) RegisterInstanceWithName(t reflect.Type, instance any, name string) error {
	if t == nil {
		return errors.Wrap(kernel.ErrInvalidRegistration, "locator: register instance: nil type")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kernel.HasComponentNamed(name) {
		l.skipped("register instance", slog.String("name", name))
		return nil
	}
	return l.kernel.Register(kernel.For(t).Instance(instance).Named(name).OnlyNewServices())
}

// RegisterFactoryMethod makes t resolvable by calling producer, once per
// resolution. It is a no-op when t already has a component.
func (l *Locator) RegisterFactoryMethod(t reflect.Type, producer func() any) error {
	if t == nil || producer == nil {
		return errors.Wrap(kernel.ErrInvalidRegistration, "locator: register factory: nil type or producer")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kernel.HasComponent(t) {
		l.skipped("register factory", slog.String("type", t.String()))
		return nil
	}

	holder := factoryHolderName(t)
	if !l.kernel.HasComponentNamed(holder) {
		err := l.kernel.Register(kernel.For(factoryHolderType).
			Instance(&factoryHolder{produce: producer}).
			Named(holder))
		if err != nil {
			return err
		}
	}
	return l.kernel.Register(kernel.For(t).
		LifestyleTransient().
		OnlyNewServices().
		Configuration(factoryConfiguration(holder)...))
}

func (l *Locator) skipped(op string, attrs ...slog.Attr) {
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "locator: "+op+" skipped, already registered", attrs...)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// GetInstance resolves t. Every kernel failure, panics included, is reported
// as a *RegistrationNotFoundError.
func (l *Locator) GetInstance(t reflect.Type, args ...ResolutionArgument) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, &RegistrationNotFoundError{Type: t, Err: errors.Errorf("panic: %v", r)}
		}
	}()

	instance, err = l.kernel.Resolve(t, constructorArgs(args))
	if err != nil {
		return nil, &RegistrationNotFoundError{Type: t, Err: err}
	}
	return instance, nil
}

// GetNamedInstance resolves the component key as t. Only a missing component
// becomes a *RegistrationNotFoundError; other kernel errors are returned as
// they are.
func (l *Locator) GetNamedInstance(t reflect.Type, key string, args ...ResolutionArgument) (any, error) {
	instance, err := l.kernel.ResolveNamed(key, t, constructorArgs(args))
	if err != nil {
		if kernel.IsComponentNotFound(err) {
			return nil, &RegistrationNotFoundError{Type: t, Key: key, Err: err}
		}
		return nil, err
	}
	return instance, nil
}

// GetAllInstances resolves every component registered for t, in the order
// the kernel returns them.
func (l *Locator) GetAllInstances(t reflect.Type) ([]any, error) {
	return l.kernel.ResolveAll(t)
}

// HasTypeRegistered reports whether t has a component.
func (l *Locator) HasTypeRegistered(t reflect.Type) bool {
	return l.kernel.HasComponent(t)
}

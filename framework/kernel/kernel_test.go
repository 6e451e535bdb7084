package kernel_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/km-arc/go-locator/framework/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type greeter interface {
	Greet(name string) string
}

type englishGreeter struct {
	Salutation string `locator:"salutation" default:"Hello"`
	Times      int    `default:"1"`
}

func (g *englishGreeter) Greet(name string) string { return g.Salutation + ", " + name }

type frenchGreeter struct{}

func (frenchGreeter) Greet(name string) string { return "Bonjour, " + name }

type store interface{ Get() string }

type memStore struct{ value string }

func (s *memStore) Get() string { return s.value }

type service struct {
	Store  store
	Greet  greeter
	hidden store
	Skip   store `locator:"-"`
}

type cycleA struct{ B *cycleB }
type cycleB struct{ A *cycleA }

var (
	greeterType = kernel.TypeOf[greeter]()
	storeType   = kernel.TypeOf[store]()
)

// ── Registration ──────────────────────────────────────────────────────────────

func Test_Register(t *testing.T) {
	t.Run("DefaultNameIsImplementation", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]())))

		require.True(t, k.HasComponent(greeterType))
		require.True(t, k.HasComponentNamed(kernel.TypeOf[*englishGreeter]().String()))
	})

	t.Run("ImplicitNameCollisionGetsSuffix", func(t *testing.T) {
		k := kernel.New()
		impl := kernel.TypeOf[*englishGreeter]()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(impl)))
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(impl)))

		require.Equal(t, []string{impl.String(), impl.String() + "#2"}, k.Components())
	})

	t.Run("ExplicitNameCollisionFails", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[frenchGreeter]()).Named("g")))

		err := k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]()).Named("g"))
		require.ErrorIs(t, err, kernel.ErrDuplicateComponent)
	})

	t.Run("OnlyNewServicesSkipsKnownService", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[frenchGreeter]())))
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]()).OnlyNewServices()))

		require.Len(t, k.Components(), 1)
		g, err := k.Resolve(greeterType, nil)
		require.NoError(t, err)
		require.IsType(t, frenchGreeter{}, g)
	})

	t.Run("ImplementationMustProvideService", func(t *testing.T) {
		k := kernel.New()
		// Greet has a pointer receiver, so the struct value is not a greeter.
		err := k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[englishGreeter]()))
		require.ErrorIs(t, err, kernel.ErrInvalidRegistration)
	})

	t.Run("NilInstanceFails", func(t *testing.T) {
		k := kernel.New()
		err := k.Register(kernel.For(storeType).Instance(nil).Named("s"))
		require.ErrorIs(t, err, kernel.ErrInvalidRegistration)
	})

	t.Run("NoServicesFails", func(t *testing.T) {
		k := kernel.New()
		err := k.Register(kernel.For().ImplementedBy(kernel.TypeOf[frenchGreeter]()))
		require.ErrorIs(t, err, kernel.ErrInvalidRegistration)
	})
}

// ── Resolution ────────────────────────────────────────────────────────────────

func Test_Resolve(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		k := kernel.New()
		_, err := k.Resolve(greeterType, nil)

		var nf *kernel.ComponentNotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, greeterType, nf.Service)
		require.True(t, kernel.IsComponentNotFound(err))
	})

	t.Run("FirstRegisteredIsDefault", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(
			kernel.For(greeterType).ImplementedBy(kernel.TypeOf[frenchGreeter]()).Named("fr"),
			kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]()).Named("en"),
		))

		g, err := k.Resolve(greeterType, nil)
		require.NoError(t, err)
		require.Equal(t, "Bonjour, Ada", g.(greeter).Greet("Ada"))
	})

	t.Run("DefaultsAndOverrides", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]())))

		g, err := k.Resolve(greeterType, nil)
		require.NoError(t, err)
		require.Equal(t, "Hello", g.(*englishGreeter).Salutation)
		require.Equal(t, 1, g.(*englishGreeter).Times)

		g, err = k.Resolve(greeterType, map[string]any{"SALUTATION": "Howdy", "times": "3"})
		require.NoError(t, err)
		require.Equal(t, "Howdy", g.(*englishGreeter).Salutation)
		require.Equal(t, 3, g.(*englishGreeter).Times)
	})

	t.Run("OverrideWithWrongTypeFails", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]())))

		_, err := k.Resolve(greeterType, map[string]any{"times": []string{"a", "b"}})
		require.ErrorIs(t, err, kernel.ErrActivation)
	})

	t.Run("TransientBuildsEveryTime", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]()).LifestyleTransient()))

		a, err := k.Resolve(greeterType, nil)
		require.NoError(t, err)
		b, err := k.Resolve(greeterType, nil)
		require.NoError(t, err)
		require.NotSame(t, a, b)
	})

	t.Run("SingletonIsCached", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]()).LifestyleSingleton()))

		a, err := k.Resolve(greeterType, nil)
		require.NoError(t, err)
		b, err := k.Resolve(greeterType, nil)
		require.NoError(t, err)
		require.Same(t, a, b)
	})

	t.Run("InstanceKeepsIdentity", func(t *testing.T) {
		k := kernel.New()
		s := &memStore{value: "v"}
		require.NoError(t, k.Register(kernel.For(storeType).Instance(s).Named("store")))

		got, err := k.Resolve(storeType, nil)
		require.NoError(t, err)
		require.Same(t, s, got)
	})

	t.Run("FieldsAreWired", func(t *testing.T) {
		k := kernel.New()
		s := &memStore{value: "v"}
		require.NoError(t, k.Register(
			kernel.For(storeType).Instance(s).Named("store"),
			kernel.For(greeterType).ImplementedBy(kernel.TypeOf[frenchGreeter]()),
			kernel.For(kernel.TypeOf[*service]()),
		))

		got, err := k.Resolve(kernel.TypeOf[*service](), nil)
		require.NoError(t, err)
		svc := got.(*service)
		require.Same(t, s, svc.Store)
		require.IsType(t, frenchGreeter{}, svc.Greet)
		require.Nil(t, svc.hidden)
		require.Nil(t, svc.Skip)
	})

	t.Run("OverrideBeatsWiring", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(
			kernel.For(storeType).Instance(&memStore{value: "registered"}).Named("store"),
			kernel.For(kernel.TypeOf[*service]()),
		))
		other := &memStore{value: "override"}

		got, err := k.Resolve(kernel.TypeOf[*service](), map[string]any{"store": other})
		require.NoError(t, err)
		require.Same(t, other, got.(*service).Store)
	})

	t.Run("CircularDependency", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(
			kernel.For(kernel.TypeOf[*cycleA]()),
			kernel.For(kernel.TypeOf[*cycleB]()),
		))

		_, err := k.Resolve(kernel.TypeOf[*cycleA](), nil)
		var cycle *kernel.CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		require.Len(t, cycle.Path, 3)
		// A missing or broken dependency is not "component not found".
		require.False(t, kernel.IsComponentNotFound(err))
	})

	t.Run("InterfaceWithoutImplementation", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(greeterType)))

		_, err := k.Resolve(greeterType, nil)
		require.ErrorIs(t, err, kernel.ErrActivation)
	})
}

func Test_ResolveNamed(t *testing.T) {
	k := kernel.New()
	require.NoError(t, k.Register(
		kernel.For(greeterType).ImplementedBy(kernel.TypeOf[frenchGreeter]()).Named("fr"),
		kernel.For(storeType).Instance(&memStore{}).Named("store"),
	))

	t.Run("Found", func(t *testing.T) {
		g, err := k.ResolveNamed("fr", greeterType, nil)
		require.NoError(t, err)
		require.IsType(t, frenchGreeter{}, g)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := k.ResolveNamed("de", greeterType, nil)
		var nf *kernel.ComponentNotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, "de", nf.Name)
	})

	t.Run("WrongService", func(t *testing.T) {
		_, err := k.ResolveNamed("store", greeterType, nil)
		require.ErrorIs(t, err, kernel.ErrTypeMismatch)
		require.False(t, kernel.IsComponentNotFound(err))
	})

	t.Run("AnyService", func(t *testing.T) {
		s, err := k.ResolveNamed("store", nil, nil)
		require.NoError(t, err)
		require.IsType(t, &memStore{}, s)
	})
}

func Test_ResolveAll(t *testing.T) {
	k := kernel.New()
	require.NoError(t, k.Register(
		kernel.For(greeterType).ImplementedBy(kernel.TypeOf[frenchGreeter]()).Named("fr"),
		kernel.For(greeterType).ImplementedBy(kernel.TypeOf[*englishGreeter]()).Named("en"),
	))

	all, err := k.ResolveAll(greeterType)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.IsType(t, frenchGreeter{}, all[0])
	assert.IsType(t, &englishGreeter{}, all[1])

	none, err := k.ResolveAll(storeType)
	require.NoError(t, err)
	require.Empty(t, none)
}

func Test_AfterResolving(t *testing.T) {
	k := kernel.New()
	require.NoError(t, k.Register(kernel.For(greeterType).ImplementedBy(kernel.TypeOf[frenchGreeter]()).Named("fr")))

	var seen []string
	k.AfterResolving(func(m *kernel.ComponentModel, _ any) { seen = append(seen, m.Name) })

	_, err := k.Resolve(greeterType, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"fr"}, seen)
}

func Test_TypeKey(t *testing.T) {
	require.Equal(t, "github.com/km-arc/go-locator/framework/kernel_test.memStore", kernel.TypeKey(kernel.TypeOf[*memStore]()))
	require.Equal(t, "[]string", kernel.TypeKey(reflect.TypeOf([]string{})))
}

func Test_ErrorMessages(t *testing.T) {
	err := &kernel.ComponentNotFoundError{Service: greeterType, Name: "x"}
	require.Contains(t, err.Error(), `"x"`)
	require.Contains(t, err.Error(), "kernel_test.greeter")

	dep := &kernel.DependencyError{Component: "c", Field: "F", Err: errors.New("boom")}
	require.Equal(t, `kernel: component "c": dependency F: boom`, dep.Error())
}

// gate wraps the activators of the named components so each one's first
// build waits until every named component has started building.
func gate(t *testing.T, k *kernel.Kernel, names ...string) {
	t.Helper()
	var started sync.WaitGroup
	started.Add(len(names))
	onces := make(map[string]*sync.Once, len(names))
	for _, n := range names {
		onces[n] = &sync.Once{}
	}
	require.NoError(t, k.AddContributor(kernel.ModelContributorFunc(func(m *kernel.ComponentModel) error {
		once, ok := onces[m.Name]
		if !ok {
			return nil
		}
		inner := m.Activator
		m.Activator = kernel.ActivatorFunc(func(ctx *kernel.CreationContext) (any, error) {
			once.Do(func() {
				started.Done()
				started.Wait()
			})
			return inner.Create(ctx)
		})
		return nil
	})))
}

func Test_Singletons(t *testing.T) {
	t.Run("CycleResolvedFromBothEndsConcurrently", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(
			kernel.For(kernel.TypeOf[*cycleA]()).Named("a").LifestyleSingleton(),
			kernel.For(kernel.TypeOf[*cycleB]()).Named("b").LifestyleSingleton(),
		))
		gate(t, k, "a", "b")

		errs := make(chan error, 2)
		go func() { _, err := k.Resolve(kernel.TypeOf[*cycleA](), nil); errs <- err }()
		go func() { _, err := k.Resolve(kernel.TypeOf[*cycleB](), nil); errs <- err }()

		for range 2 {
			select {
			case err := <-errs:
				var cycle *kernel.CircularDependencyError
				require.ErrorAs(t, err, &cycle)
			case <-time.After(5 * time.Second):
				t.Fatal("concurrent singleton cycle blocked")
			}
		}
	})

	t.Run("ConcurrentResolutionsShareOneInstance", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(storeType).ImplementedBy(kernel.TypeOf[*memStore]()).LifestyleSingleton()))

		var wg sync.WaitGroup
		got := make([]any, 8)
		for i := range got {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got[i], _ = k.Resolve(storeType, nil)
			}()
		}
		wg.Wait()
		for _, s := range got {
			require.NotNil(t, s)
			require.Same(t, got[0], s)
		}
	})

	t.Run("PanickingActivatorReleasesTheSingleton", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(storeType).ImplementedBy(kernel.TypeOf[*memStore]()).LifestyleSingleton()))
		panicked := false
		require.NoError(t, k.AddContributor(kernel.ModelContributorFunc(func(m *kernel.ComponentModel) error {
			inner := m.Activator
			m.Activator = kernel.ActivatorFunc(func(ctx *kernel.CreationContext) (any, error) {
				if !panicked {
					panicked = true
					panic("first build")
				}
				return inner.Create(ctx)
			})
			return nil
		})))

		require.Panics(t, func() { _, _ = k.Resolve(storeType, nil) })

		done := make(chan error, 1)
		go func() { _, err := k.Resolve(storeType, nil); done <- err }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("singleton stayed locked after a panic")
		}
	})
}

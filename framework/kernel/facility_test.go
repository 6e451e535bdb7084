package kernel_test

import (
	"errors"
	"testing"

	"github.com/km-arc/go-locator/framework/kernel"
	"github.com/stretchr/testify/require"
)

type clock interface{ Now() int }

type fixedClock struct{ at int }

func (c *fixedClock) Now() int { return c.at }

type clockFactory struct {
	calls int
	fail  bool
}

func (f *clockFactory) Create() *fixedClock {
	f.calls++
	return &fixedClock{at: f.calls}
}

func (f *clockFactory) CreateOrFail() (clock, error) {
	if f.fail {
		return nil, errors.New("no clock today")
	}
	return &fixedClock{}, nil
}

func (f *clockFactory) CreateNil() clock { return nil }

func (f *clockFactory) Wrong() string { return "not a clock" }

func factoryConfig(id, method string) []kernel.Attribute {
	return []kernel.Attribute{
		kernel.Attrib(kernel.FactoryIDAttribute).Eq(id),
		kernel.Attrib(kernel.FactoryCreateAttribute).Eq(method),
	}
}

func newFactoryKernel(t *testing.T, f *clockFactory, method string) *kernel.Kernel {
	t.Helper()
	k := kernel.New()
	require.NoError(t, k.AddFacility(&kernel.FactorySupportFacility{}))
	require.NoError(t, k.Register(
		kernel.For(kernel.TypeOf[*clockFactory]()).Instance(f).Named("clocks"),
		kernel.For(kernel.TypeOf[clock]()).LifestyleTransient().Configuration(factoryConfig("clocks", method)...),
	))
	return k
}

func Test_FactorySupportFacility(t *testing.T) {
	t.Run("CallsFactoryOncePerResolution", func(t *testing.T) {
		f := &clockFactory{}
		k := newFactoryKernel(t, f, "Create")

		first, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.NoError(t, err)
		second, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.NoError(t, err)

		require.Equal(t, 2, f.calls)
		require.Equal(t, 1, first.(clock).Now())
		require.Equal(t, 2, second.(clock).Now())
	})

	t.Run("FactoryError", func(t *testing.T) {
		k := newFactoryKernel(t, &clockFactory{fail: true}, "CreateOrFail")

		_, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.ErrorContains(t, err, "no clock today")
	})

	t.Run("NilResult", func(t *testing.T) {
		k := newFactoryKernel(t, &clockFactory{}, "CreateNil")

		_, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.ErrorIs(t, err, kernel.ErrActivation)
	})

	t.Run("WrongResultType", func(t *testing.T) {
		k := newFactoryKernel(t, &clockFactory{}, "Wrong")

		_, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.ErrorIs(t, err, kernel.ErrActivation)
	})

	t.Run("MissingMethod", func(t *testing.T) {
		k := newFactoryKernel(t, &clockFactory{}, "Build")

		_, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.ErrorIs(t, err, kernel.ErrActivation)
	})

	t.Run("MissingFactoryComponent", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.AddFacility(&kernel.FactorySupportFacility{}))
		require.NoError(t, k.Register(kernel.For(kernel.TypeOf[clock]()).Configuration(factoryConfig("nowhere", "Create")...)))

		_, err := k.Resolve(kernel.TypeOf[clock](), nil)
		var nf *kernel.ComponentNotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, "nowhere", nf.Name)
		var dep *kernel.DependencyError
		require.ErrorAs(t, err, &dep)
		require.False(t, kernel.IsComponentNotFound(err), "the clock component exists")
	})

	t.Run("MissingFactoryComponentResolvedByName", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.AddFacility(&kernel.FactorySupportFacility{}))
		require.NoError(t, k.Register(kernel.For(kernel.TypeOf[clock]()).Named("clock").Configuration(factoryConfig("nowhere", "Create")...)))

		_, err := k.ResolveNamed("clock", kernel.TypeOf[clock](), nil)
		require.Error(t, err)
		require.False(t, kernel.IsComponentNotFound(err))
		require.ErrorContains(t, err, `component "clock"`)
	})

	t.Run("IncompleteConfiguration", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.AddFacility(&kernel.FactorySupportFacility{}))

		err := k.Register(kernel.For(kernel.TypeOf[clock]()).Configuration(kernel.Attrib(kernel.FactoryIDAttribute).Eq("clocks")))
		require.ErrorIs(t, err, kernel.ErrInvalidRegistration)
	})

	t.Run("AppliesToEarlierRegistrations", func(t *testing.T) {
		f := &clockFactory{}
		k := kernel.New()
		require.NoError(t, k.Register(
			kernel.For(kernel.TypeOf[*clockFactory]()).Instance(f).Named("clocks"),
			kernel.For(kernel.TypeOf[clock]()).Configuration(factoryConfig("clocks", "Create")...),
		))
		require.NoError(t, k.AddFacility(&kernel.FactorySupportFacility{}))

		_, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.NoError(t, err)
		require.Equal(t, 1, f.calls)
	})

	t.Run("WithoutFacilityTheServiceIsBuiltDirectly", func(t *testing.T) {
		k := kernel.New()
		require.NoError(t, k.Register(kernel.For(kernel.TypeOf[clock]()).Configuration(factoryConfig("clocks", "Create")...)))

		_, err := k.Resolve(kernel.TypeOf[clock](), nil)
		require.ErrorIs(t, err, kernel.ErrActivation)
	})
}

func Test_Facilities(t *testing.T) {
	k := kernel.New()
	require.Empty(t, k.Facilities())

	f := &kernel.FactorySupportFacility{}
	require.NoError(t, k.AddFacility(f))
	require.Equal(t, []kernel.Facility{f}, k.Facilities())

	require.Error(t, k.AddFacility(nil))
}

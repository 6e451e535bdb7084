// Package kernel is a small reflection-based component kernel: the engine
// that stores registrations and builds instances for the service locator.
//
// # Registering
//
//	k := kernel.New()
//
//	// Transient service with a concrete implementation
//	k.Register(kernel.For(kernel.TypeOf[Greeter]()).
//	    ImplementedBy(kernel.TypeOf[*englishGreeter]()).
//	    LifestyleTransient())
//
//	// Pre-built value under a name
//	k.Register(kernel.For(kernel.TypeOf[*Config]()).Instance(cfg).Named("config"))
//
//	// Skip if Greeter already has a component
//	k.Register(kernel.For(kernel.TypeOf[Greeter]()).
//	    ImplementedBy(kernel.TypeOf[*frenchGreeter]()).
//	    OnlyNewServices())
//
// # Resolving
//
//	g, err := k.Resolve(kernel.TypeOf[Greeter](), nil)
//	g, err := k.ResolveNamed("english", kernel.TypeOf[Greeter](), nil)
//	all, err := k.ResolveAll(kernel.TypeOf[Greeter]())
//
// Constructor parameters are the exported fields of a struct implementation.
// The args map overrides them by name:
//
//	type englishGreeter struct {
//	    Salutation string `locator:"salutation" default:"Hello"`
//	    Logger     *slog.Logger // wired if *slog.Logger is registered
//	}
//
//	g, err := k.Resolve(kernel.TypeOf[Greeter](), map[string]any{"salutation": "Howdy"})
//
// # Facilities
//
// Facilities rewrite component models as they are registered. The bundled
// FactorySupportFacility builds a component by calling a method on another
// named component:
//
//	k.AddFacility(&kernel.FactorySupportFacility{})
//	k.Register(kernel.For(kernel.TypeOf[*clockFactory]()).Instance(&clockFactory{}).Named("clocks"))
//	k.Register(kernel.For(kernel.TypeOf[Clock]()).Configuration(
//	    kernel.Attrib(kernel.FactoryIDAttribute).Eq("clocks"),
//	    kernel.Attrib(kernel.FactoryCreateAttribute).Eq("Create"),
//	))
//
// # Release policies
//
// By default kernel-built instances implementing io.Closer are tracked and
// closed by Kernel.Close. Use NoTrackingReleasePolicy to leave that to the
// caller.
package kernel

// Package locator is a service locator that hides which dependency-injection
// kernel builds the application's services.
//
// # Lifecycle
//
//  1. Create: l := locator.New()  (or locator.NewWithKernel(k) for your own kernel)
//  2. Register services, directly or through a ProviderRegistry
//  3. Resolve by type or by name
//
// # Registering
//
// Every registration is first-wins: registering a type or name that is
// already taken does nothing and returns nil.
//
//	// Interface → implementation, transient
//	l.Register(locator.TypeOf[Mailer](), locator.TypeOf[*smtpMailer]())
//	locator.RegisterType[Mailer, *smtpMailer](l)
//
//	// Same, under a name
//	l.RegisterWithName(locator.TypeOf[Mailer](), locator.TypeOf[*logMailer](), "log")
//
//	// Pre-built value, named after its type unless a name is given
//	l.RegisterInstance(locator.TypeOf[*Config](), cfg)
//
//	// Producer called once per resolution
//	l.RegisterFactoryMethod(locator.TypeOf[Clock](), func() any { return realClock{} })
//
// # Resolving
//
//	m, err := l.GetInstance(locator.TypeOf[Mailer]())
//	m, err := locator.GetInstanceOf[Mailer](l)
//	m, err := locator.GetNamedInstanceOf[Mailer](l, "log")
//	all, err := locator.GetAllInstancesOf[Mailer](l)
//
// Constructor parameters of struct implementations can be overridden per call:
//
//	m, err := locator.GetInstanceOf[Mailer](l, locator.Param("host", "smtp.test"))
//
// # Errors
//
// A failed resolution by type always returns *RegistrationNotFoundError,
// whatever the kernel reported. A failed resolution by name returns it only
// when the named component does not exist; other kernel errors come back
// unchanged. The generic helpers return *InvalidCastError when the resolved
// value is not the requested type.
package locator

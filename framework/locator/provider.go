package locator

import (
	"github.com/pkg/errors"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registrations of one part of an application.
//
// Register only registers. Boot runs after every provider has registered,
// so it is the place to resolve other services.
//
//	type MailProvider struct{ locator.BaseProvider }
//
//	func (p *MailProvider) Register(l locator.ServiceLocator) error {
//	    return locator.RegisterType[Mailer, *smtpMailer](l)
//	}
type ServiceProvider interface {
	Register(l ServiceLocator) error
	Boot(l ServiceLocator) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable no-op Boot.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ ServiceLocator) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots ServiceProviders against one locator.
type ProviderRegistry struct {
	locator    ServiceLocator
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to l.
func NewProviderRegistry(l ServiceLocator) *ProviderRegistry {
	return &ProviderRegistry{
		locator:    l,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register calls provider.Register. A provider added twice is ignored; one
// added after Boot is booted immediately.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	if err := provider.Register(r.locator); err != nil {
		return errors.Wrapf(err, "provider %T: register", provider)
	}
	r.registered[provider] = true
	r.providers = append(r.providers, provider)

	if r.booted {
		if err := provider.Boot(r.locator); err != nil {
			return errors.Wrapf(err, "provider %T: boot", provider)
		}
	}
	return nil
}

// Boot calls Boot on every registered provider, in registration order.
// Calling it again does nothing.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.providers {
		if err := provider.Boot(r.locator); err != nil {
			return errors.Wrapf(err, "provider %T: boot", provider)
		}
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }

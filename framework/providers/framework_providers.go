package providers

import (
	"log/slog"

	"github.com/km-arc/go-locator/framework/config"
	"github.com/km-arc/go-locator/framework/locator"
	"github.com/km-arc/go-locator/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider registers the application configuration.
//
// Registered:
//   - *config.Config (instance; loaded from EnvFiles when Config is nil)
type ConfigServiceProvider struct {
	locator.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(l locator.ServiceLocator) error {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load(p.EnvFiles...)
	}
	return locator.RegisterInstanceOf(l, cfg)
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider registers the application logger.
//
// Registered:
//   - *slog.Logger (instance; slog.Default() when Logger is nil)
type LoggingServiceProvider struct {
	locator.BaseProvider
	Logger *slog.Logger
}

func (p *LoggingServiceProvider) Register(l locator.ServiceLocator) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return locator.RegisterInstanceOf(l, logger)
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router. The router builds its
// controllers through the same locator.
//
// Registered:
//   - *routing.Router (instance)
type RoutingServiceProvider struct {
	locator.BaseProvider
	Options []routing.Option
}

func (p *RoutingServiceProvider) Register(l locator.ServiceLocator) error {
	return locator.RegisterInstanceOf(l, routing.New(l, p.Options...))
}

package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/km-arc/go-locator/framework/config"
	"github.com/km-arc/go-locator/framework/kernel"
	"github.com/km-arc/go-locator/framework/kernel/golobby"
	"github.com/km-arc/go-locator/framework/locator"
	"github.com/km-arc/go-locator/framework/logging"
	"github.com/km-arc/go-locator/framework/providers"
	"github.com/km-arc/go-locator/framework/routing"
	"github.com/pkg/errors"
)

// Kernel is a locator kernel the application can close on shutdown.
type Kernel interface {
	locator.Kernel
	io.Closer
}

// Application wires configuration, logging, the component kernel, the
// service locator and the framework providers together.
type Application struct {
	Locator   *locator.Locator
	Providers *locator.ProviderRegistry

	config *config.Config
	logger *slog.Logger
	kernel Kernel
}

// New loads configuration from envFiles (default .env) and builds the
// application.
func New(envFiles ...string) (*Application, error) {
	return NewWithConfig(config.Load(envFiles...))
}

// NewWithConfig builds the application from cfg. The kernel and its release
// policy are chosen by cfg.Locator.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.New(cfg.Log)

	k, err := NewKernel(cfg.Locator, logger)
	if err != nil {
		return nil, err
	}
	l, err := locator.NewWithKernel(k, locator.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	a := &Application{
		Locator:   l,
		Providers: locator.NewProviderRegistry(l),
		config:    cfg,
		logger:    logger,
		kernel:    k,
	}

	core := []locator.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: logger},
		&providers.RoutingServiceProvider{Options: []routing.Option{
			routing.WithLogger(logger),
			// resolution errors never reach production clients
			routing.WithDebug(a.IsDebug() && !a.IsProduction()),
		}},
	}
	for _, p := range core {
		if err := a.Register(p); err != nil {
			return nil, err
		}
	}
	logger.Debug("application created",
		slog.String("kernel", cfg.Locator.Kernel),
		slog.String("release_policy", cfg.Locator.ReleasePolicy))
	return a, nil
}

// NewKernel builds the kernel named by cfg.Kernel with the release policy
// named by cfg.ReleasePolicy.
func NewKernel(cfg config.LocatorConfig, logger *slog.Logger) (Kernel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var policy kernel.ReleasePolicy
	switch cfg.ReleasePolicy {
	case config.ReleaseNone, "":
		policy = kernel.NoTrackingReleasePolicy{}
	case config.ReleaseLifecycled:
		policy = kernel.NewLifecycledComponentsReleasePolicy()
	default:
		return nil, errors.Errorf("app: unknown release policy %q", cfg.ReleasePolicy)
	}

	switch cfg.Kernel {
	case config.KernelDefault, "":
		return kernel.New(kernel.WithLogger(logger), kernel.WithReleasePolicy(policy)), nil
	case config.KernelGolobby:
		return golobby.New(golobby.WithLogger(logger), golobby.WithReleasePolicy(policy)), nil
	default:
		return nil, errors.Errorf("app: unknown kernel %q", cfg.Kernel)
	}
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider locator.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

func (a *Application) Config() *config.Config { return a.config }
func (a *Application) Logger() *slog.Logger   { return a.logger }

// Router resolves the shared *routing.Router.
func (a *Application) Router() *routing.Router {
	return locator.MustGetInstanceOf[*routing.Router](a.Locator)
}

// Run boots the application (if needed) and serves HTTP on App.Port until ctx
// is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + a.config.App.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	a.logger.Info("server started",
		slog.String("app", a.config.App.Name),
		slog.String("addr", srv.Addr),
		slog.String("env", a.Environment()),
		slog.Bool("debug", a.IsDebug()))

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "app: serve")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Close releases every instance the kernel's release policy tracks.
func (a *Application) Close() error {
	return a.kernel.Close()
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }

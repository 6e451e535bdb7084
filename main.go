package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-locator/framework/app"
	gohttp "github.com/km-arc/go-locator/framework/http"
	"github.com/km-arc/go-locator/framework/locator"
	"github.com/km-arc/go-locator/framework/routing"
)

func main() {
	application, err := app.New() // loads .env automatically
	if err != nil {
		slog.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Register(&GreetingServiceProvider{}); err != nil {
		application.Logger().Error("register failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Logger().Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

// ── Services ─────────────────────────────────────────────────────────────────

// Greeter builds greetings.
type Greeter interface {
	Greet(name string) string
}

type englishGreeter struct {
	Salutation string `locator:"salutation" default:"Hello"`
}

func (g *englishGreeter) Greet(name string) string {
	return fmt.Sprintf("%s, %s!", g.Salutation, name)
}

type pirateGreeter struct{}

func (pirateGreeter) Greet(name string) string { return "Ahoy, " + name + "!" }

// ── Controllers ──────────────────────────────────────────────────────────────

// greetController is resolved per request: Name comes from the route,
// Greeter from the locator.
type greetController struct {
	Name    string
	Greeter Greeter
}

func (c *greetController) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(map[string]any{"greeting": c.Greeter.Greet(c.Name)})
}

// greetingsController lists every registered greeter's greeting.
type greetingsController struct {
	Locator locator.ServiceLocator `locator:"-"`
}

func (c *greetingsController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	greeters, err := locator.GetAllInstancesOf[Greeter](c.Locator)
	if err != nil {
		res.ServerError(err.Error())
		return
	}
	name := routing.Param(r, "name")
	out := make([]string, 0, len(greeters))
	for _, g := range greeters {
		out = append(out, g.Greet(name))
	}
	res.Success(out)
}

// ── Provider ─────────────────────────────────────────────────────────────────

// GreetingServiceProvider registers the greeters and their routes.
type GreetingServiceProvider struct{}

func (p *GreetingServiceProvider) Register(l locator.ServiceLocator) error {
	if err := locator.RegisterType[Greeter, *englishGreeter](l); err != nil {
		return err
	}
	if err := locator.RegisterTypeWithName[Greeter, pirateGreeter](l, "pirate"); err != nil {
		return err
	}
	if err := locator.RegisterType[*greetController, *greetController](l); err != nil {
		return err
	}
	return locator.RegisterFactory(l, func() *greetingsController {
		return &greetingsController{Locator: l}
	})
}

func (p *GreetingServiceProvider) Boot(l locator.ServiceLocator) error {
	r, err := locator.GetInstanceOf[*routing.Router](l)
	if err != nil {
		return err
	}
	r.Prefix("/api", func(api *routing.Router) {
		routing.Handle[*greetController](api, http.MethodGet, "/greet/{name}")
		routing.Handle[*greetingsController](api, http.MethodGet, "/greetings/{name}")
	})
	return nil
}

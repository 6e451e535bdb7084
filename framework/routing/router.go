package routing

import (
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gohttp "github.com/km-arc/go-locator/framework/http"
	"github.com/km-arc/go-locator/framework/locator"
)

// RequestParam is the constructor parameter a resolved controller receives
// the current *http.Request under. Route parameters are passed under their
// own names.
const RequestParam = "Request"

// Router wraps chi.Router and builds controllers through a service locator.
type Router struct {
	mux     chi.Router
	locator locator.ServiceLocator
	logger  *slog.Logger
	debug   bool
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the request and resolution logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithDebug exposes resolution errors in 500 responses.
func WithDebug(debug bool) Option {
	return func(r *Router) { r.debug = debug }
}

// New creates a Router over l with request IDs, real IPs, request logging
// and panic recovery.
func New(l locator.ServiceLocator, opts ...Option) *Router {
	r := &Router{mux: chi.NewRouter(), locator: l, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.mux.Use(middleware.RequestID)
	r.mux.Use(middleware.RealIP)
	r.mux.Use(requestLogger(r.logger))
	r.mux.Use(middleware.Recoverer)
	return r
}

func (r *Router) sub(mx chi.Router) *Router {
	return &Router{mux: mx, locator: r.locator, logger: r.logger, debug: r.debug}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// ── Controllers ──────────────────────────────────────────────────────────────

// Controller routes method+pattern to a fresh instance of t per request. t
// must resolve to an http.Handler; the request and the route parameters are
// passed as constructor parameters:
//
//	type showUser struct {
//	    Request *http.Request
//	    ID      int           // from {id}
//	    Users   UserStore     // wired by the locator
//	}
//
//	r.Controller(http.MethodGet, "/users/{id}", locator.TypeOf[*showUser]())
func (r *Router) Controller(method, pattern string, t reflect.Type) {
	r.mux.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h, ok := resolveAs[http.Handler](r, w, req, t)
		if !ok {
			return
		}
		h.ServeHTTP(w, req)
	}))
}

// Handle is Controller for a type parameter.
//
//	routing.Handle[*showUser](r, http.MethodGet, "/users/{id}")
func Handle[T http.Handler](r *Router, method, pattern string) {
	r.Controller(method, pattern, locator.TypeOf[T]())
}

// ResourceController is the set of RESTful actions Resource routes to.
//
//	GET    /photos           → c.Index
//	POST   /photos           → c.Store
//	GET    /photos/{id}      → c.Show
//	PUT    /photos/{id}      → c.Update
//	DELETE /photos/{id}      → c.Destroy
type ResourceController interface {
	Index(w http.ResponseWriter, r *http.Request)
	Store(w http.ResponseWriter, r *http.Request)
	Show(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Destroy(w http.ResponseWriter, r *http.Request)
}

// Resource registers the RESTful routes of pattern, resolving a fresh t per
// request the same way Controller does.
func (r *Router) Resource(pattern string, t reflect.Type) {
	action := func(pick func(ResourceController) http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			c, ok := resolveAs[ResourceController](r, w, req, t)
			if !ok {
				return
			}
			pick(c)(w, req)
		}
	}
	r.mux.Get(pattern, action(func(c ResourceController) http.HandlerFunc { return c.Index }))
	r.mux.Post(pattern, action(func(c ResourceController) http.HandlerFunc { return c.Store }))
	r.mux.Get(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Show }))
	r.mux.Put(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Update }))
	r.mux.Patch(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Update }))
	r.mux.Delete(pattern+"/{id}", action(func(c ResourceController) http.HandlerFunc { return c.Destroy }))
}

// resolveAs resolves t for req and writes a 500 when that fails.
func resolveAs[T any](r *Router, w http.ResponseWriter, req *http.Request, t reflect.Type) (T, bool) {
	v, err := locator.GetInstanceAs[T](r.locator, t, requestArgs(req)...)
	if err != nil {
		r.logger.ErrorContext(req.Context(), "routing: cannot resolve controller",
			slog.String("controller", t.String()),
			slog.String("path", req.URL.Path),
			slog.String("request_id", middleware.GetReqID(req.Context())),
			slog.Any("error", err))
		gohttp.NewResponse(w).ResolutionError(err, r.debug)
		return v, false
	}
	return v, true
}

func requestArgs(req *http.Request) []locator.ResolutionArgument {
	args := []locator.ResolutionArgument{locator.Param(RequestParam, req)}
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		return args
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		args = append(args, locator.Param(key, rctx.URLParams.Values[i]))
	}
	return args
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing the parent's prefix.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(r.sub(mx))
	})
}

// Prefix creates a sub-router mounted under pattern.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(r.sub(mx))
	})
}

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Params ───────────────────────────────────────────────────────────────────

// Param extracts a URL param.
func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler so Router can be passed to http.ListenAndServe.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler returns the underlying http.Handler (for testing etc.).
func (r *Router) Handler() http.Handler {
	return r.mux
}

// ── Logging ──────────────────────────────────────────────────────────────────

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.InfoContext(req.Context(), "request",
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Duration("duration", time.Since(start)),
					slog.String("request_id", middleware.GetReqID(req.Context())))
			}()
			next.ServeHTTP(ww, req)
		})
	}
}

package keel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoKey is returned by Setup when a route requires authentication but no
// token key is configured
var ErrNoKey = errors.New("keel: authenticated routes need Options.Key")

// Options configures an App
type Options struct {
	// Debug renders tracebacks in error responses
	Debug bool

	// Logger receives registration, authentication and error logs.
	// Defaults to a disabled logger.
	Logger *zerolog.Logger

	// Key verifies bearer tokens of routes declared WithAuth
	Key *Key

	// Interceptors run around handlers in addition to the built-in
	// authentication and logging interceptors
	Interceptors []Interceptor

	// Registry records registered routes. Defaults to an InMemoryRouteRegistry.
	Registry RouteRegistry

	// Metrics enables request metrics; MetricsPath serves them when set
	Metrics     *Metrics
	MetricsPath string

	// OpenAPIPath serves the generated OpenAPI document when set
	OpenAPIPath string
	OpenAPIInfo OpenAPIInfo

	// ShutdownTimeout bounds Stop when Run's context ends (default: 30s)
	ShutdownTimeout time.Duration
}

// App binds controllers onto a web server through a container
type App struct {
	server    WebServerInterface
	container *Container
	opts      Options
	logger    zerolog.Logger

	mu       sync.Mutex
	defs     []controllerDef
	setup    sync.Once
	setupErr error
	started  bool
}

// New creates an App serving on server and resolving controllers from container
func New(server WebServerInterface, container *Container, opts Options) *App {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.Registry == nil {
		opts.Registry = NewInMemoryRouteRegistry()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	if container == nil {
		container = NewContainer()
	}
	return &App{
		server:    server,
		container: container,
		opts:      opts,
		logger:    logger,
	}
}

// Container returns the application container
func (a *App) Container() *Container { return a.container }

// Server returns the web server
func (a *App) Server() WebServerInterface { return a.server }

// Registry returns the route registry
func (a *App) Registry() RouteRegistry { return a.opts.Registry }

// AddController registers factory as the provider for C and queues ctrl's
// routes for Setup. Controllers cannot be added once Setup ran.
func AddController[C any](app *App, ctrl *Controller[C], scope Scope, factory Factory[C]) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.started {
		return ErrAlreadyStarted
	}
	Provide(app.container, scope, factory)
	app.defs = append(app.defs, newControllerDef(ctrl, app.container))
	return nil
}

// Setup installs the middleware and registers every controller route. It runs
// once; later calls return the first result.
func (a *App) Setup() error {
	a.setup.Do(func() {
		a.mu.Lock()
		a.started = true
		defs := a.defs
		a.mu.Unlock()

		a.setupErr = a.doSetup(defs)
	})
	return a.setupErr
}

func (a *App) doSetup(defs []controllerDef) error {
	if a.opts.Key == nil && requiresAuth(defs) {
		return ErrNoKey
	}

	// gin and fiber bind middleware when a route is added, so middleware
	// goes in before any route
	a.server.Use(ContextScope(a.container))
	if a.opts.Metrics != nil {
		a.server.Use(a.opts.Metrics.Middleware())
	}
	a.server.Use(ErrorHandling(a.opts.Debug, a.logger))

	interceptors := []Interceptor{NewLoggingInterceptor(a.logger)}
	if a.opts.Key != nil {
		interceptors = append(interceptors, NewAuthInterceptor(a.logger, a.opts.Key))
	}
	interceptors = append(interceptors, a.opts.Interceptors...)

	r := &registrar{
		server:    a.server,
		container: a.container,
		logger:    a.logger,
		registry:  a.opts.Registry,
		chain:     sortInterceptors(interceptors),
	}
	r.register(defs)

	if a.opts.Metrics != nil && a.opts.MetricsPath != "" {
		a.server.RegisterRoute(http.MethodGet, Path(a.opts.MetricsPath), a.opts.Metrics.Handler())
	}
	if a.opts.OpenAPIPath != "" {
		a.server.RegisterRoute(http.MethodGet, Path(a.opts.OpenAPIPath), a.openAPIHandler())
	}

	a.logger.Info().
		Str("server", a.server.Name()).
		Int("controllers", len(defs)).
		Int("routes", len(a.opts.Registry.GetAllRoutes())).
		Msg("keel application set up")
	return nil
}

func (a *App) openAPIHandler() HandlerFunc {
	build := sync.OnceValues(func() (any, error) {
		return BuildOpenAPI(a.opts.OpenAPIInfo, a.opts.Registry.GetAllRoutes())
	})
	return func(rc RequestContext) error {
		doc, err := build()
		if err != nil {
			return InternalServerError(err)
		}
		return rc.Response().JSON(http.StatusOK, doc)
	}
}

func requiresAuth(defs []controllerDef) bool {
	for _, def := range defs {
		for _, b := range def.routes() {
			if b.ws == nil && b.spec.Auth != nil {
				return true
			}
		}
	}
	return false
}

// Start sets the app up and serves on addr until the server stops
func (a *App) Start(addr string) error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.logger.Info().Str("addr", addr).Str("server", a.server.Name()).Msg("starting server")
	return a.server.Start(addr)
}

// Stop gracefully shuts the server down
func (a *App) Stop(ctx context.Context) error {
	return a.server.Stop(ctx)
}

// Run starts the server and shuts it down once ctx is done
func (a *App) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.opts.ShutdownTimeout)
	defer cancel()
	if err := a.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info().Msg("server shutdown complete")
	return nil
}

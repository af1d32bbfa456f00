package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/toyz/keel/internal/config"
	"github.com/toyz/keel/internal/demo"
	"github.com/toyz/keel/internal/logger"
	"github.com/toyz/keel/pkg/keel"
	"github.com/toyz/keel/pkg/keel/adapters"
	"github.com/toyz/keel/pkg/keel/fxkeel"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.New("keel-demo", cfg.LogLevel)

	// Run blocks until SIGINT or SIGTERM
	fx.New(appOptions(cfg, log)).Run()
}

func appOptions(cfg *config.Config, log *logger.Logger) fx.Option {
	return fx.Options(
		fx.WithLogger(func() fxevent.Logger {
			return fxLogger{log: log.Zerolog()}
		}),
		fx.StopTimeout(cfg.ShutdownTimeout),
		fx.Supply(cfg, fxkeel.Addr(cfg.Addr()), log.Zerolog()),
		fx.Provide(
			newServer,
			newKey,
			newContainer,
			newOptions,
		),
		fxkeel.Module,
		fx.Invoke(registerDemo),
	)
}

// newServer builds the configured adapter with the framework's own recover
// middleware outermost, for panics raised outside keel's middleware
func newServer(cfg *config.Config) (keel.WebServerInterface, error) {
	switch cfg.Adapter {
	case "echo":
		server := adapters.NewDefaultEchoAdapter()
		server.GetEngine().Use(middleware.Recover())
		return server, nil
	case "gin":
		if !cfg.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		server := adapters.NewDefaultGinAdapter()
		server.GetEngine().Use(gin.Recovery())
		return server, nil
	case "fiber":
		server := adapters.NewDefaultFiberAdapter()
		server.GetApp().Use(fiberrecover.New())
		return server, nil
	}
	return nil, fmt.Errorf("unknown adapter %q", cfg.Adapter)
}

// newKey decodes the configured secret. Without one a random key is used and
// tokens do not survive a restart.
func newKey(cfg *config.Config, log *zerolog.Logger) (*keel.Key, error) {
	if cfg.TokenSecret != "" {
		key, err := keel.KeyFromBase64(cfg.TokenSecret)
		if err != nil {
			return nil, fmt.Errorf("token secret: %w", err)
		}
		return key, nil
	}
	log.Warn().Msg("no token secret configured, using a random key")
	return keel.NewKey(32)
}

func newContainer(key *keel.Key) *keel.Container {
	container := keel.NewContainer()
	keel.ProvideValue(container, key)
	return container
}

func newOptions(cfg *config.Config, key *keel.Key, log *zerolog.Logger) keel.Options {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return keel.Options{
		Debug:           cfg.Debug,
		Logger:          log,
		Key:             key,
		Metrics:         keel.NewMetrics(registry),
		MetricsPath:     cfg.MetricsPath,
		OpenAPIPath:     cfg.OpenAPIPath,
		ShutdownTimeout: cfg.ShutdownTimeout,
		OpenAPIInfo: keel.OpenAPIInfo{
			Title:       "keel demo",
			Version:     "1.0.0",
			Description: "Dummy controller served on " + cfg.Adapter,
		},
	}
}

func registerDemo(app *keel.App, cfg *config.Config) error {
	return demo.Register(app, demo.Settings{
		FilesDir: cfg.FilesDir,
		TokenTTL: cfg.TokenTTL,
	})
}

// fxLogger writes fx events through zerolog
type fxLogger struct {
	log *zerolog.Logger
}

func (l fxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("start hook failed")
		}
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("stop hook failed")
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Msg("provide failed")
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("function", e.FunctionName).Msg("invoke failed")
		}
	case *fxevent.Stopping:
		l.log.Info().Str("signal", e.Signal.String()).Msg("received signal")
	case *fxevent.Started:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Msg("start failed")
		} else {
			l.log.Debug().Msg("started")
		}
	}
}

// Package fxkeel runs a keel App inside an fx application
package fxkeel

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/toyz/keel/pkg/keel"
	"go.uber.org/fx"
)

// Addr is the listen address handed to the web server
type Addr string

// Module provides the *keel.App and starts it with the fx lifecycle. The
// application must supply a keel.WebServerInterface, keel.Options and an Addr;
// controllers are added from fx.Invoke functions, which run before OnStart.
var Module = fx.Module("keel",
	fx.Provide(NewApp),
	fx.Invoke(Register),
)

// AppParams are the dependencies of NewApp
type AppParams struct {
	fx.In

	Server    keel.WebServerInterface
	Options   keel.Options
	Container *keel.Container `optional:"true"`
}

// NewApp creates the keel App
func NewApp(p AppParams) *keel.App {
	return keel.New(p.Server, p.Container, p.Options)
}

// LifecycleParams are the dependencies of Register
type LifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	App        *keel.App
	Addr       Addr
	Logger     *zerolog.Logger `optional:"true"`
}

// Register sets the app up on start, serves in the background and stops the
// server on shutdown. A server that fails to listen shuts the fx app down.
func Register(p LifecycleParams) {
	logger := zerolog.Nop()
	if p.Logger != nil {
		logger = *p.Logger
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.App.Setup(); err != nil {
				return err
			}
			server := p.App.Server()
			logger.Info().Str("server", server.Name()).Str("addr", string(p.Addr)).Msg("starting server")
			go func() {
				if err := server.Start(string(p.Addr)); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("server stopped")
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Str("server", p.App.Server().Name()).Msg("stopping server")
			return p.App.Stop(ctx)
		},
	})
}

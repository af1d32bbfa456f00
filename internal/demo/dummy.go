// Package demo holds the dummy controller served by keel-demo and used by the
// end-to-end tests of every adapter.
package demo

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/toyz/keel/pkg/keel"
)

// Dummy is the body echoed by the POST, PUT and PATCH routes
type Dummy struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// Settings configure the dummy controller
type Settings struct {
	// FilesDir is the directory the file routes serve from
	FilesDir string
	// TokenTTL is the lifetime of tokens issued by Login
	TokenTTL time.Duration
}

// DummyController exercises every route kind keel supports
type DummyController struct {
	key      *keel.Key
	settings Settings
}

// NewDummyController creates the controller. A nil key disables Login.
func NewDummyController(key *keel.Key, settings Settings) *DummyController {
	if settings.TokenTTL == 0 {
		settings.TokenTTL = 30 * 24 * time.Hour
	}
	return &DummyController{key: key, settings: settings}
}

// Routes is the route table of DummyController
func Routes() *keel.Controller[*DummyController] {
	ctrl := keel.NewController[*DummyController]("/dummy", keel.WithControllerTags("dummy"))

	keel.Handle(ctrl, keel.GET("", keel.WithResponseClass(keel.PlainTextResponse), keel.WithLogging()), (*DummyController).GetDummy)
	keel.Handle(ctrl, keel.GET("/file/{name}",
		keel.WithResponseClass(keel.FileResponse),
		keel.WithDescription("Get file by given name"),
		keel.WithLogging(),
	), (*DummyController).GetFile)
	keel.Handle(ctrl, keel.POST("", keel.WithLogging()), (*DummyController).PostDummy)
	keel.Handle(ctrl, keel.PUT("", keel.WithLogging()), (*DummyController).PutDummy)
	keel.Handle(ctrl, keel.PATCH("", keel.WithLogging()), (*DummyController).PatchDummy)
	keel.Handle(ctrl, keel.DELETE("/{id:uuid}", keel.WithLogging()), (*DummyController).DeleteDummy)
	keel.Handle(ctrl, keel.HEAD("", keel.WithResponseClass(keel.PlainTextResponse), keel.WithLogging()), (*DummyController).HeadDummy)
	keel.Handle(ctrl, keel.OPTIONS("", keel.WithResponseClass(keel.PlainTextResponse), keel.WithLogging()), (*DummyController).OptionsDummy)
	keel.HandleWebSocket(ctrl, keel.WebSocket("/ws"), (*DummyController).WebSocketDummy)
	keel.Handle(ctrl, keel.GET("/login", keel.WithLogging()), (*DummyController).Login)
	keel.Handle(ctrl, keel.GET("/users/profile", keel.WithAuth("/dummy/login"), keel.WithLogging()), (*DummyController).GetProfile)
	keel.Handle(ctrl, keel.GET("/verify-email", keel.WithLogging()), (*DummyController).VerifyEmail)
	keel.Handle(ctrl, keel.GET("/error", keel.WithLogging()), (*DummyController).RaiseError)

	return ctrl
}

// Register adds DummyController to app. The controller is built per request
// with the key found in the app container, if any.
func Register(app *keel.App, settings Settings) error {
	return keel.AddController(app, Routes(), keel.Prototype,
		func(ctx context.Context, c *keel.Container) (*DummyController, error) {
			var key *keel.Key
			if keel.Has[*keel.Key](c) {
				k, err := keel.Resolve[*keel.Key](ctx, c)
				if err != nil {
					return nil, err
				}
				key = k
			}
			return NewDummyController(key, settings), nil
		})
}

// GetDummy greets the caller
func (d *DummyController) GetDummy(ctx *keel.Context) (string, error) {
	return "Hello World!", nil
}

// GetFile serves a file of the files directory
func (d *DummyController) GetFile(ctx *keel.Context) (string, error) {
	name := ctx.Param("name")
	if name == "" || strings.Contains(name, "..") || strings.ContainsRune(name, filepath.Separator) {
		return "", keel.BadRequest(keel.NewError("invalid file name", name))
	}
	return filepath.Join(d.settings.FilesDir, name), nil
}

// PostDummy echoes the posted dummy
func (d *DummyController) PostDummy(ctx *keel.Context) (Dummy, error) {
	return bindDummy(ctx)
}

// PutDummy echoes the dummy
func (d *DummyController) PutDummy(ctx *keel.Context) (Dummy, error) {
	return bindDummy(ctx)
}

// PatchDummy echoes the dummy
func (d *DummyController) PatchDummy(ctx *keel.Context) (Dummy, error) {
	return bindDummy(ctx)
}

func bindDummy(ctx *keel.Context) (Dummy, error) {
	var dummy Dummy
	err := ctx.BindJSON(&dummy)
	return dummy, err
}

// DeleteDummy returns the id of the deleted dummy
func (d *DummyController) DeleteDummy(ctx *keel.Context) (uuid.UUID, error) {
	return ctx.ParamUUID("id")
}

// HeadDummy answers HEAD without a body
func (d *DummyController) HeadDummy(ctx *keel.Context) (*string, error) {
	return nil, nil
}

// OptionsDummy answers OPTIONS
func (d *DummyController) OptionsDummy(ctx *keel.Context) (string, error) {
	return "Hello Options!", nil
}

// WebSocketDummy echoes one text message and closes the connection
func (d *DummyController) WebSocketDummy(ctx *keel.Context, conn keel.WebSocketConn) error {
	messageType, message, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return conn.WriteMessage(messageType, message)
}

// Login issues a token for the username query parameter
//
// keel::summary Issue a bearer token
func (d *DummyController) Login(ctx *keel.Context) (string, error) {
	username, err := ctx.Query().Require("username")
	if err != nil {
		return "", err
	}
	if d.key == nil {
		return "No key!", nil
	}
	return keel.NewToken().
		WithExpiration(d.settings.TokenTTL).
		WithClaim("username", username).
		Sign(d.key)
}

// GetProfile returns the username of the authenticated caller
func (d *DummyController) GetProfile(ctx *keel.Context) (string, error) {
	token, ok := ctx.Token(keel.DefaultTokenParam)
	if !ok {
		return "", keel.Unauthorized(keel.ErrAuthenticationFailed)
	}
	username, _ := token.Claim("username")
	name, _ := username.(string)
	return name, nil
}

// VerifyEmail rejects addresses without an @
func (d *DummyController) VerifyEmail(ctx *keel.Context) (*string, error) {
	email := ctx.Query().Get("email")
	if !strings.Contains(email, "@") {
		return nil, keel.BadRequest(keel.NewError("Invalid email"))
	}
	return nil, nil
}

// RaiseError always fails with an error the taxonomy does not know
func (d *DummyController) RaiseError(ctx *keel.Context) (*string, error) {
	return nil, errors.New("dummy failure")
}

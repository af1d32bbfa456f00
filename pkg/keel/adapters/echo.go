package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/toyz/keel/pkg/keel"
)

// EchoAdapter implements keel.WebServerInterface for Echo v4
type EchoAdapter struct {
	engine   *echo.Echo
	upgrader websocket.Upgrader
}

// NewEchoAdapter creates a new Echo adapter
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	return &EchoAdapter{engine: e}
}

// NewDefaultEchoAdapter creates a new Echo adapter with default Echo instance
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	return NewEchoAdapter(e)
}

// RegisterRoute registers a route with the Echo server
func (ea *EchoAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc, middlewares ...keel.MiddlewareFunc) {
	ea.engine.Add(method, echoPath(path), ea.convertHandler(handler), ea.convertMiddlewares(middlewares)...)
}

// RegisterWebSocket registers a websocket endpoint with the Echo server
func (ea *EchoAdapter) RegisterWebSocket(path keel.Path, handler keel.WebSocketHandlerFunc, middlewares ...keel.MiddlewareFunc) {
	ea.engine.GET(echoPath(path), ea.convertWebSocket(handler), ea.convertMiddlewares(middlewares)...)
}

// RegisterGroup creates a new route group
func (ea *EchoAdapter) RegisterGroup(prefix string) keel.RouteGroup {
	return &EchoGroupAdapter{group: ea.engine.Group(prefix), adapter: ea}
}

// Use adds global middleware
func (ea *EchoAdapter) Use(middleware keel.MiddlewareFunc) {
	ea.engine.Use(ea.convertMiddleware(middleware))
}

// Start starts the server
func (ea *EchoAdapter) Start(addr string) error {
	return ea.engine.Start(addr)
}

// Stop stops the server
func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}

// EchoGroupAdapter implements keel.RouteGroup for Echo groups
type EchoGroupAdapter struct {
	group   *echo.Group
	adapter *EchoAdapter
}

// RegisterRoute registers a route with the group
func (ega *EchoGroupAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc, middlewares ...keel.MiddlewareFunc) {
	ega.group.Add(method, echoPath(path), ega.adapter.convertHandler(handler), ega.adapter.convertMiddlewares(middlewares)...)
}

// RegisterWebSocket registers a websocket endpoint with the group
func (ega *EchoGroupAdapter) RegisterWebSocket(path keel.Path, handler keel.WebSocketHandlerFunc, middlewares ...keel.MiddlewareFunc) {
	ega.group.GET(echoPath(path), ega.adapter.convertWebSocket(handler), ega.adapter.convertMiddlewares(middlewares)...)
}

// Use adds middleware to the group
func (ega *EchoGroupAdapter) Use(middleware keel.MiddlewareFunc) {
	ega.group.Use(ega.adapter.convertMiddleware(middleware))
}

// Group creates a sub-group
func (ega *EchoGroupAdapter) Group(prefix string) keel.RouteGroup {
	return &EchoGroupAdapter{group: ega.group.Group(prefix), adapter: ega.adapter}
}

// echoPath converts a keel path to Echo syntax: /users/{id:int} -> /users/:id
func echoPath(path keel.Path) string {
	return path.ColonPath("*")
}

// convertHandler converts keel.HandlerFunc to echo.HandlerFunc
func (ea *EchoAdapter) convertHandler(handler keel.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handler(&EchoRequestContext{context: c})
	}
}

func (ea *EchoAdapter) convertMiddlewares(middlewares []keel.MiddlewareFunc) []echo.MiddlewareFunc {
	echoMiddlewares := make([]echo.MiddlewareFunc, len(middlewares))
	for i, mw := range middlewares {
		echoMiddlewares[i] = ea.convertMiddleware(mw)
	}
	return echoMiddlewares
}

// convertMiddleware converts keel.MiddlewareFunc to echo.MiddlewareFunc
func (ea *EchoAdapter) convertMiddleware(middleware keel.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			keelNext := func(keel.RequestContext) error {
				return fromEchoError(next(c))
			}
			return middleware(keelNext)(&EchoRequestContext{context: c})
		}
	}
}

// convertWebSocket upgrades the connection once the keel handler accepted it
func (ea *EchoAdapter) convertWebSocket(handler keel.WebSocketHandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := handler(&EchoRequestContext{context: c})
		if err != nil {
			return err
		}
		conn, err := ea.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader already replied
			return err
		}
		defer conn.Close()
		_ = session(conn)
		return nil
	}
}

// fromEchoError turns Echo's own errors (404 and 405 from the router, 400 from
// binding) into keel HTTP errors so they keep their status
func fromEchoError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return keel.NewHTTPError(he.Code, keel.NewError(fmt.Sprint(he.Message)))
	}
	return err
}

// EchoRequestContext implements keel.RequestContext for Echo
type EchoRequestContext struct {
	context echo.Context
}

// Method returns the HTTP method
func (erc *EchoRequestContext) Method() string {
	return erc.context.Request().Method
}

// Path returns the request path
func (erc *EchoRequestContext) Path() string {
	return erc.context.Request().URL.Path
}

// RealIP returns the real IP address
func (erc *EchoRequestContext) RealIP() string {
	return erc.context.RealIP()
}

// Context returns the request's context
func (erc *EchoRequestContext) Context() context.Context {
	return erc.context.Request().Context()
}

// SetContext replaces the request's context
func (erc *EchoRequestContext) SetContext(ctx context.Context) {
	erc.context.SetRequest(erc.context.Request().WithContext(ctx))
}

// Param returns path parameter by name
func (erc *EchoRequestContext) Param(key string) string {
	return erc.context.Param(key)
}

// ParamNames returns path parameter names
func (erc *EchoRequestContext) ParamNames() []string {
	return erc.context.ParamNames()
}

// QueryParam returns query parameter by name
func (erc *EchoRequestContext) QueryParam(key string) string {
	return erc.context.QueryParam(key)
}

// QueryParams returns all query parameters
func (erc *EchoRequestContext) QueryParams() map[string][]string {
	return erc.context.QueryParams()
}

// Header returns request header value
func (erc *EchoRequestContext) Header(key string) string {
	return erc.context.Request().Header.Get(key)
}

// Bind binds request body to provided struct
func (erc *EchoRequestContext) Bind(i any) error {
	return fromEchoError(erc.context.Bind(i))
}

// Response returns the response interface
func (erc *EchoRequestContext) Response() keel.ResponseInterface {
	return &EchoResponseInterface{context: erc.context}
}

// Get retrieves data from context
func (erc *EchoRequestContext) Get(key string) any {
	return erc.context.Get(key)
}

// Set stores data in context
func (erc *EchoRequestContext) Set(key string, val any) {
	erc.context.Set(key, val)
}

// EchoResponseInterface implements keel.ResponseInterface for Echo responses
type EchoResponseInterface struct {
	context echo.Context
}

// Status returns response status code
func (eri *EchoResponseInterface) Status() int {
	return eri.context.Response().Status
}

// Header returns response header value
func (eri *EchoResponseInterface) Header(key string) string {
	return eri.context.Response().Header().Get(key)
}

// SetHeader sets response header
func (eri *EchoResponseInterface) SetHeader(key, value string) {
	eri.context.Response().Header().Set(key, value)
}

// JSON writes JSON response
func (eri *EchoResponseInterface) JSON(code int, i any) error {
	return eri.context.JSON(code, i)
}

// String writes string response
func (eri *EchoResponseInterface) String(code int, s string) error {
	return eri.context.String(code, s)
}

// HTML writes HTML response
func (eri *EchoResponseInterface) HTML(code int, html string) error {
	return eri.context.HTML(code, html)
}

// Blob writes blob response
func (eri *EchoResponseInterface) Blob(code int, contentType string, b []byte) error {
	return eri.context.Blob(code, contentType, b)
}

// File streams a file
func (eri *EchoResponseInterface) File(path string) error {
	return fromEchoError(eri.context.File(path))
}

// NoContent writes headers only
func (eri *EchoResponseInterface) NoContent(code int) error {
	return eri.context.NoContent(code)
}

// Written returns whether response has been written
func (eri *EchoResponseInterface) Written() bool {
	return eri.context.Response().Committed
}

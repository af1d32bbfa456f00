package adapters

import (
	"context"
	"errors"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/toyz/keel/pkg/keel"
)

// fiberWrittenKey marks responses written through FiberResponse; fasthttp
// reports status 200 before anything is written
const fiberWrittenKey = "keel.written"

// FiberAdapter wraps a Fiber app to implement keel.WebServerInterface
type FiberAdapter struct {
	app      *fiber.App
	upgrader websocket.FastHTTPUpgrader
}

// NewFiberAdapter wraps an existing Fiber app
func NewFiberAdapter(app *fiber.App) *FiberAdapter {
	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter creates a new Fiber adapter. Errors that escape the
// keel middleware are answered with the keel error body.
func NewDefaultFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			he, ok := keel.AsHTTPError(fromFiberError(err))
			if !ok {
				he = keel.InternalServerError(err)
			}
			status, body := he.ToResponse(false)
			return c.Status(status).JSON(body)
		},
	})
	return NewFiberAdapter(app)
}

// fiberPath converts a keel path to Fiber format
func fiberPath(path keel.Path) string {
	return path.ColonPath("*")
}

// RegisterRoute registers a route with the Fiber app
func (fa *FiberAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc, middlewares ...keel.MiddlewareFunc) {
	fa.app.Add(method, fiberPath(path), fiberHandlers(convertKeelHandlerToFiber(handler), middlewares)...)
}

// RegisterWebSocket registers a websocket endpoint with the Fiber app
func (fa *FiberAdapter) RegisterWebSocket(path keel.Path, handler keel.WebSocketHandlerFunc, middlewares ...keel.MiddlewareFunc) {
	fa.app.Get(fiberPath(path), fiberHandlers(fa.convertWebSocket(handler), middlewares)...)
}

// RegisterGroup creates a new route group with the given prefix
func (fa *FiberAdapter) RegisterGroup(prefix string) keel.RouteGroup {
	return &FiberRouteGroup{group: fa.app.Group(prefix), adapter: fa}
}

// Use adds middleware to the Fiber app
func (fa *FiberAdapter) Use(middleware keel.MiddlewareFunc) {
	fa.app.Use(convertKeelMiddlewareToFiber(middleware))
}

// Start starts the Fiber server
func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

// Stop stops the Fiber server
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

// FiberRouteGroup wraps a Fiber route group to implement keel.RouteGroup
type FiberRouteGroup struct {
	group   fiber.Router
	adapter *FiberAdapter
}

// RegisterRoute registers a route with this group
func (frg *FiberRouteGroup) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc, middlewares ...keel.MiddlewareFunc) {
	frg.group.Add(method, fiberPath(path), fiberHandlers(convertKeelHandlerToFiber(handler), middlewares)...)
}

// RegisterWebSocket registers a websocket endpoint with this group
func (frg *FiberRouteGroup) RegisterWebSocket(path keel.Path, handler keel.WebSocketHandlerFunc, middlewares ...keel.MiddlewareFunc) {
	frg.group.Get(fiberPath(path), fiberHandlers(frg.adapter.convertWebSocket(handler), middlewares)...)
}

// Use adds middleware to this route group
func (frg *FiberRouteGroup) Use(middleware keel.MiddlewareFunc) {
	frg.group.Use(convertKeelMiddlewareToFiber(middleware))
}

// Group creates a sub-group with the given prefix
func (frg *FiberRouteGroup) Group(prefix string) keel.RouteGroup {
	return &FiberRouteGroup{group: frg.group.Group(prefix), adapter: frg.adapter}
}

func fiberHandlers(final fiber.Handler, middlewares []keel.MiddlewareFunc) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(middlewares)+1)
	for _, mw := range middlewares {
		handlers = append(handlers, convertKeelMiddlewareToFiber(mw))
	}
	return append(handlers, final)
}

// convertKeelHandlerToFiber converts a keel handler to a Fiber handler
func convertKeelHandlerToFiber(handler keel.HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return handler(&FiberRequestContext{ctx: c})
	}
}

// convertKeelMiddlewareToFiber converts a keel middleware to a Fiber middleware
func convertKeelMiddlewareToFiber(middleware keel.MiddlewareFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		next := func(keel.RequestContext) error {
			return fromFiberError(c.Next())
		}
		return middleware(next)(&FiberRequestContext{ctx: c})
	}
}

// fromFiberError turns Fiber's own errors (404 and 405 from the router, 400
// from body parsing) into keel HTTP errors so they keep their status
func fromFiberError(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return keel.NewHTTPError(fe.Code, keel.NewError(fe.Message))
	}
	return err
}

// convertWebSocket upgrades the connection once the keel handler accepted it.
// fasthttp serves hijacked connections after the handler returned.
func (fa *FiberAdapter) convertWebSocket(handler keel.WebSocketHandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := handler(&FiberRequestContext{ctx: c})
		if err != nil {
			return err
		}
		err = fa.upgrader.Upgrade(c.Context(), func(conn *websocket.Conn) {
			defer conn.Close()
			_ = session(conn)
		})
		if err != nil {
			// the upgrader already replied
			c.Locals(fiberWrittenKey, true)
		}
		return err
	}
}

// FiberRequestContext wraps fiber.Ctx to implement keel.RequestContext
type FiberRequestContext struct {
	ctx *fiber.Ctx
}

// Method returns the HTTP method
func (frc *FiberRequestContext) Method() string {
	return frc.ctx.Method()
}

// Path returns the request path
func (frc *FiberRequestContext) Path() string {
	return frc.ctx.Path()
}

// RealIP returns the client IP
func (frc *FiberRequestContext) RealIP() string {
	return frc.ctx.IP()
}

// Context returns the user context of the request
func (frc *FiberRequestContext) Context() context.Context {
	return frc.ctx.UserContext()
}

// SetContext replaces the user context of the request
func (frc *FiberRequestContext) SetContext(ctx context.Context) {
	frc.ctx.SetUserContext(ctx)
}

// Param returns a path parameter
func (frc *FiberRequestContext) Param(name string) string {
	return frc.ctx.Params(name)
}

// ParamNames returns the parameter names of the matched route
func (frc *FiberRequestContext) ParamNames() []string {
	return frc.ctx.Route().Params
}

// QueryParam returns a query parameter
func (frc *FiberRequestContext) QueryParam(key string) string {
	return frc.ctx.Query(key)
}

// QueryParams returns all query parameters
func (frc *FiberRequestContext) QueryParams() map[string][]string {
	result := make(map[string][]string)
	frc.ctx.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		keyStr := string(key)
		result[keyStr] = append(result[keyStr], string(value))
	})
	return result
}

// Header returns a request header
func (frc *FiberRequestContext) Header(key string) string {
	return frc.ctx.Get(key)
}

// Bind parses the request body into obj
func (frc *FiberRequestContext) Bind(obj any) error {
	return fromFiberError(frc.ctx.BodyParser(obj))
}

// Response returns the response interface
func (frc *FiberRequestContext) Response() keel.ResponseInterface {
	return &FiberResponse{ctx: frc.ctx}
}

// Get returns a request local
func (frc *FiberRequestContext) Get(key string) any {
	return frc.ctx.Locals(key)
}

// Set stores a request local
func (frc *FiberRequestContext) Set(key string, val any) {
	frc.ctx.Locals(key, val)
}

// FiberResponse wraps fiber.Ctx to implement keel.ResponseInterface
type FiberResponse struct {
	ctx *fiber.Ctx
}

// Status returns the response status
func (fr *FiberResponse) Status() int {
	return fr.ctx.Response().StatusCode()
}

// Header returns a response header
func (fr *FiberResponse) Header(key string) string {
	return string(fr.ctx.Response().Header.Peek(key))
}

// SetHeader sets a response header
func (fr *FiberResponse) SetHeader(name, value string) {
	fr.ctx.Set(name, value)
}

// JSON sends a JSON response
func (fr *FiberResponse) JSON(code int, data any) error {
	fr.written()
	return fr.ctx.Status(code).JSON(data)
}

// String sends a plain text response
func (fr *FiberResponse) String(code int, s string) error {
	fr.written()
	return fr.ctx.Status(code).SendString(s)
}

// HTML sends an HTML response
func (fr *FiberResponse) HTML(code int, html string) error {
	fr.written()
	fr.ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return fr.ctx.Status(code).SendString(html)
}

// Blob sends raw bytes
func (fr *FiberResponse) Blob(code int, contentType string, data []byte) error {
	fr.written()
	fr.ctx.Set(fiber.HeaderContentType, contentType)
	return fr.ctx.Status(code).Send(data)
}

// File streams a file. A missing file is left to the error middleware.
func (fr *FiberResponse) File(path string) error {
	if err := fr.ctx.SendFile(path); err != nil {
		return fromFiberError(err)
	}
	fr.written()
	return nil
}

// NoContent sends headers only
func (fr *FiberResponse) NoContent(code int) error {
	fr.written()
	fr.ctx.Status(code)
	fr.ctx.Response().ResetBody()
	return nil
}

// Written returns whether a response was sent
func (fr *FiberResponse) Written() bool {
	written, _ := fr.ctx.Locals(fiberWrittenKey).(bool)
	return written
}

func (fr *FiberResponse) written() {
	fr.ctx.Locals(fiberWrittenKey, true)
}

package adapters

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/toyz/keel/pkg/keel"
)

// ginErrorKey carries a handler error up the gin chain to the keel middleware
// that called c.Next
const ginErrorKey = "keel.error"

// GinAdapter implements keel.WebServerInterface for Gin framework
type GinAdapter struct {
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu     sync.Mutex
	server *http.Server
}

// NewGinAdapter creates a new Gin adapter. Unmatched routes and methods are
// reported as keel 404 and 405 errors so the error middleware renders them.
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	ga := &GinAdapter{engine: g}
	g.HandleMethodNotAllowed = true
	g.NoRoute(ga.convertHandler(func(keel.RequestContext) error {
		return keel.NotFound(nil)
	}))
	g.NoMethod(ga.convertHandler(func(keel.RequestContext) error {
		return keel.NewHTTPError(http.StatusMethodNotAllowed, nil)
	}))
	return ga
}

// NewDefaultGinAdapter creates a new Gin adapter with a bare Gin engine
func NewDefaultGinAdapter() *GinAdapter {
	return NewGinAdapter(gin.New())
}

// ginPath converts a keel path to Gin syntax. Gin needs a name for the
// catch-all segment, so {*} becomes *path.
func ginPath(path keel.Path) string {
	return path.ColonPath("*path")
}

// RegisterRoute registers a route with the Gin server
func (ga *GinAdapter) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc, middlewares ...keel.MiddlewareFunc) {
	ga.engine.Handle(method, ginPath(path), ga.handlers(ga.convertHandler(handler), middlewares)...)
}

// RegisterWebSocket registers a websocket endpoint with the Gin server
func (ga *GinAdapter) RegisterWebSocket(path keel.Path, handler keel.WebSocketHandlerFunc, middlewares ...keel.MiddlewareFunc) {
	ga.engine.GET(ginPath(path), ga.handlers(ga.convertWebSocket(handler), middlewares)...)
}

// RegisterGroup registers a route group with the Gin server
func (ga *GinAdapter) RegisterGroup(prefix string) keel.RouteGroup {
	return &GinRouteGroup{group: ga.engine.Group(prefix), adapter: ga}
}

// Use registers a global middleware with the Gin server. It only applies to
// routes registered afterwards.
func (ga *GinAdapter) Use(middleware keel.MiddlewareFunc) {
	ga.engine.Use(ga.convertMiddleware(middleware))
}

// Start starts the Gin server
func (ga *GinAdapter) Start(addr string) error {
	ga.mu.Lock()
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	server := ga.server
	ga.mu.Unlock()
	return server.ListenAndServe()
}

// Stop gracefully stops the http.Server wrapping Gin
func (ga *GinAdapter) Stop(ctx context.Context) error {
	ga.mu.Lock()
	server := ga.server
	ga.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

// GinRouteGroup implements keel.RouteGroup for Gin
type GinRouteGroup struct {
	group   *gin.RouterGroup
	adapter *GinAdapter
}

// RegisterRoute registers a route within the group
func (grg *GinRouteGroup) RegisterRoute(method string, path keel.Path, handler keel.HandlerFunc, middlewares ...keel.MiddlewareFunc) {
	grg.group.Handle(method, ginPath(path), grg.adapter.handlers(grg.adapter.convertHandler(handler), middlewares)...)
}

// RegisterWebSocket registers a websocket endpoint within the group
func (grg *GinRouteGroup) RegisterWebSocket(path keel.Path, handler keel.WebSocketHandlerFunc, middlewares ...keel.MiddlewareFunc) {
	grg.group.GET(ginPath(path), grg.adapter.handlers(grg.adapter.convertWebSocket(handler), middlewares)...)
}

// Use registers middleware with the group
func (grg *GinRouteGroup) Use(middleware keel.MiddlewareFunc) {
	grg.group.Use(grg.adapter.convertMiddleware(middleware))
}

// Group creates a sub-group
func (grg *GinRouteGroup) Group(prefix string) keel.RouteGroup {
	return &GinRouteGroup{group: grg.group.Group(prefix), adapter: grg.adapter}
}

func (ga *GinAdapter) handlers(final gin.HandlerFunc, middlewares []keel.MiddlewareFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(middlewares)+1)
	for _, middleware := range middlewares {
		handlers = append(handlers, ga.convertMiddleware(middleware))
	}
	return append(handlers, final)
}

// convertHandler converts keel.HandlerFunc to gin.HandlerFunc. Gin handlers
// return nothing, so the error is parked on the context for the calling
// middleware.
func (ga *GinAdapter) convertHandler(handler keel.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&GinRequestContext{ctx: c}); err != nil {
			c.Set(ginErrorKey, err)
		}
	}
}

// convertMiddleware converts keel.MiddlewareFunc to gin.HandlerFunc
func (ga *GinAdapter) convertMiddleware(middleware keel.MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := func(keel.RequestContext) error {
			c.Next()
			return takeGinError(c)
		}
		if err := middleware(next)(&GinRequestContext{ctx: c}); err != nil {
			c.Set(ginErrorKey, err)
		}
		// a middleware that returned without calling next must stop the chain
		c.Abort()
	}
}

func takeGinError(c *gin.Context) error {
	v, ok := c.Get(ginErrorKey)
	if !ok {
		return nil
	}
	c.Set(ginErrorKey, nil)
	err, _ := v.(error)
	return err
}

// convertWebSocket upgrades the connection once the keel handler accepted it
func (ga *GinAdapter) convertWebSocket(handler keel.WebSocketHandlerFunc) gin.HandlerFunc {
	return ga.convertHandler(func(rc keel.RequestContext) error {
		session, err := handler(rc)
		if err != nil {
			return err
		}
		c := rc.(*GinRequestContext).ctx
		conn, err := ga.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader already replied
			return err
		}
		defer conn.Close()
		_ = session(conn)
		return nil
	})
}

// GinRequestContext implements keel.RequestContext for Gin
type GinRequestContext struct {
	ctx *gin.Context
}

// Method returns the HTTP method
func (grc *GinRequestContext) Method() string {
	return grc.ctx.Request.Method
}

// Path returns the request path
func (grc *GinRequestContext) Path() string {
	return grc.ctx.Request.URL.Path
}

// RealIP returns the real IP address
func (grc *GinRequestContext) RealIP() string {
	return grc.ctx.ClientIP()
}

// Context returns the request's context
func (grc *GinRequestContext) Context() context.Context {
	return grc.ctx.Request.Context()
}

// SetContext replaces the request's context
func (grc *GinRequestContext) SetContext(ctx context.Context) {
	grc.ctx.Request = grc.ctx.Request.WithContext(ctx)
}

// Param returns a path parameter
func (grc *GinRequestContext) Param(name string) string {
	if name == "*" || name == "path" {
		// Gin keeps the leading slash of the catch-all segment
		return strings.TrimPrefix(grc.ctx.Param("path"), "/")
	}
	return grc.ctx.Param(name)
}

// ParamNames returns parameter names
func (grc *GinRequestContext) ParamNames() []string {
	var names []string
	for _, param := range grc.ctx.Params {
		names = append(names, param.Key)
	}
	return names
}

// QueryParam returns a query parameter
func (grc *GinRequestContext) QueryParam(name string) string {
	return grc.ctx.Query(name)
}

// QueryParams returns all query parameters
func (grc *GinRequestContext) QueryParams() map[string][]string {
	return grc.ctx.Request.URL.Query()
}

// Header returns a request header
func (grc *GinRequestContext) Header(key string) string {
	return grc.ctx.GetHeader(key)
}

// Bind binds the JSON request body to a struct
func (grc *GinRequestContext) Bind(i any) error {
	return grc.ctx.ShouldBindJSON(i)
}

// Response returns the response interface
func (grc *GinRequestContext) Response() keel.ResponseInterface {
	return &GinResponseInterface{ctx: grc.ctx}
}

// Get returns a value from context
func (grc *GinRequestContext) Get(key string) any {
	value, _ := grc.ctx.Get(key)
	return value
}

// Set sets a value in context
func (grc *GinRequestContext) Set(key string, val any) {
	grc.ctx.Set(key, val)
}

// GinResponseInterface implements keel.ResponseInterface for Gin
type GinResponseInterface struct {
	ctx *gin.Context
}

// Status returns the response status
func (gri *GinResponseInterface) Status() int {
	return gri.ctx.Writer.Status()
}

// Header returns a response header
func (gri *GinResponseInterface) Header(key string) string {
	return gri.ctx.Writer.Header().Get(key)
}

// SetHeader sets a response header
func (gri *GinResponseInterface) SetHeader(key, value string) {
	gri.ctx.Header(key, value)
}

// JSON sends a JSON response
func (gri *GinResponseInterface) JSON(code int, i any) error {
	gri.ctx.JSON(code, i)
	return nil
}

// String sends a string response
func (gri *GinResponseInterface) String(code int, s string) error {
	gri.ctx.String(code, "%s", s)
	return nil
}

// HTML sends an HTML response
func (gri *GinResponseInterface) HTML(code int, html string) error {
	gri.ctx.Data(code, "text/html; charset=utf-8", []byte(html))
	return nil
}

// Blob sends a blob response
func (gri *GinResponseInterface) Blob(code int, contentType string, b []byte) error {
	gri.ctx.Data(code, contentType, b)
	return nil
}

// File streams a file
func (gri *GinResponseInterface) File(path string) error {
	gri.ctx.File(path)
	return nil
}

// NoContent writes headers only
func (gri *GinResponseInterface) NoContent(code int) error {
	gri.ctx.Status(code)
	gri.ctx.Writer.WriteHeaderNow()
	return nil
}

// Written returns whether the response has been written
func (gri *GinResponseInterface) Written() bool {
	return gri.ctx.Writer.Written()
}

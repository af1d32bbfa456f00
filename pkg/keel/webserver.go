package keel

import (
	"context"
)

// WebServerInterface defines the contract a host web framework adapter fulfils
type WebServerInterface interface {
	// Route registration
	RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc)
	RegisterWebSocket(path Path, handler WebSocketHandlerFunc, middlewares ...MiddlewareFunc)
	RegisterGroup(prefix string) RouteGroup

	// Global middleware, applied to routes registered afterwards
	Use(middleware MiddlewareFunc)

	// Server lifecycle
	Start(addr string) error
	Stop(ctx context.Context) error

	// Server information
	Name() string
}

// RouteGroup represents a group of routes with a common prefix
type RouteGroup interface {
	RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc)
	RegisterWebSocket(path Path, handler WebSocketHandlerFunc, middlewares ...MiddlewareFunc)
	Use(middleware MiddlewareFunc)
	Group(prefix string) RouteGroup
}

// RequestContext provides a framework-agnostic view of an HTTP request
type RequestContext interface {
	// Request data
	Method() string
	Path() string
	RealIP() string

	// Standard library context carried by the request
	Context() context.Context
	SetContext(ctx context.Context)

	// Parameters
	Param(key string) string
	ParamNames() []string

	// Query parameters
	QueryParam(key string) string
	QueryParams() map[string][]string

	// Headers and body
	Header(key string) string
	Bind(i any) error

	// Response writing
	Response() ResponseInterface

	// Context data
	Get(key string) any
	Set(key string, val any)
}

// ResponseInterface provides response writing capabilities
type ResponseInterface interface {
	// Status
	Status() int

	// Headers
	Header(key string) string
	SetHeader(key, value string)

	// Content
	JSON(code int, i any) error
	String(code int, s string) error
	HTML(code int, html string) error
	Blob(code int, contentType string, b []byte) error
	File(path string) error
	NoContent(code int) error

	// Response data
	Written() bool
}

// WebSocketConn is the subset of a websocket connection handlers use. Both
// gorilla/websocket and fasthttp/websocket connections satisfy it.
type WebSocketConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Websocket message types, matching RFC 6455 opcodes
const (
	TextMessage   = 1
	BinaryMessage = 2
)

// HandlerFunc defines the signature for HTTP handlers
type HandlerFunc func(RequestContext) error

// MiddlewareFunc defines the signature for middleware
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// WebSocketSession serves an upgraded connection. Adapters close the
// connection when it returns.
type WebSocketSession func(conn WebSocketConn) error

// WebSocketHandlerFunc runs while the upgrade request is being served, before
// the handshake, and returns the session for the connection. An error aborts
// the upgrade and is handled like any handler error. Sessions may outlive the
// request (fiber runs them after the handler returned), so they must not touch
// the RequestContext.
type WebSocketHandlerFunc func(RequestContext) (WebSocketSession, error)

// Chain wraps handler with middlewares so that the first middleware is the
// outermost one
func Chain(handler HandlerFunc, middlewares ...MiddlewareFunc) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

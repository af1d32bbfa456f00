package keel

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context is what route handlers receive: the framework request plus the
// keyword arguments prepared by the registrar and rewritten by interceptors
type Context struct {
	RequestContext

	container *Container
	logger    zerolog.Logger
	args      map[string]any
}

func newContext(rc RequestContext, container *Container, logger zerolog.Logger) *Context {
	return &Context{
		RequestContext: rc,
		container:      container,
		logger:         logger.With().Str("request_id", RequestID(rc.Context())).Logger(),
		args:           make(map[string]any),
	}
}

// Container returns the application container
func (c *Context) Container() *Container {
	return c.container
}

// Logger returns a logger tagged with the request id
func (c *Context) Logger() *zerolog.Logger {
	return &c.logger
}

// Arg returns a keyword argument
func (c *Context) Arg(name string) (any, bool) {
	v, ok := c.args[name]
	return v, ok
}

// Token returns the verified token stored under name by the AuthInterceptor
func (c *Context) Token(name string) (*Token, bool) {
	token, ok := c.args[name].(*Token)
	return token, ok
}

// Query returns the query parameters
func (c *Context) Query() QueryMap {
	return NewQueryMap(c.QueryParams())
}

// ParamInt parses a path parameter as int, failing with BadRequest
func (c *Context) ParamInt(name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, BadRequest(NewError("invalid integer path parameter", name, c.Param(name)))
	}
	return v, nil
}

// ParamFloat parses a path parameter as float64, failing with BadRequest
func (c *Context) ParamFloat(name string) (float64, error) {
	v, err := strconv.ParseFloat(c.Param(name), 64)
	if err != nil {
		return 0, BadRequest(NewError("invalid number path parameter", name, c.Param(name)))
	}
	return v, nil
}

// ParamUUID parses a path parameter as UUID, failing with BadRequest
func (c *Context) ParamUUID(name string) (uuid.UUID, error) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, BadRequest(NewError("invalid uuid path parameter", name, c.Param(name)))
	}
	return v, nil
}

// BindJSON decodes the request body into v, failing with BadRequest
func (c *Context) BindJSON(v any) error {
	if err := c.Bind(v); err != nil {
		return BadRequest(NewError("invalid request body", fmt.Sprint(err)))
	}
	return nil
}

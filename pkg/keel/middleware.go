package keel

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request scope id back to the client
const RequestIDHeader = "X-Request-Id"

// ContextScope brackets every request with a fresh request scope of container.
// The scope is released when the request ends, including on error or panic,
// so request-scoped values never leak into the next request.
func ContextScope(container *Container) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(rc RequestContext) error {
			ctx, release := container.BeginScope(rc.Context())
			defer release()

			rc.SetContext(ctx)
			rc.Response().SetHeader(RequestIDHeader, RequestID(ctx))
			return next(rc)
		}
	}
}

// ErrorHandling renders every error returned or panicked by the handler as a
// JSON ErrorBody. HTTPErrors keep their status; anything else becomes an
// InternalServerError. Tracebacks are only rendered when debug is set.
func ErrorHandling(debug bool, logger zerolog.Logger) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(rc RequestContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					cause, ok := r.(error)
					if !ok {
						cause = fmt.Errorf("panic: %v", r)
					}
					err = renderError(rc, InternalServerError(cause), debug, logger)
				}
			}()

			if err := next(rc); err != nil {
				he, ok := AsHTTPError(err)
				if !ok {
					he = InternalServerError(err)
				}
				return renderError(rc, he, debug, logger)
			}
			return nil
		}
	}
}

func renderError(rc RequestContext, he *HTTPError, debug bool, logger zerolog.Logger) error {
	event := logger.Debug()
	if he.StatusCode >= 500 {
		event = logger.Error()
	}
	event.
		Err(he.Unwrap()).
		Str("request_id", RequestID(rc.Context())).
		Str("method", rc.Method()).
		Str("path", rc.Path()).
		Int("status", he.StatusCode).
		Msg(he.Message)

	if rc.Response().Written() {
		return nil
	}
	status, body := he.ToResponse(debug)
	return rc.Response().JSON(status, body)
}

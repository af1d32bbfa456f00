package keel

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Interceptor ordering bounds. Lower values run first, i.e. further out.
const (
	HighestPrecedence = math.MinInt32
	LowestPrecedence  = math.MaxInt32
)

// Invocation is one call of a route handler as seen by interceptors
type Invocation struct {
	// Controller is the controller type name, e.g. "*DummyController"
	Controller string
	// Handler is the handler identifier, e.g. "Login"
	Handler string
	// Route is a copy of the route spec
	Route RouteSpec
	// Target is the controller instance resolved for this request
	Target any
	// Context is the handler context
	Context *Context
	// Args holds the keyword arguments handed to the handler. Interceptors may
	// replace entries; the handler reads them through Context.Arg.
	Args map[string]any
}

// Proceed continues the invocation with the next interceptor or the handler
type Proceed func(inv *Invocation) (any, error)

// Interceptor runs around matching handler invocations
type Interceptor interface {
	// Order positions the interceptor in the chain, lowest first
	Order() int
	// Matches is the pointcut; non-matching invocations skip the interceptor
	Matches(inv *Invocation) bool
	// Intercept runs the advice and calls next to continue
	Intercept(inv *Invocation, next Proceed) (any, error)
}

// sortInterceptors orders interceptors by precedence, keeping registration
// order for ties
func sortInterceptors(interceptors []Interceptor) []Interceptor {
	sorted := slices.Clone(interceptors)
	slices.SortStableFunc(sorted, func(a, b Interceptor) int {
		return cmp.Compare(a.Order(), b.Order())
	})
	return sorted
}

// buildChain composes sorted interceptors around final
func buildChain(sorted []Interceptor, final Proceed) Proceed {
	next := final
	for i := len(sorted) - 1; i >= 0; i-- {
		interceptor, inner := sorted[i], next
		next = func(inv *Invocation) (any, error) {
			if !interceptor.Matches(inv) {
				return inner(inv)
			}
			return interceptor.Intercept(inv, inner)
		}
	}
	return next
}

// LoggingInterceptor logs calls of routes declared WithLogging
type LoggingInterceptor struct {
	logger zerolog.Logger
}

// NewLoggingInterceptor creates a new LoggingInterceptor
func NewLoggingInterceptor(logger zerolog.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{logger: logger}
}

// Order places logging after authentication
func (li *LoggingInterceptor) Order() int { return 0 }

// Matches selects routes declared WithLogging
func (li *LoggingInterceptor) Matches(inv *Invocation) bool { return inv.Route.Logged }

// Intercept logs the call, its duration and its outcome
func (li *LoggingInterceptor) Intercept(inv *Invocation, next Proceed) (any, error) {
	start := time.Now()
	result, err := next(inv)

	event := li.logger.Debug()
	if err != nil {
		event = li.logger.Warn().Err(err)
	}
	event.
		Str("request_id", RequestID(inv.Context.Context())).
		Str("handler", inv.Controller+"."+inv.Handler).
		Strs("args", slices.Sorted(maps.Keys(inv.Args))).
		Dur("elapsed", time.Since(start)).
		Msg("[LoggingInterceptor] handler returned")
	return result, err
}

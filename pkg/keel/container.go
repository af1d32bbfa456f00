package keel

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Scope controls how long a resolved value lives
type Scope int

const (
	// Singleton values are created once per container
	Singleton Scope = iota
	// Prototype values are created on every Resolve
	Prototype
	// RequestScoped values are created once per request scope and dropped
	// when the scope is released
	RequestScoped
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Prototype:
		return "prototype"
	case RequestScoped:
		return "request"
	default:
		return "unknown"
	}
}

// Factory builds a value, resolving its own dependencies from the container
type Factory[T any] func(ctx context.Context, c *Container) (T, error)

type provider struct {
	scope   Scope
	factory func(ctx context.Context, c *Container) (any, error)

	mu       sync.Mutex
	resolved bool
	value    any
}

// Container is a small type-keyed dependency container with singleton,
// prototype and request scopes
type Container struct {
	mu        sync.RWMutex
	providers map[reflect.Type]*provider
}

// NewContainer creates an empty container
func NewContainer() *Container {
	return &Container{providers: make(map[reflect.Type]*provider)}
}

// Provide registers factory as the provider for T. A later registration for
// the same type replaces the earlier one.
func Provide[T any](c *Container, scope Scope, factory Factory[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[reflect.TypeFor[T]()] = &provider{
		scope: scope,
		factory: func(ctx context.Context, c *Container) (any, error) {
			return factory(ctx, c)
		},
	}
}

// ProvideValue registers an existing value as a singleton
func ProvideValue[T any](c *Container, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[reflect.TypeFor[T]()] = &provider{scope: Singleton, resolved: true, value: value}
}

// Has reports whether a provider is registered for T
func Has[T any](c *Container) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.providers[reflect.TypeFor[T]()]
	return ok
}

// Resolve returns the value of type T according to its provider's scope
func Resolve[T any](ctx context.Context, c *Container) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	v, err := c.resolve(ctx, t)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("keel: provider for %s returned %T", t, v)
	}
	return typed, nil
}

// MustResolve is Resolve that panics on error, for wiring code
func MustResolve[T any](ctx context.Context, c *Container) T {
	v, err := Resolve[T](ctx, c)
	if err != nil {
		panic(err)
	}
	return v
}

func (c *Container) resolve(ctx context.Context, t reflect.Type) (any, error) {
	c.mu.RLock()
	p, ok := c.providers[t]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, t)
	}

	switch p.scope {
	case Prototype:
		return p.factory(ctx, c)
	case RequestScoped:
		scope, ok := ScopeFromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("%w: resolving %s", ErrNoRequestScope, t)
		}
		return scope.get(t, func() (any, error) { return p.factory(ctx, c) })
	default:
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.resolved {
			v, err := p.factory(ctx, c)
			if err != nil {
				return nil, err
			}
			p.value, p.resolved = v, true
		}
		return p.value, nil
	}
}

// RequestScope holds the request-scoped values of one request
type RequestScope struct {
	ID string

	mu     sync.Mutex
	values map[reflect.Type]any
	closed bool
}

func (s *RequestScope) get(t reflect.Type, build func() (any, error)) (any, error) {
	s.mu.Lock()
	v, ok := s.values[t]
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: scope %s already released", ErrNoRequestScope, s.ID)
	}
	if ok {
		return v, nil
	}

	// built without the lock held so factories can resolve other
	// request-scoped values
	v, err := build()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.values[t]; ok {
		return existing, nil
	}
	if s.closed {
		return nil, fmt.Errorf("%w: scope %s already released", ErrNoRequestScope, s.ID)
	}
	s.values[t] = v
	return v, nil
}

// Len returns the number of values cached in the scope
func (s *RequestScope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *RequestScope) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
	s.closed = true
}

type scopeKey struct{}

// BeginScope attaches a fresh request scope to ctx. The returned release func
// clears every value cached in the scope and must be deferred by the caller.
func (c *Container) BeginScope(ctx context.Context) (context.Context, func()) {
	scope := &RequestScope{
		ID:     uuid.NewString(),
		values: make(map[reflect.Type]any),
	}
	return context.WithValue(ctx, scopeKey{}, scope), scope.release
}

// ScopeFromContext returns the request scope attached by BeginScope
func ScopeFromContext(ctx context.Context) (*RequestScope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*RequestScope)
	return scope, ok
}

// RequestID returns the id of the request scope in ctx, or "" outside a scope
func RequestID(ctx context.Context) string {
	if scope, ok := ScopeFromContext(ctx); ok {
		return scope.ID
	}
	return ""
}

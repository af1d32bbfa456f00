package keel

import (
	"context"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// ControllerSpec is the route group a controller's handlers are registered on
type ControllerSpec struct {
	// Prefix is prepended to every route path of the controller
	Prefix string
	// Tags are added to every route of the controller
	Tags []string
}

// ControllerOption configures a ControllerSpec
type ControllerOption func(*ControllerSpec)

// WithControllerTags tags every route of the controller
func WithControllerTags(tags ...string) ControllerOption {
	return func(s *ControllerSpec) { s.Tags = append(s.Tags, tags...) }
}

// binding is one handler in a controller's route table, with the handler's
// types erased so controllers of different types can be registered together
type binding struct {
	key        string
	identifier string
	spec       RouteSpec
	ws         *WebSocketRouteSpec
	resultType reflect.Type

	invoke  func(target any, ctx *Context) (any, error)
	serveWS func(target any, ctx *Context, conn WebSocketConn) error
}

// Controller is the route table of controller type C. Handlers are attached
// with Handle and HandleWebSocket; the App resolves a C from its container for
// every request.
type Controller[C any] struct {
	spec ControllerSpec

	mu       sync.Mutex
	bindings []*binding
}

// NewController creates the route table for C with routes under prefix
func NewController[C any](prefix string, opts ...ControllerOption) *Controller[C] {
	spec := ControllerSpec{Prefix: prefix}
	for _, opt := range opts {
		opt(&spec)
	}
	return &Controller[C]{spec: spec}
}

// Spec returns the controller spec
func (c *Controller[C]) Spec() ControllerSpec {
	spec := c.spec
	spec.Tags = slices.Clone(c.spec.Tags)
	return spec
}

// Routes returns a copy of every HTTP route spec in the table, in attachment order
func (c *Controller[C]) Routes() []RouteSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	var specs []RouteSpec
	for _, b := range c.bindings {
		if b.ws == nil {
			specs = append(specs, b.spec.clone())
		}
	}
	return specs
}

func (c *Controller[C]) attach(b *binding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.bindings {
		if existing.key == b.key && (!isFuncLiteral(b.key) || existing.sameRoute(b)) {
			c.bindings[i] = b
			return
		}
	}
	c.bindings = append(c.bindings, b)
}

// funcLiteral matches the runtime names of function literals, e.g.
// "pkg.Routes.func1" or "pkg.Routes.func1.2". Closures built from one literal
// share that name.
var funcLiteral = regexp.MustCompile(`\.func\d+(\.\d+)*$`)

func isFuncLiteral(key string) bool {
	return funcLiteral.MatchString(key)
}

// sameRoute reports whether two bindings serve the same path and methods
func (b *binding) sameRoute(other *binding) bool {
	if (b.ws == nil) != (other.ws == nil) {
		return false
	}
	if b.ws != nil {
		return b.ws.Path == other.ws.Path
	}
	return b.spec.Path == other.spec.Path && slices.Equal(b.spec.Methods, other.spec.Methods)
}

func (c *Controller[C]) snapshot() []*binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.bindings)
}

// Handle attaches spec to handler. Attaching a second spec to the same handler
// replaces the first one, so a handler serves exactly one route. Function
// literals cannot be told apart by name, so closures only replace a binding
// serving the same path and methods.
//
// Method expressions make convenient handlers:
//
//	keel.Handle(ctrl, keel.GET("/users/{id:int}"), (*UserController).GetUser)
func Handle[C, R any](ctrl *Controller[C], spec RouteSpec, handler func(C, *Context) (R, error)) {
	key := handlerKey(handler)
	ctrl.attach(&binding{
		key:        key,
		identifier: handlerIdentifier(key),
		spec:       spec.clone(),
		resultType: reflect.TypeFor[R](),
		invoke: func(target any, ctx *Context) (any, error) {
			return handler(target.(C), ctx)
		},
	})
}

// HandleWebSocket attaches a websocket route to handler. The connection is
// closed once handler returns. The controller is resolved before the
// handshake; on fiber the request data of the Context is gone by the time the
// handler runs.
func HandleWebSocket[C any](ctrl *Controller[C], spec WebSocketRouteSpec, handler func(C, *Context, WebSocketConn) error) {
	key := handlerKey(handler)
	ws := spec
	ws.Dependencies = slices.Clone(spec.Dependencies)
	ctrl.attach(&binding{
		key:        key,
		identifier: handlerIdentifier(key),
		ws:         &ws,
		serveWS: func(target any, ctx *Context, conn WebSocketConn) error {
			return handler(target.(C), ctx, conn)
		},
	})
}

// controllerDef is a controller table bound to a container provider
type controllerDef struct {
	name    string
	pkg     string
	spec    ControllerSpec
	routes  func() []*binding
	resolve func(ctx context.Context) (any, error)
}

func newControllerDef[C any](ctrl *Controller[C], container *Container) controllerDef {
	t := reflect.TypeFor[C]()
	name, pkg := t.String(), t.PkgPath()
	if t.Kind() == reflect.Pointer {
		pkg = t.Elem().PkgPath()
	}
	return controllerDef{
		name:   name,
		pkg:    pkg,
		spec:   ctrl.Spec(),
		routes: ctrl.snapshot,
		resolve: func(ctx context.Context) (any, error) {
			return Resolve[C](ctx, container)
		},
	}
}

// handlerKey identifies a handler by its runtime function name
func handlerKey(handler any) string {
	fn := runtime.FuncForPC(reflect.ValueOf(handler).Pointer())
	if fn == nil {
		return ""
	}
	return fn.Name()
}

// handlerIdentifier is the last element of a function name:
// "pkg.(*T).GetUser" and the method value "pkg.(*T).GetUser-fm" both yield "GetUser"
func handlerIdentifier(key string) string {
	key = strings.TrimSuffix(key, "-fm")
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return key
}

// displayName turns a handler identifier into a route name: "get_user_profile"
// and "GetUserProfile" both become "Get User Profile", acronyms stay together
func displayName(identifier string) string {
	words := splitWords(identifier)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func splitWords(s string) []string {
	var words []string
	for _, chunk := range strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		runes := []rune(chunk)
		start := 0
		for i := 1; i < len(runes); i++ {
			prev, cur := runes[i-1], runes[i]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(cur),
				unicode.IsUpper(prev) && unicode.IsUpper(cur) && nextLower:
				words = append(words, string(runes[start:i]))
				start = i
			}
		}
		words = append(words, string(runes[start:]))
	}
	return words
}

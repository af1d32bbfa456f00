package keel

import (
	"slices"
	"sync"
)

// RouteInfo contains metadata about a registered route
type RouteInfo struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, etc.). WebSocket
	// routes report GET.
	Method string

	// Path is the full route path including the controller prefix, with
	// parameter placeholders (e.g., "/dummy/users/{id:int}")
	Path string

	// Name is the human readable route name
	Name string

	// HandlerName is the handler identifier, e.g. "GetProfile"
	HandlerName string

	// ControllerName is the name of the controller type that owns this route
	ControllerName string

	// PackageName is the import path of the package declaring the controller
	PackageName string

	// Tags are the controller tags followed by the route tags
	Tags []string

	// WebSocket marks routes registered through HandleWebSocket
	WebSocket bool

	// Spec is a copy of the route spec the route was registered with
	Spec RouteSpec
}

// RouteRegistry provides access to all registered routes in the application
type RouteRegistry interface {
	// GetAllRoutes returns all registered routes
	GetAllRoutes() []RouteInfo

	// GetRoutesByPackage returns routes filtered by package name
	GetRoutesByPackage(packageName string) []RouteInfo

	// GetRoutesByController returns routes filtered by controller name
	GetRoutesByController(controllerName string) []RouteInfo

	// GetRoutesByMethod returns routes filtered by HTTP method
	GetRoutesByMethod(method string) []RouteInfo

	// RegisterRoute adds a route to the registry (used by the registrar)
	RegisterRoute(route RouteInfo)
}

// InMemoryRouteRegistry implements RouteRegistry using an in-memory slice
type InMemoryRouteRegistry struct {
	mu     sync.RWMutex
	routes []RouteInfo
}

// NewInMemoryRouteRegistry creates a new in-memory route registry
func NewInMemoryRouteRegistry() *InMemoryRouteRegistry {
	return &InMemoryRouteRegistry{
		routes: make([]RouteInfo, 0),
	}
}

// GetAllRoutes returns all registered routes
func (r *InMemoryRouteRegistry) GetAllRoutes() []RouteInfo {
	return r.filter(func(RouteInfo) bool { return true })
}

// GetRoutesByPackage returns routes filtered by package name
func (r *InMemoryRouteRegistry) GetRoutesByPackage(packageName string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool { return route.PackageName == packageName })
}

// GetRoutesByController returns routes filtered by controller name
func (r *InMemoryRouteRegistry) GetRoutesByController(controllerName string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool { return route.ControllerName == controllerName })
}

// GetRoutesByMethod returns routes filtered by HTTP method
func (r *InMemoryRouteRegistry) GetRoutesByMethod(method string) []RouteInfo {
	return r.filter(func(route RouteInfo) bool { return route.Method == method })
}

// RegisterRoute adds a route to the registry
func (r *InMemoryRouteRegistry) RegisterRoute(route RouteInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// filter returns copies so callers cannot alter registered specs
func (r *InMemoryRouteRegistry) filter(keep func(RouteInfo) bool) []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var filtered []RouteInfo
	for _, route := range r.routes {
		if keep(route) {
			route.Tags = slices.Clone(route.Tags)
			route.Spec = route.Spec.clone()
			filtered = append(filtered, route)
		}
	}
	return filtered
}

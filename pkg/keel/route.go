package keel

import (
	"maps"
	"net/http"
	"reflect"
	"slices"
)

// HTTPMethod is an HTTP request method
type HTTPMethod string

const (
	MethodGet     HTTPMethod = http.MethodGet
	MethodPost    HTTPMethod = http.MethodPost
	MethodPut     HTTPMethod = http.MethodPut
	MethodPatch   HTTPMethod = http.MethodPatch
	MethodDelete  HTTPMethod = http.MethodDelete
	MethodHead    HTTPMethod = http.MethodHead
	MethodOptions HTTPMethod = http.MethodOptions
	MethodTrace   HTTPMethod = http.MethodTrace
)

// ResponseClass selects how a handler's return value is written
type ResponseClass int

const (
	// JSONResponse encodes the value as JSON (default)
	JSONResponse ResponseClass = iota
	// PlainTextResponse writes fmt.Sprint of the value as text/plain
	PlainTextResponse
	// HTMLResponse writes the value as text/html
	HTMLResponse
	// FileResponse treats the value as a file path and streams the file
	FileResponse
	// BlobResponse writes a []byte value as application/octet-stream
	BlobResponse
)

// ResponseDoc documents an additional response of a route
type ResponseDoc struct {
	Description string
	Model       reflect.Type
}

// SerializationOptions shape the JSON document produced from a handler result
type SerializationOptions struct {
	// Include keeps only these top-level fields when non-empty
	Include []string
	// Exclude drops these top-level fields
	Exclude []string
	// ExcludeNone drops fields whose value is null
	ExcludeNone bool
	// ExcludeZero drops fields whose value is null, false, 0, "" or empty
	ExcludeZero bool
}

func (o SerializationOptions) active() bool {
	return len(o.Include) > 0 || len(o.Exclude) > 0 || o.ExcludeNone || o.ExcludeZero
}

// RouteSpec describes how a handler maps to an HTTP route. It is a value type:
// the registry and controller tables hand out copies, so a registered spec
// cannot be changed afterwards.
type RouteSpec struct {
	Path                string
	Methods             []HTTPMethod
	ResponseModel       reflect.Type
	StatusCode          int
	Tags                []string
	Dependencies        []MiddlewareFunc
	Summary             string
	Description         string
	ResponseDescription string
	Responses           map[int]ResponseDoc
	Deprecated          bool
	OperationID         string
	IncludeInSchema     bool
	ResponseClass       ResponseClass
	Name                string
	Callbacks           []RouteSpec
	OpenAPIExtra        map[string]any
	Serialization       SerializationOptions
	Logged              bool
	Auth                *AuthSpec
}

// RouteOption configures a RouteSpec
type RouteOption func(*RouteSpec)

// Route builds a RouteSpec for path. Without WithMethods the route answers GET.
func Route(path string, opts ...RouteOption) RouteSpec {
	spec := RouteSpec{
		Path:                path,
		ResponseDescription: "Successful Response",
		IncludeInSchema:     true,
	}
	for _, opt := range opts {
		opt(&spec)
	}
	if len(spec.Methods) == 0 {
		spec.Methods = []HTTPMethod{MethodGet}
	}
	return spec
}

func verb(method HTTPMethod, path string, opts []RouteOption) RouteSpec {
	spec := Route(path, opts...)
	spec.Methods = []HTTPMethod{method}
	return spec
}

// GET builds a RouteSpec answering only GET
func GET(path string, opts ...RouteOption) RouteSpec { return verb(MethodGet, path, opts) }

// POST builds a RouteSpec answering only POST
func POST(path string, opts ...RouteOption) RouteSpec { return verb(MethodPost, path, opts) }

// PUT builds a RouteSpec answering only PUT
func PUT(path string, opts ...RouteOption) RouteSpec { return verb(MethodPut, path, opts) }

// PATCH builds a RouteSpec answering only PATCH
func PATCH(path string, opts ...RouteOption) RouteSpec { return verb(MethodPatch, path, opts) }

// DELETE builds a RouteSpec answering only DELETE
func DELETE(path string, opts ...RouteOption) RouteSpec { return verb(MethodDelete, path, opts) }

// HEAD builds a RouteSpec answering only HEAD
func HEAD(path string, opts ...RouteOption) RouteSpec { return verb(MethodHead, path, opts) }

// OPTIONS builds a RouteSpec answering only OPTIONS
func OPTIONS(path string, opts ...RouteOption) RouteSpec { return verb(MethodOptions, path, opts) }

// WithMethods sets the method set. Duplicates are dropped.
func WithMethods(methods ...HTTPMethod) RouteOption {
	return func(s *RouteSpec) {
		set := make([]HTTPMethod, 0, len(methods))
		for _, m := range methods {
			if !slices.Contains(set, m) {
				set = append(set, m)
			}
		}
		s.Methods = set
	}
}

// WithStatusCode sets the success status code
func WithStatusCode(code int) RouteOption {
	return func(s *RouteSpec) { s.StatusCode = code }
}

// WithResponseModel documents the response body type
func WithResponseModel(model any) RouteOption {
	return func(s *RouteSpec) {
		if t, ok := model.(reflect.Type); ok {
			s.ResponseModel = t
			return
		}
		s.ResponseModel = reflect.TypeOf(model)
	}
}

// WithTags adds OpenAPI tags
func WithTags(tags ...string) RouteOption {
	return func(s *RouteSpec) { s.Tags = append(s.Tags, tags...) }
}

// WithDependencies runs middlewares around this route only
func WithDependencies(deps ...MiddlewareFunc) RouteOption {
	return func(s *RouteSpec) { s.Dependencies = append(s.Dependencies, deps...) }
}

// WithSummary sets the OpenAPI summary
func WithSummary(summary string) RouteOption {
	return func(s *RouteSpec) { s.Summary = summary }
}

// WithDescription sets the route description, overriding generated docs
func WithDescription(description string) RouteOption {
	return func(s *RouteSpec) { s.Description = description }
}

// WithResponseDescription sets the description of the success response
func WithResponseDescription(description string) RouteOption {
	return func(s *RouteSpec) { s.ResponseDescription = description }
}

// WithResponse documents an additional response
func WithResponse(code int, description string, model any) RouteOption {
	return func(s *RouteSpec) {
		if s.Responses == nil {
			s.Responses = make(map[int]ResponseDoc)
		}
		doc := ResponseDoc{Description: description}
		if model != nil {
			doc.Model = reflect.TypeOf(model)
		}
		s.Responses[code] = doc
	}
}

// Deprecated marks the route as deprecated in the OpenAPI document
func Deprecated() RouteOption {
	return func(s *RouteSpec) { s.Deprecated = true }
}

// WithOperationID sets the OpenAPI operation id
func WithOperationID(id string) RouteOption {
	return func(s *RouteSpec) { s.OperationID = id }
}

// ExcludeFromSchema hides the route from the OpenAPI document
func ExcludeFromSchema() RouteOption {
	return func(s *RouteSpec) { s.IncludeInSchema = false }
}

// WithResponseClass selects how the handler result is written
func WithResponseClass(class ResponseClass) RouteOption {
	return func(s *RouteSpec) { s.ResponseClass = class }
}

// WithName sets the display name, overriding the derived one
func WithName(name string) RouteOption {
	return func(s *RouteSpec) { s.Name = name }
}

// WithCallback documents an OpenAPI callback request
func WithCallback(callback RouteSpec) RouteOption {
	return func(s *RouteSpec) { s.Callbacks = append(s.Callbacks, callback) }
}

// WithOpenAPIExtra merges extension fields into the OpenAPI operation
func WithOpenAPIExtra(extra map[string]any) RouteOption {
	return func(s *RouteSpec) {
		if s.OpenAPIExtra == nil {
			s.OpenAPIExtra = make(map[string]any, len(extra))
		}
		maps.Copy(s.OpenAPIExtra, extra)
	}
}

// WithInclude keeps only the named top-level response fields
func WithInclude(fields ...string) RouteOption {
	return func(s *RouteSpec) { s.Serialization.Include = append(s.Serialization.Include, fields...) }
}

// WithExclude drops the named top-level response fields
func WithExclude(fields ...string) RouteOption {
	return func(s *RouteSpec) { s.Serialization.Exclude = append(s.Serialization.Exclude, fields...) }
}

// WithExcludeNone drops null response fields
func WithExcludeNone() RouteOption {
	return func(s *RouteSpec) { s.Serialization.ExcludeNone = true }
}

// WithExcludeZero drops zero-valued response fields
func WithExcludeZero() RouteOption {
	return func(s *RouteSpec) { s.Serialization.ExcludeZero = true }
}

// WithLogging enables the LoggingInterceptor for this route
func WithLogging() RouteOption {
	return func(s *RouteSpec) { s.Logged = true }
}

// HasMethod reports whether the spec answers method
func (s RouteSpec) HasMethod(method HTTPMethod) bool {
	return slices.Contains(s.Methods, method)
}

// clone returns a deep copy so callers never share slices or maps with the
// registered spec
func (s RouteSpec) clone() RouteSpec {
	c := s
	c.Methods = slices.Clone(s.Methods)
	c.Tags = slices.Clone(s.Tags)
	c.Dependencies = slices.Clone(s.Dependencies)
	c.Callbacks = slices.Clone(s.Callbacks)
	c.Responses = maps.Clone(s.Responses)
	c.OpenAPIExtra = maps.Clone(s.OpenAPIExtra)
	c.Serialization.Include = slices.Clone(s.Serialization.Include)
	c.Serialization.Exclude = slices.Clone(s.Serialization.Exclude)
	if s.Auth != nil {
		auth := *s.Auth
		auth.Params = slices.Clone(s.Auth.Params)
		c.Auth = &auth
	}
	return c
}

// WebSocketRouteSpec describes a websocket endpoint
type WebSocketRouteSpec struct {
	Path         string
	Name         string
	Dependencies []MiddlewareFunc
}

// WebSocketOption configures a WebSocketRouteSpec
type WebSocketOption func(*WebSocketRouteSpec)

// WebSocket builds a WebSocketRouteSpec for path
func WebSocket(path string, opts ...WebSocketOption) WebSocketRouteSpec {
	spec := WebSocketRouteSpec{Path: path}
	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

// WithWebSocketName sets the display name of a websocket route
func WithWebSocketName(name string) WebSocketOption {
	return func(s *WebSocketRouteSpec) { s.Name = name }
}

// WithWebSocketDependencies runs middlewares before the upgrade
func WithWebSocketDependencies(deps ...MiddlewareFunc) WebSocketOption {
	return func(s *WebSocketRouteSpec) { s.Dependencies = append(s.Dependencies, deps...) }
}

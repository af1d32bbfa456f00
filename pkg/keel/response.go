package keel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"slices"
)

// Response represents an HTTP response with custom status code, headers and
// body. Handlers return it when the route's status code is not enough.
//
// Example usage:
//
//	func (c *UserController) CreateUser(ctx *keel.Context) (*keel.Response, error) {
//	    // ... create user logic ...
//	    return keel.Created(createdUser), nil
//	}
type Response struct {
	// StatusCode is the HTTP status code to return (e.g., 200, 201, 404, 500)
	StatusCode int `json:"-"`

	// Headers are set on the response before the body is written
	Headers map[string]string `json:"-"`

	// Body is the response body, written according to the route's ResponseClass
	Body any `json:"body,omitempty"`
}

// NewResponse creates a new Response with the specified status code and body
func NewResponse(statusCode int, body any) *Response {
	return &Response{
		StatusCode: statusCode,
		Body:       body,
	}
}

// WithHeader sets a response header
func (r *Response) WithHeader(key, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// OK creates a 200 OK response with the given body
func OK(body any) *Response {
	return NewResponse(http.StatusOK, body)
}

// Created creates a 201 Created response with the given body
func Created(body any) *Response {
	return NewResponse(http.StatusCreated, body)
}

// NoContent creates a 204 No Content response
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil)
}

// writeResult writes a handler result according to spec. Handlers that wrote
// the response themselves are left alone.
func writeResult(rc RequestContext, spec RouteSpec, result any) error {
	res := rc.Response()
	if res.Written() {
		return nil
	}

	status := spec.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	body := result
	if r, ok := result.(*Response); ok && r != nil {
		for k, v := range r.Headers {
			res.SetHeader(k, v)
		}
		if r.StatusCode != 0 {
			status = r.StatusCode
		}
		body = r.Body
	}

	if rc.Method() == http.MethodHead || isNil(body) && spec.ResponseClass != JSONResponse {
		return res.NoContent(status)
	}

	switch spec.ResponseClass {
	case PlainTextResponse:
		return res.String(status, fmt.Sprint(body))
	case HTMLResponse:
		return res.HTML(status, fmt.Sprint(body))
	case FileResponse:
		path, ok := body.(string)
		if !ok {
			return InternalServerError(fmt.Errorf("file response needs a path, got %T", body))
		}
		return res.File(path)
	case BlobResponse:
		switch b := body.(type) {
		case []byte:
			return res.Blob(status, "application/octet-stream", b)
		case string:
			return res.Blob(status, "application/octet-stream", []byte(b))
		default:
			return InternalServerError(fmt.Errorf("blob response needs bytes, got %T", body))
		}
	default:
		if isNil(body) && status == http.StatusNoContent {
			return res.NoContent(status)
		}
		if spec.Serialization.active() {
			filtered, err := serialize(body, spec.Serialization)
			if err != nil {
				return InternalServerError(err)
			}
			body = filtered
		}
		return res.JSON(status, body)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// serialize round-trips body through JSON so the field filters see the same
// names and values the client would
func serialize(body any, opts SerializationOptions) (any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch v := doc.(type) {
	case map[string]any:
		return filterObject(v, opts, true), nil
	case []any:
		for i, item := range v {
			if obj, ok := item.(map[string]any); ok {
				v[i] = filterObject(obj, opts, true)
			}
		}
		return v, nil
	}
	return doc, nil
}

func filterObject(obj map[string]any, opts SerializationOptions, top bool) map[string]any {
	for key, value := range obj {
		if top && len(opts.Include) > 0 && !slices.Contains(opts.Include, key) {
			delete(obj, key)
			continue
		}
		if top && slices.Contains(opts.Exclude, key) {
			delete(obj, key)
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			obj[key] = filterObject(nested, opts, false)
		}
		if opts.ExcludeNone && value == nil || opts.ExcludeZero && isZeroJSON(value) {
			delete(obj, key)
		}
	}
	return obj
}

func isZeroJSON(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

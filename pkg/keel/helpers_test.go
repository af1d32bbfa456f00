package keel

import (
	"context"
	"encoding/json"
	"net/http"
)

// fakeRequest is an in-memory RequestContext for tests that do not need a
// real web framework
type fakeRequest struct {
	method  string
	path    string
	ctx     context.Context
	params  map[string]string
	query   map[string][]string
	headers http.Header
	body    []byte
	values  map[string]any
	res     *fakeResponse
}

func newFakeRequest(method, path string) *fakeRequest {
	return &fakeRequest{
		method:  method,
		path:    path,
		ctx:     context.Background(),
		params:  map[string]string{},
		query:   map[string][]string{},
		headers: http.Header{},
		values:  map[string]any{},
		res:     &fakeResponse{headers: http.Header{}},
	}
}

func (f *fakeRequest) Method() string {
	return f.method
}

func (f *fakeRequest) Path() string {
	return f.path
}

func (f *fakeRequest) RealIP() string {
	return "127.0.0.1"
}

func (f *fakeRequest) Context() context.Context {
	return f.ctx
}

func (f *fakeRequest) SetContext(ctx context.Context) {
	f.ctx = ctx
}

func (f *fakeRequest) Param(key string) string {
	return f.params[key]
}

func (f *fakeRequest) QueryParam(key string) string {
	return NewQueryMap(f.query).Get(key)
}

func (f *fakeRequest) QueryParams() map[string][]string {
	return f.query
}

func (f *fakeRequest) Header(key string) string {
	return f.headers.Get(key)
}

func (f *fakeRequest) Response() ResponseInterface {
	return f.res
}

func (f *fakeRequest) Get(key string) any {
	return f.values[key]
}

func (f *fakeRequest) Set(key string, val any) {
	f.values[key] = val
}

func (f *fakeRequest) ParamNames() []string {
	names := make([]string, 0, len(f.params))
	for name := range f.params {
		names = append(names, name)
	}
	return names
}

func (f *fakeRequest) Bind(i any) error {
	return json.Unmarshal(f.body, i)
}

type fakeResponse struct {
	status      int
	headers     http.Header
	contentType string
	body        any
	file        string
	written     bool
}

func (r *fakeResponse) write(code int, contentType string, body any) error {
	r.status, r.contentType, r.body, r.written = code, contentType, body, true
	return nil
}

func (r *fakeResponse) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *fakeResponse) Header(key string) string {
	return r.headers.Get(key)
}

func (r *fakeResponse) SetHeader(key, value string) {
	r.headers.Set(key, value)
}

func (r *fakeResponse) JSON(code int, i any) error {
	return r.write(code, "application/json", i)
}

func (r *fakeResponse) String(code int, s string) error {
	return r.write(code, "text/plain", s)
}

func (r *fakeResponse) HTML(code int, html string) error {
	return r.write(code, "text/html", html)
}

func (r *fakeResponse) Blob(code int, contentType string, b []byte) error {
	return r.write(code, contentType, b)
}

func (r *fakeResponse) File(path string) error {
	r.file = path
	return r.write(http.StatusOK, "", nil)
}

func (r *fakeResponse) NoContent(code int) error {
	return r.write(code, "", nil)
}

func (r *fakeResponse) Written() bool {
	return r.written
}

// jsonBody re-encodes the written body so tests compare what a client sees
func (r *fakeResponse) jsonBody() map[string]any {
	raw, err := json.Marshal(r.body)
	if err != nil {
		panic(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(err)
	}
	return doc
}

package adapters

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toyz/keel/pkg/keel"
)

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// harness serves requests through one adapter
type harness struct {
	name   string
	server keel.WebServerInterface
	serve  func(req *http.Request) (*http.Response, error)
}

func harnesses() []harness {
	echoAdapter := NewDefaultEchoAdapter()
	ginAdapter := NewDefaultGinAdapter()
	fiberAdapter := NewDefaultFiberAdapter()

	return []harness{
		{name: "Echo", server: echoAdapter, serve: recorderServe(echoAdapter.GetEngine())},
		{name: "Gin", server: ginAdapter, serve: recorderServe(ginAdapter.GetEngine())},
		{name: "Fiber", server: fiberAdapter, serve: func(req *http.Request) (*http.Response, error) {
			return fiberAdapter.GetApp().Test(req, -1)
		}},
	}
}

func recorderServe(handler http.Handler) func(*http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Result(), nil
	}
}

func (h harness) do(t *testing.T, method, target string, body io.Reader) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.serve(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, strings.TrimSpace(string(raw))
}

// forEach runs fn against a fresh instance of every adapter
func forEach(t *testing.T, fn func(t *testing.T, h harness)) {
	for _, h := range harnesses() {
		t.Run(h.name, func(t *testing.T) { fn(t, h) })
	}
}

func TestAdapters_Names(t *testing.T) {
	names := map[string]bool{}
	for _, h := range harnesses() {
		assert.Equal(t, h.name, h.server.Name())
		names[h.server.Name()] = true
	}
	assert.Len(t, names, 3)
}

func TestAdapters_BasicRoute(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		h.server.RegisterRoute(http.MethodGet, keel.Path("/test"), func(rc keel.RequestContext) error {
			return rc.Response().JSON(http.StatusOK, map[string]string{"message": "hello"})
		})

		resp, body := h.do(t, http.MethodGet, "/test", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"message":"hello"}`, body)
	})
}

func TestAdapters_RequestData(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		h.server.RegisterRoute(http.MethodPost, keel.Path("/users/{id:int}/files/{*}"), func(rc keel.RequestContext) error {
			var in struct {
				Name string `json:"name"`
			}
			if err := rc.Bind(&in); err != nil {
				return err
			}
			return rc.Response().JSON(http.StatusCreated, map[string]any{
				"method": rc.Method(),
				"path":   rc.Path(),
				"id":     rc.Param("id"),
				"rest":   rc.Param("*"),
				"page":   rc.QueryParam("page"),
				"tags":   rc.QueryParams()["tag"],
				"header": rc.Header("Content-Type"),
				"name":   in.Name,
			})
		})

		resp, body := h.do(t, http.MethodPost, "/users/42/files/a/b.txt?page=2&tag=x&tag=y", strings.NewReader(`{"name":"John"}`))
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		assert.JSONEq(t, `{
			"method": "POST",
			"path": "/users/42/files/a/b.txt",
			"id": "42",
			"rest": "a/b.txt",
			"page": "2",
			"tags": ["x", "y"],
			"header": "application/json",
			"name": "John"
		}`, body)
	})
}

func TestAdapters_RouteGroup(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		api := h.server.RegisterGroup("/api")
		v1 := api.Group("/v1")
		v1.RegisterRoute(http.MethodGet, keel.Path("/users"), func(rc keel.RequestContext) error {
			return rc.Response().String(http.StatusOK, "users")
		})
		api.RegisterRoute(http.MethodGet, keel.Path(""), func(rc keel.RequestContext) error {
			return rc.Response().String(http.StatusOK, "root")
		})

		_, body := h.do(t, http.MethodGet, "/api/v1/users", nil)
		assert.Equal(t, "users", body)
		_, body = h.do(t, http.MethodGet, "/api", nil)
		assert.Equal(t, "root", body)
	})
}

func TestAdapters_MiddlewareOrder(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		var calls []string
		tag := func(name string) keel.MiddlewareFunc {
			return func(next keel.HandlerFunc) keel.HandlerFunc {
				return func(rc keel.RequestContext) error {
					calls = append(calls, name+":in")
					err := next(rc)
					calls = append(calls, name+":out")
					return err
				}
			}
		}

		h.server.Use(tag("global"))
		group := h.server.RegisterGroup("/g")
		group.Use(tag("group"))
		group.RegisterRoute(http.MethodGet, keel.Path("/x"), func(rc keel.RequestContext) error {
			calls = append(calls, "handler")
			return rc.Response().NoContent(http.StatusNoContent)
		}, tag("route"))

		resp, _ := h.do(t, http.MethodGet, "/g/x", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, []string{
			"global:in", "group:in", "route:in", "handler", "route:out", "group:out", "global:out",
		}, calls)
	})
}

func TestAdapters_MiddlewareShortCircuit(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		called := false
		deny := func(next keel.HandlerFunc) keel.HandlerFunc {
			return func(rc keel.RequestContext) error {
				return rc.Response().String(http.StatusTeapot, "stopped")
			}
		}
		h.server.RegisterRoute(http.MethodGet, keel.Path("/guarded"), func(rc keel.RequestContext) error {
			called = true
			return nil
		}, deny)

		resp, body := h.do(t, http.MethodGet, "/guarded", nil)
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
		assert.Equal(t, "stopped", body)
		assert.False(t, called)
	})
}

func TestAdapters_ErrorReachesMiddleware(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		boom := errors.New("boom")
		var seen error
		h.server.Use(func(next keel.HandlerFunc) keel.HandlerFunc {
			return func(rc keel.RequestContext) error {
				seen = next(rc)
				return rc.Response().String(http.StatusBadGateway, "handled")
			}
		})
		h.server.RegisterRoute(http.MethodGet, keel.Path("/fail"), func(rc keel.RequestContext) error {
			return boom
		})

		resp, body := h.do(t, http.MethodGet, "/fail", nil)
		assert.ErrorIs(t, seen, boom)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "handled", body)
	})
}

func TestAdapters_FrameworkErrorsBecomeHTTPErrors(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		h.server.Use(keel.ErrorHandling(false, zerolog.Nop()))
		h.server.RegisterRoute(http.MethodGet, keel.Path("/only-get"), func(rc keel.RequestContext) error {
			return rc.Response().String(http.StatusOK, "ok")
		})

		resp, body := h.do(t, http.MethodGet, "/missing", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body, `"message"`)
		assert.Contains(t, body, `"traceback":null`)
	})
}

func TestAdapters_ContextPropagation(t *testing.T) {
	type key struct{}
	forEach(t, func(t *testing.T, h harness) {
		h.server.Use(func(next keel.HandlerFunc) keel.HandlerFunc {
			return func(rc keel.RequestContext) error {
				rc.SetContext(context.WithValue(rc.Context(), key{}, "scoped"))
				rc.Set("local", "value")
				return next(rc)
			}
		})
		h.server.RegisterRoute(http.MethodGet, keel.Path("/ctx"), func(rc keel.RequestContext) error {
			v, _ := rc.Context().Value(key{}).(string)
			local, _ := rc.Get("local").(string)
			return rc.Response().String(http.StatusOK, v+"/"+local)
		})

		_, body := h.do(t, http.MethodGet, "/ctx", nil)
		assert.Equal(t, "scoped/value", body)
	})
}

func TestAdapters_ResponseWriters(t *testing.T) {
	forEach(t, func(t *testing.T, h harness) {
		h.server.RegisterRoute(http.MethodGet, keel.Path("/html"), func(rc keel.RequestContext) error {
			return rc.Response().HTML(http.StatusOK, "<b>hi</b>")
		})
		h.server.RegisterRoute(http.MethodGet, keel.Path("/blob"), func(rc keel.RequestContext) error {
			rc.Response().SetHeader("X-Kind", "blob")
			return rc.Response().Blob(http.StatusOK, "application/octet-stream", []byte("raw"))
		})
		h.server.RegisterRoute(http.MethodGet, keel.Path("/written"), func(rc keel.RequestContext) error {
			before := rc.Response().Written()
			if err := rc.Response().String(http.StatusAccepted, "x"); err != nil {
				return err
			}
			if before || !rc.Response().Written() || rc.Response().Status() != http.StatusAccepted {
				return errors.New("written tracking broken")
			}
			return nil
		})

		resp, body := h.do(t, http.MethodGet, "/html", nil)
		assert.Equal(t, "<b>hi</b>", body)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

		resp, body = h.do(t, http.MethodGet, "/blob", nil)
		assert.Equal(t, "raw", body)
		assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
		assert.Equal(t, "blob", resp.Header.Get("X-Kind"))

		resp, _ = h.do(t, http.MethodGet, "/written", nil)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})
}

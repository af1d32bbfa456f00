package demo_test

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/toyz/keel/internal/demo"
	"github.com/toyz/keel/pkg/keel"
	"github.com/toyz/keel/pkg/keel/adapters"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// target is one web framework serving the dummy controller
type target struct {
	server keel.WebServerInterface
	do     func(req *http.Request) (*http.Response, error)
	listen func(t *testing.T) string
}

func newTarget(name string) target {
	switch name {
	case "gin":
		a := adapters.NewDefaultGinAdapter()
		return handlerTarget(a, a.GetEngine())
	case "fiber":
		a := adapters.NewDefaultFiberAdapter()
		return target{
			server: a,
			do: func(req *http.Request) (*http.Response, error) {
				return a.GetApp().Test(req, -1)
			},
			listen: func(t *testing.T) string {
				ln, err := net.Listen("tcp", "127.0.0.1:0")
				require.NoError(t, err)
				go func() { _ = a.GetApp().Listener(ln) }()
				t.Cleanup(func() { _ = a.GetApp().Shutdown() })
				return ln.Addr().String()
			},
		}
	default:
		a := adapters.NewDefaultEchoAdapter()
		return handlerTarget(a, a.GetEngine())
	}
}

func handlerTarget(server keel.WebServerInterface, handler http.Handler) target {
	return target{
		server: server,
		do: func(req *http.Request) (*http.Response, error) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Result(), nil
		},
		listen: func(t *testing.T) string {
			srv := httptest.NewServer(handler)
			t.Cleanup(srv.Close)
			return srv.Listener.Addr().String()
		},
	}
}

type DummySuite struct {
	suite.Suite
	adapter string
	debug   bool

	key    *keel.Key
	app    *keel.App
	target target
}

func (s *DummySuite) SetupTest() {
	key, err := keel.NewKey(32)
	s.Require().NoError(err)
	s.key = key

	files, err := filepath.Abs("testdata")
	s.Require().NoError(err)

	container := keel.NewContainer()
	keel.ProvideValue(container, key)

	s.target = newTarget(s.adapter)
	s.app = keel.New(s.target.server, container, keel.Options{
		Debug:       s.debug,
		Key:         key,
		Metrics:     keel.NewMetrics(prometheus.NewRegistry()),
		MetricsPath: "/metrics",
		OpenAPIPath: "/openapi.json",
		OpenAPIInfo: keel.OpenAPIInfo{Title: "keel demo", Version: "test"},
	})
	s.Require().NoError(demo.Register(s.app, demo.Settings{FilesDir: files}))
	s.Require().NoError(s.app.Setup())
}

func (s *DummySuite) request(method, path, body string, header ...string) (*http.Response, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := s.target.do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, strings.TrimSpace(string(raw))
}

func (s *DummySuite) errorBody(raw string) keel.ErrorBody {
	var body keel.ErrorBody
	s.Require().NoError(json.Unmarshal([]byte(raw), &body), raw)
	return body
}

func (s *DummySuite) login() string {
	resp, body := s.request(http.MethodGet, "/dummy/login?username=John", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)
	var token string
	s.Require().NoError(json.Unmarshal([]byte(body), &token))
	return token
}

func (s *DummySuite) TestGet() {
	resp, body := s.request(http.MethodGet, "/dummy", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Hello World!", body)
	s.NotEmpty(resp.Header.Get(keel.RequestIDHeader))
}

func (s *DummySuite) TestEchoBody() {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
		resp, body := s.request(method, "/dummy", `{"name":"John","age":30}`)
		s.Equal(http.StatusOK, resp.StatusCode, method)
		s.JSONEq(`{"name":"John","age":30}`, body, method)
	}
}

func (s *DummySuite) TestEchoBody_Invalid() {
	resp, body := s.request(http.MethodPost, "/dummy", `{"name":`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("invalid request body", s.errorBody(body).Message)
}

func (s *DummySuite) TestDelete() {
	id := uuid.New()
	resp, body := s.request(http.MethodDelete, "/dummy/"+id.String(), "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(`"`+id.String()+`"`, body)

	resp, body = s.request(http.MethodDelete, "/dummy/not-a-uuid", "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal([]string{"id", "not-a-uuid"}, s.errorBody(body).Args)
}

func (s *DummySuite) TestHead() {
	resp, body := s.request(http.MethodHead, "/dummy", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Empty(body)
}

func (s *DummySuite) TestOptions() {
	resp, body := s.request(http.MethodOptions, "/dummy", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Hello Options!", body)
}

func (s *DummySuite) TestFile() {
	resp, body := s.request(http.MethodGet, "/dummy/file/dummy.txt", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("Hello File!", body)

	resp, _ = s.request(http.MethodGet, "/dummy/file/missing.txt", "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *DummySuite) TestLoginAndProfile() {
	token := s.login()

	parsed, err := keel.ParseToken(token)
	s.Require().NoError(err)
	s.True(parsed.Verify(s.key))

	resp, body := s.request(http.MethodGet, "/dummy/users/profile", "", "Authorization", "Bearer "+token)
	s.Equal(http.StatusOK, resp.StatusCode, body)
	s.Equal(`"John"`, body)
}

func (s *DummySuite) TestLogin_MissingUsername() {
	resp, body := s.request(http.MethodGet, "/dummy/login", "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("missing query parameter", s.errorBody(body).Message)
}

func (s *DummySuite) TestProfile_Rejected() {
	foreignKey, err := keel.NewKey(32)
	s.Require().NoError(err)
	foreign, err := keel.NewToken().WithExpiration(time.Hour).WithClaim("username", "John").Sign(foreignKey)
	s.Require().NoError(err)
	expired, err := keel.NewToken().WithExpiration(-time.Hour).WithClaim("username", "John").Sign(s.key)
	s.Require().NoError(err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"undefined", "Bearer undefined", "user authentication failed"},
		{"wrong key", "Bearer " + foreign, "user authentication failed"},
		{"expired", "Bearer " + expired, "user authentication failed"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "not authenticated"},
		{"missing", "", "not authenticated"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			var header []string
			if tt.header != "" {
				header = []string{"Authorization", tt.header}
			}
			resp, body := s.request(http.MethodGet, "/dummy/users/profile", "", header...)
			s.Equal(http.StatusUnauthorized, resp.StatusCode)
			s.Equal(tt.message, s.errorBody(body).Message)
		})
	}
}

func (s *DummySuite) TestVerifyEmail() {
	resp, _ := s.request(http.MethodGet, "/dummy/verify-email?email=john@example.com", "")
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, body := s.request(http.MethodGet, "/dummy/verify-email?email=john", "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid email", s.errorBody(body).Message)
}

func (s *DummySuite) TestError() {
	resp, raw := s.request(http.MethodGet, "/dummy/error", "")
	s.Equal(http.StatusInternalServerError, resp.StatusCode)

	body := s.errorBody(raw)
	s.Equal("an unknown error occurred", body.Message)
	s.Empty(body.Args)
	if s.debug {
		s.Require().NotNil(body.Traceback)
		s.Contains(*body.Traceback, "dummy failure")
	} else {
		s.Nil(body.Traceback)
	}
}

func (s *DummySuite) TestUnknownRoute() {
	resp, body := s.request(http.MethodGet, "/nowhere", "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.NotEmpty(s.errorBody(body).Message)
}

func (s *DummySuite) TestWebSocket() {
	addr := s.target.listen(s.T())

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/dummy/ws", nil)
	s.Require().NoError(err)
	defer conn.Close()
	s.Equal(http.StatusSwitchingProtocols, resp.StatusCode)

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	messageType, message, err := conn.ReadMessage()
	s.Require().NoError(err)
	s.Equal(websocket.TextMessage, messageType)
	s.Equal("ping", string(message))
}

func (s *DummySuite) TestRegistry() {
	routes := s.app.Registry().GetRoutesByController("*demo.DummyController")
	s.Len(routes, 13)

	byHandler := make(map[string]keel.RouteInfo)
	for _, route := range routes {
		byHandler[route.HandlerName] = route
	}
	profile := byHandler["GetProfile"]
	s.Equal("/dummy/users/profile", profile.Path)
	s.Equal("Get Profile", profile.Name)
	s.Equal([]string{"dummy"}, profile.Tags)
	s.Require().NotNil(profile.Spec.Auth)
	s.Equal("/dummy/login", profile.Spec.Auth.TokenURL)

	s.True(byHandler["WebSocketDummy"].WebSocket)
	s.Equal("Get file by given name", byHandler["GetFile"].Spec.Description)

	// generated docs fill what the route table leaves empty
	s.Equal("GetDummy greets the caller", byHandler["GetDummy"].Spec.Description)
	s.Equal("Issue a bearer token", byHandler["Login"].Spec.Summary)
}

func (s *DummySuite) TestOpenAPI() {
	resp, body := s.request(http.MethodGet, "/openapi.json", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)

	var doc struct {
		Info  map[string]any            `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	s.Require().NoError(json.Unmarshal([]byte(body), &doc))
	s.Equal("keel demo", doc.Info["title"])
	s.Contains(doc.Paths, "/dummy/users/profile")
	s.Contains(doc.Paths, "/dummy/{id}")
	s.NotContains(doc.Paths, "/dummy/ws")
	s.Contains(doc.Paths["/dummy/users/profile"]["get"], "security")
}

func (s *DummySuite) TestMetrics() {
	s.request(http.MethodGet, "/dummy", "")
	s.request(http.MethodGet, "/dummy/users/profile", "", "Authorization", "Bearer undefined")

	resp, body := s.request(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, `keel_http_requests_total{method="GET",route="/dummy",status="200"} 1`)
	s.Contains(body, `keel_http_requests_total{method="GET",route="/dummy/users/profile",status="401"} 1`)
	s.Contains(body, "keel_auth_failures_total 1")
}

func TestDummy_Echo(t *testing.T) {
	suite.Run(t, &DummySuite{adapter: "echo"})
}

func TestDummy_Gin(t *testing.T) {
	suite.Run(t, &DummySuite{adapter: "gin"})
}

func TestDummy_Fiber(t *testing.T) {
	suite.Run(t, &DummySuite{adapter: "fiber"})
}

func TestDummy_Debug(t *testing.T) {
	suite.Run(t, &DummySuite{adapter: "echo", debug: true})
}

package keel

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type routeModel struct {
	ID int `json:"id"`
}

func TestRoute_Defaults(t *testing.T) {
	spec := Route("/users")

	assert.Equal(t, "/users", spec.Path)
	assert.Equal(t, []HTTPMethod{MethodGet}, spec.Methods)
	assert.True(t, spec.IncludeInSchema)
	assert.Equal(t, "Successful Response", spec.ResponseDescription)
	assert.Equal(t, JSONResponse, spec.ResponseClass)
	assert.Nil(t, spec.Auth)
}

func TestRoute_WithMethodsDropsDuplicates(t *testing.T) {
	spec := Route("/users", WithMethods(MethodGet, MethodPost, MethodGet))
	assert.Equal(t, []HTTPMethod{MethodGet, MethodPost}, spec.Methods)
	assert.True(t, spec.HasMethod(MethodPost))
	assert.False(t, spec.HasMethod(MethodDelete))
}

func TestVerbHelpers(t *testing.T) {
	tests := []struct {
		spec   RouteSpec
		method HTTPMethod
	}{
		{GET("/x"), MethodGet},
		{POST("/x"), MethodPost},
		{PUT("/x"), MethodPut},
		{PATCH("/x"), MethodPatch},
		{DELETE("/x"), MethodDelete},
		{HEAD("/x"), MethodHead},
		{OPTIONS("/x"), MethodOptions},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, []HTTPMethod{tt.method}, tt.spec.Methods)
		})
	}

	// the verb wins over an explicit method option
	spec := POST("/x", WithMethods(MethodGet, MethodPut))
	assert.Equal(t, []HTTPMethod{MethodPost}, spec.Methods)
}

func TestRoute_Options(t *testing.T) {
	callback := POST("{$request.body#/callbackUrl}", WithName("notify"))
	spec := Route("/users/{id:int}",
		WithStatusCode(201),
		WithResponseModel(routeModel{}),
		WithTags("users"),
		WithTags("admin"),
		WithSummary("Get user"),
		WithDescription("Returns one user"),
		WithResponseDescription("The user"),
		WithResponse(404, "Missing", ErrorBody{}),
		Deprecated(),
		WithOperationID("get_user"),
		ExcludeFromSchema(),
		WithResponseClass(PlainTextResponse),
		WithName("Fetch User"),
		WithCallback(callback),
		WithOpenAPIExtra(map[string]any{"x-internal": true}),
		WithInclude("id"),
		WithExclude("password"),
		WithExcludeNone(),
		WithExcludeZero(),
		WithLogging(),
	)

	assert.Equal(t, 201, spec.StatusCode)
	assert.Equal(t, reflect.TypeFor[routeModel](), spec.ResponseModel)
	assert.Equal(t, []string{"users", "admin"}, spec.Tags)
	assert.Equal(t, "Get user", spec.Summary)
	assert.Equal(t, "Returns one user", spec.Description)
	assert.Equal(t, "The user", spec.ResponseDescription)
	assert.Equal(t, ResponseDoc{Description: "Missing", Model: reflect.TypeFor[ErrorBody]()}, spec.Responses[404])
	assert.True(t, spec.Deprecated)
	assert.Equal(t, "get_user", spec.OperationID)
	assert.False(t, spec.IncludeInSchema)
	assert.Equal(t, PlainTextResponse, spec.ResponseClass)
	assert.Equal(t, "Fetch User", spec.Name)
	assert.Len(t, spec.Callbacks, 1)
	assert.Equal(t, true, spec.OpenAPIExtra["x-internal"])
	assert.Equal(t, SerializationOptions{
		Include:     []string{"id"},
		Exclude:     []string{"password"},
		ExcludeNone: true,
		ExcludeZero: true,
	}, spec.Serialization)
	assert.True(t, spec.Logged)
}

func TestWithResponseModel_AcceptsType(t *testing.T) {
	spec := Route("/x", WithResponseModel(reflect.TypeFor[[]routeModel]()))
	assert.Equal(t, reflect.TypeFor[[]routeModel](), spec.ResponseModel)
}

func TestWithAuth(t *testing.T) {
	spec := GET("/profile", WithAuth("/login"))
	assert.Equal(t, &AuthSpec{TokenURL: "/login", Params: []string{"token"}}, spec.Auth)

	spec = GET("/profile", WithAuth("/login", "access", "refresh", "access"))
	assert.Equal(t, []string{"access", "refresh"}, spec.Auth.Params)
}

func TestRouteSpec_CloneIsDeep(t *testing.T) {
	spec := GET("/x",
		WithTags("a"),
		WithAuth("/login"),
		WithOpenAPIExtra(map[string]any{"x-a": 1}),
		WithInclude("id"),
	)
	c := spec.clone()

	c.Tags[0] = "changed"
	c.Methods[0] = MethodPost
	c.Auth.Params[0] = "changed"
	c.OpenAPIExtra["x-a"] = 2
	c.Serialization.Include[0] = "changed"

	assert.Equal(t, "a", spec.Tags[0])
	assert.Equal(t, MethodGet, spec.Methods[0])
	assert.Equal(t, "token", spec.Auth.Params[0])
	assert.Equal(t, 1, spec.OpenAPIExtra["x-a"])
	assert.Equal(t, "id", spec.Serialization.Include[0])
}

func TestWebSocket(t *testing.T) {
	mw := func(next HandlerFunc) HandlerFunc { return next }
	spec := WebSocket("/ws", WithWebSocketName("Echo Socket"), WithWebSocketDependencies(mw))

	assert.Equal(t, "/ws", spec.Path)
	assert.Equal(t, "Echo Socket", spec.Name)
	assert.Len(t, spec.Dependencies, 1)
}

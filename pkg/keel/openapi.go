package keel

import (
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

// OpenAPIInfo is the info block of the generated document
type OpenAPIInfo struct {
	Title       string
	Version     string
	Description string
}

// securitySchemeName names the OAuth2 password flow scheme of the first token
// URL; further token URLs get a numeric suffix
const securitySchemeName = "OAuth2PasswordBearer"

// schemaRefFor generates an inline JSON schema for t
func schemaRefFor(t reflect.Type) (ref *openapi3.SchemaRef, err error) {
	switch t.Kind() {
	case reflect.Invalid, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, fmt.Errorf("no schema for %s", t)
	}
	defer func() {
		if r := recover(); r != nil {
			ref, err = nil, fmt.Errorf("no schema for %s: %v", t, r)
		}
	}()
	return openapi3gen.NewGenerator().GenerateSchemaRef(t)
}

// BuildOpenAPI builds an OpenAPI 3 document from registered routes. Routes
// excluded from the schema and websocket routes are skipped.
func BuildOpenAPI(info OpenAPIInfo, routes []RouteInfo) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas:         openapi3.Schemas{},
			SecuritySchemes: openapi3.SecuritySchemes{},
		},
	}

	errorSchema, err := schemaRefFor(reflect.TypeFor[ErrorBody]())
	if err != nil {
		return nil, err
	}
	doc.Components.Schemas["ErrorBody"] = errorSchema

	schemes := make(map[string]string)
	for _, route := range routes {
		if route.WebSocket || !route.Spec.IncludeInSchema {
			continue
		}

		op, err := operationFor(route.Spec, route.Method, route.Tags)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", route.Method, route.Path, err)
		}
		op.Parameters = pathParameters(Path(route.Path))

		if auth := route.Spec.Auth; auth != nil {
			name, ok := schemes[auth.TokenURL]
			if !ok {
				name = securitySchemeName
				if len(schemes) > 0 {
					name += strconv.Itoa(len(schemes) + 1)
				}
				schemes[auth.TokenURL] = name
				doc.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
					Value: &openapi3.SecurityScheme{
						Type: "oauth2",
						Flows: &openapi3.OAuthFlows{
							Password: &openapi3.OAuthFlow{TokenURL: auth.TokenURL, Scopes: map[string]string{}},
						},
					},
				}
			}
			requirements := openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(name))
			op.Security = requirements
			op.Responses.Set(strconv.Itoa(http.StatusUnauthorized), errorResponse("Authentication failed"))
		}

		openAPIPath := Path(route.Path).OpenAPIPath()
		item := doc.Paths.Value(openAPIPath)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(openAPIPath, item)
		}
		item.SetOperation(route.Method, op)
	}
	return doc, nil
}

func operationFor(spec RouteSpec, method string, tags []string) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()
	op.Summary = spec.Summary
	if op.Summary == "" {
		op.Summary = spec.Name
	}
	op.Description = spec.Description
	op.OperationID = spec.OperationID
	if op.OperationID == "" && spec.Name != "" {
		op.OperationID = strings.ToLower(strings.ReplaceAll(spec.Name, " ", "_")) + "_" + strings.ToLower(method)
	}
	op.Tags = tags
	op.Deprecated = spec.Deprecated
	if len(spec.OpenAPIExtra) > 0 {
		op.Extensions = maps.Clone(spec.OpenAPIExtra)
	}

	status := spec.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	success, err := responseFor(spec.ResponseDescription, spec.ResponseModel, spec.ResponseClass)
	if err != nil {
		return nil, err
	}
	op.Responses = &openapi3.Responses{}
	op.Responses.Set(strconv.Itoa(status), success)
	for code, extra := range spec.Responses {
		ref, err := responseFor(extra.Description, extra.Model, JSONResponse)
		if err != nil {
			return nil, err
		}
		op.Responses.Set(strconv.Itoa(code), ref)
	}
	if op.Responses.Value(strconv.Itoa(http.StatusInternalServerError)) == nil {
		op.Responses.Set(strconv.Itoa(http.StatusInternalServerError), errorResponse("Internal Server Error"))
	}

	for i, cb := range spec.Callbacks {
		if op.Callbacks == nil {
			op.Callbacks = openapi3.Callbacks{}
		}
		item := &openapi3.PathItem{}
		for _, m := range cb.Methods {
			cbOp, err := operationFor(cb, string(m), nil)
			if err != nil {
				return nil, err
			}
			item.SetOperation(string(m), cbOp)
		}
		callback := &openapi3.Callback{}
		callback.Set(cb.Path, item)
		name := cb.Name
		if name == "" {
			name = "callback" + strconv.Itoa(i+1)
		}
		op.Callbacks[name] = &openapi3.CallbackRef{Value: callback}
	}
	return op, nil
}

func responseFor(description string, model reflect.Type, class ResponseClass) (*openapi3.ResponseRef, error) {
	if description == "" {
		description = "Successful Response"
	}
	resp := openapi3.NewResponse().WithDescription(description)
	switch class {
	case PlainTextResponse:
		resp.WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"}))
	case HTMLResponse:
		resp.WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/html"}))
	case FileResponse, BlobResponse:
		resp.WithContent(openapi3.NewContentWithSchema(openapi3.NewBytesSchema(), []string{"application/octet-stream"}))
	default:
		if model != nil {
			ref, err := schemaRefFor(model)
			if err != nil {
				return nil, err
			}
			resp.WithJSONSchemaRef(ref)
		}
	}
	return &openapi3.ResponseRef{Value: resp}, nil
}

func errorResponse(description string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/ErrorBody", nil)),
	}
}

func pathParameters(p Path) openapi3.Parameters {
	var params openapi3.Parameters
	for _, part := range p.Parts() {
		var schema *openapi3.Schema
		name := part.Value
		switch {
		case part.Type == WildcardPart:
			name, schema = "path", openapi3.NewStringSchema()
		case part.Type != ParameterPart:
			continue
		case part.ParamType == "int":
			schema = openapi3.NewIntegerSchema()
		case part.ParamType == "float" || part.ParamType == "float64":
			schema = openapi3.NewFloat64Schema()
		case part.ParamType == "bool":
			schema = openapi3.NewBoolSchema()
		case part.ParamType == "uuid" || part.ParamType == "UUID":
			schema = openapi3.NewUUIDSchema()
		default:
			schema = openapi3.NewStringSchema()
		}
		params = append(params, &openapi3.ParameterRef{Value: openapi3.NewPathParameter(name).WithSchema(schema)})
	}
	return params
}

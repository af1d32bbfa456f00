package keel

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// routeKey is the request context key holding the matched route pattern
const routeKey = "keel.route"

// registrar binds controller route tables onto a web server
type registrar struct {
	server    WebServerInterface
	container *Container
	logger    zerolog.Logger
	registry  RouteRegistry
	chain     []Interceptor
}

func (r *registrar) register(defs []controllerDef) {
	for _, def := range defs {
		group := r.server.RegisterGroup(def.spec.Prefix)
		for _, b := range def.routes() {
			if b.ws != nil {
				r.registerWebSocket(group, def, b)
				continue
			}
			r.registerRoute(group, def, b)
		}
	}
}

// prepare fills the defaults of a route spec from the handler itself
func (r *registrar) prepare(def controllerDef, b *binding) RouteSpec {
	spec := b.spec.clone()
	if spec.Name == "" {
		spec.Name = displayName(b.identifier)
	}
	if doc, ok := Doc(strings.TrimSuffix(b.key, "-fm")); ok {
		if spec.Description == "" {
			spec.Description = doc.Description
		}
		if spec.Summary == "" {
			spec.Summary = doc.Summary
		}
		spec.Deprecated = spec.Deprecated || doc.Deprecated
		spec.Tags = append(spec.Tags, doc.Tags...)
	}
	if spec.ResponseModel == nil && canDescribe(b.resultType) {
		spec.ResponseModel = b.resultType
	}
	spec.Tags = mergeTags(def.spec.Tags, spec.Tags)
	return spec
}

func (r *registrar) registerRoute(group RouteGroup, def controllerDef, b *binding) {
	spec := r.prepare(def, b)
	fullPath := Path(def.spec.Prefix).Join(spec.Path)

	proceed := buildChain(r.chain, func(inv *Invocation) (any, error) {
		inv.Context.args = inv.Args
		return b.invoke(inv.Target, inv.Context)
	})

	endpoint := func(rc RequestContext) error {
		rc.Set(routeKey, fullPath.Raw())
		ctx := newContext(rc, r.container, r.logger)
		if spec.Auth != nil && len(spec.Auth.Params) > 0 {
			raw, err := bearerToken(rc.Header("Authorization"))
			if err != nil {
				return Unauthorized(err)
			}
			for _, param := range spec.Auth.Params {
				ctx.args[param] = raw
			}
		}

		target, err := def.resolve(rc.Context())
		if err != nil {
			return InternalServerError(fmt.Errorf("resolve controller %s: %w", def.name, err))
		}

		result, err := proceed(&Invocation{
			Controller: def.name,
			Handler:    b.identifier,
			Route:      spec.clone(),
			Target:     target,
			Context:    ctx,
			Args:       ctx.args,
		})
		if err != nil {
			return err
		}
		return writeResult(rc, spec, result)
	}

	for _, method := range spec.Methods {
		group.RegisterRoute(string(method), Path(spec.Path), endpoint, spec.Dependencies...)
		r.registry.RegisterRoute(RouteInfo{
			Method:         string(method),
			Path:           fullPath.Raw(),
			Name:           spec.Name,
			HandlerName:    b.identifier,
			ControllerName: def.name,
			PackageName:    def.pkg,
			Tags:           slices.Clone(spec.Tags),
			Spec:           spec.clone(),
		})
		r.logger.Debug().
			Str("method", string(method)).
			Str("path", fullPath.Raw()).
			Str("controller", def.name).
			Str("handler", b.identifier).
			Msg("route registered")
	}
}

func (r *registrar) registerWebSocket(group RouteGroup, def controllerDef, b *binding) {
	name := b.ws.Name
	if name == "" {
		name = displayName(b.identifier)
	}
	fullPath := Path(def.spec.Prefix).Join(b.ws.Path)

	handler := func(rc RequestContext) (WebSocketSession, error) {
		rc.Set(routeKey, fullPath.Raw())
		ctx := newContext(rc, r.container, r.logger)
		target, err := def.resolve(rc.Context())
		if err != nil {
			return nil, InternalServerError(fmt.Errorf("resolve controller %s: %w", def.name, err))
		}
		logger := *ctx.Logger()
		return func(conn WebSocketConn) error {
			err := b.serveWS(target, ctx, conn)
			if err != nil {
				logger.Warn().Err(err).Str("handler", b.identifier).Msg("websocket session failed")
			}
			return err
		}, nil
	}

	group.RegisterWebSocket(Path(b.ws.Path), handler, b.ws.Dependencies...)
	r.registry.RegisterRoute(RouteInfo{
		Method:         string(MethodGet),
		Path:           fullPath.Raw(),
		Name:           name,
		HandlerName:    b.identifier,
		ControllerName: def.name,
		PackageName:    def.pkg,
		Tags:           slices.Clone(def.spec.Tags),
		WebSocket:      true,
		Spec:           Route(b.ws.Path, WithName(name), ExcludeFromSchema()),
	})
	r.logger.Debug().
		Str("path", fullPath.Raw()).
		Str("controller", def.name).
		Str("handler", b.identifier).
		Msg("websocket route registered")
}

func mergeTags(controller, route []string) []string {
	tags := make([]string, 0, len(controller)+len(route))
	for _, tag := range slices.Concat(controller, route) {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	return tags
}

// canDescribe reports whether an OpenAPI schema can be generated for t
func canDescribe(t reflect.Type) bool {
	if t == nil || t == reflect.TypeFor[*Response]() {
		return false
	}
	_, err := schemaRefFor(t)
	return err == nil
}

package keel

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultTokenParam is the keyword under which a route receives its token
// when WithAuth names none
const DefaultTokenParam = "token"

// AuthSpec declares which handler arguments carry a bearer token. The
// parameter set is fixed when the route is declared.
type AuthSpec struct {
	// TokenURL is where clients obtain tokens; documented in the OpenAPI
	// security scheme
	TokenURL string
	// Params are the keyword arguments that receive the raw bearer string and,
	// once verified, the *Token
	Params []string
}

// WithAuth protects the route with bearer authentication. Each param receives
// the token from the Authorization header; without params DefaultTokenParam is
// used.
func WithAuth(tokenURL string, params ...string) RouteOption {
	return func(s *RouteSpec) {
		if len(params) == 0 {
			params = []string{DefaultTokenParam}
		}
		auth := &AuthSpec{TokenURL: tokenURL}
		for _, p := range params {
			if !slices.Contains(auth.Params, p) {
				auth.Params = append(auth.Params, p)
			}
		}
		s.Auth = auth
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, error) {
	scheme, credentials, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNotAuthenticated
	}
	credentials = strings.TrimSpace(credentials)
	if credentials == "" {
		return "", ErrNotAuthenticated
	}
	return credentials, nil
}

// AuthInterceptor verifies the tokens of routes declared WithAuth before any
// other interceptor or the handler runs. Every failure is reported as
// Unauthorized(ErrAuthenticationFailed); the cause is only logged.
type AuthInterceptor struct {
	logger zerolog.Logger
	key    *Key
}

// NewAuthInterceptor creates an AuthInterceptor verifying against key
func NewAuthInterceptor(logger zerolog.Logger, key *Key) *AuthInterceptor {
	return &AuthInterceptor{logger: logger, key: key}
}

// Order gives authentication the highest precedence
func (ai *AuthInterceptor) Order() int { return HighestPrecedence }

// Matches selects routes declared WithAuth
func (ai *AuthInterceptor) Matches(inv *Invocation) bool { return inv.Route.Auth != nil }

// Intercept replaces every raw token argument with its verified *Token
func (ai *AuthInterceptor) Intercept(inv *Invocation, next Proceed) (any, error) {
	for _, param := range inv.Route.Auth.Params {
		token, err := ai.authenticate(inv.Args[param])
		if err != nil {
			ai.logger.Warn().
				Err(err).
				Str("request_id", RequestID(inv.Context.Context())).
				Str("handler", inv.Controller+"."+inv.Handler).
				Str("param", param).
				Msg("[AuthInterceptor] authentication failed")
			return nil, Unauthorized(ErrAuthenticationFailed)
		}
		ai.logger.Info().
			Str("request_id", RequestID(inv.Context.Context())).
			Interface("payload", token.Payload()).
			Msg("[AuthInterceptor] authenticated")
		inv.Args[param] = token
	}
	return next(inv)
}

var (
	errTokenMissing = errors.New("token argument missing")
	errTokenExpired = errors.New("token expired")
	errBadSignature = errors.New("token signature mismatch")
)

func (ai *AuthInterceptor) authenticate(arg any) (*Token, error) {
	raw, ok := arg.(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: got %T", errTokenMissing, arg)
	}
	token, err := ParseToken(raw)
	if err != nil {
		return nil, err
	}
	if token.IsExpired() {
		return nil, errTokenExpired
	}
	if !token.Verify(ai.key) {
		return nil, errBadSignature
	}
	return token, nil
}

package keel

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token parsing errors
var (
	ErrInvalidTokenFormat = errors.New("keel: invalid token format")
	ErrTokenDecoding      = errors.New("keel: token could not be decoded")
	ErrEmptyKey           = errors.New("keel: signing key is empty")
)

// Key is the HMAC secret tokens are signed and verified with
type Key struct {
	secret []byte
}

// NewKey creates a random key of size bytes
func NewKey(size int) (*Key, error) {
	if size <= 0 {
		return nil, ErrEmptyKey
	}
	secret := make([]byte, size)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return &Key{secret: secret}, nil
}

// KeyFromBytes wraps an existing secret
func KeyFromBytes(secret []byte) *Key {
	return &Key{secret: append([]byte(nil), secret...)}
}

// KeyFromBase64 decodes a standard or URL base64 encoded secret
func KeyFromBase64(encoded string) (*Key, error) {
	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		secret, err = base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decoding key: %w", err)
		}
	}
	if len(secret) == 0 {
		return nil, ErrEmptyKey
	}
	return &Key{secret: secret}, nil
}

// Base64 returns the secret in standard base64
func (k *Key) Base64() string {
	return base64.StdEncoding.EncodeToString(k.secret)
}

// Token is a signed JWT carrying a payload and an expiration. Tokens built
// with NewToken are unsigned until Sign; tokens from ParseToken keep their raw
// form so Verify can check the signature.
type Token struct {
	claims jwt.MapClaims
	raw    string
}

// NewToken starts building an unsigned token
func NewToken() *Token {
	return &Token{claims: jwt.MapClaims{"iat": time.Now().Unix()}}
}

// WithExpiration sets the exp claim to now+d
func (t *Token) WithExpiration(d time.Duration) *Token {
	t.claims["exp"] = time.Now().Add(d).Unix()
	return t
}

// WithClaims merges claims into the payload
func (t *Token) WithClaims(claims map[string]any) *Token {
	maps.Copy(t.claims, claims)
	return t
}

// WithClaim sets a single payload claim
func (t *Token) WithClaim(name string, value any) *Token {
	t.claims[name] = value
	return t
}

// Sign signs the token with HS256 and returns the compact serialization
func (t *Token) Sign(key *Key) (string, error) {
	if key == nil || len(key.secret) == 0 {
		return "", ErrEmptyKey
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, t.claims).SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	t.raw = signed
	return signed, nil
}

// ParseToken decodes raw without checking its signature or expiration. Use
// IsExpired and Verify for that. A non-numeric exp claim is a format error.
func ParseToken(raw string) (*Token, error) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(raw, claims)
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenDecoding, err)
	}
	// exp, when present, must be a NumericDate
	if _, err := claims.GetExpirationTime(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	}
	return &Token{claims: claims, raw: raw}, nil
}

// Expiration returns the exp claim, if present
func (t *Token) Expiration() (time.Time, bool) {
	exp, err := t.claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsExpired reports whether the exp claim lies in the past. Tokens without an
// exp claim never expire.
func (t *Token) IsExpired() bool {
	exp, ok := t.Expiration()
	return ok && exp.Before(time.Now())
}

// Verify checks the HS256 signature against key. Claims are not validated here.
func (t *Token) Verify(key *Key) bool {
	if key == nil || t.raw == "" {
		return false
	}
	_, err := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	).Parse(t.raw, func(*jwt.Token) (any, error) {
		return key.secret, nil
	})
	return err == nil
}

// Payload returns a copy of the token claims
func (t *Token) Payload() map[string]any {
	return maps.Clone(map[string]any(t.claims))
}

// Claim returns a single payload claim
func (t *Token) Claim(name string) (any, bool) {
	v, ok := t.claims[name]
	return v, ok
}

// String returns the compact serialization, empty for unsigned tokens
func (t *Token) String() string {
	return t.raw
}

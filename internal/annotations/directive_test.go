package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toyz/keel/internal/errors"
)

func TestIsDirective(t *testing.T) {
	assert.True(t, IsDirective("keel::summary hi"))
	assert.True(t, IsDirective("   keel::deprecated"))
	assert.False(t, IsDirective("see keel::summary"))
	assert.False(t, IsDirective("keel: summary"))
}

func TestParser_Parse(t *testing.T) {
	p := NewParser()
	loc := errors.SourceLocation{File: "user.go", Line: 10}

	tests := []struct {
		name     string
		input    string
		wantName string
		wantArgs []string
	}{
		{"summary words", "keel::summary Fetch a user's profile", Summary, []string{"Fetch", "a", "user's", "profile"}},
		{"deprecated", "keel::deprecated", Deprecated, nil},
		{"tags", "keel::tag users admin", Tag, []string{"users", "admin"}},
		{"quoted tag", `keel::tag "user admin" other`, Tag, []string{"user admin", "other"}},
		{"escaped quote", `keel::summary "say \"hi\""`, Summary, []string{`say "hi"`}},
		{"surrounding space", "  keel::tag users  ", Tag, []string{"users"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := p.Parse(tt.input, loc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, d.Name)
			if tt.wantArgs == nil {
				assert.Empty(t, d.Args)
			} else {
				assert.Equal(t, tt.wantArgs, d.Args)
			}
			assert.Equal(t, loc, d.Loc)
		})
	}
}

func TestParser_ParseErrors(t *testing.T) {
	p := NewParser()
	loc := errors.SourceLocation{File: "user.go", Line: 4}

	tests := []struct {
		name     string
		input    string
		wantCode errors.ErrorCode
		contains string
	}{
		{"unknown", "keel::route GET /x", errors.ValidationErrorCode, `unknown directive "keel::route"`},
		{"summary needs text", "keel::summary", errors.ValidationErrorCode, "keel::summary takes at least 1 argument(s)"},
		{"deprecated takes nothing", "keel::deprecated soon", errors.ValidationErrorCode, "keel::deprecated takes no arguments"},
		{"missing name", "keel::", errors.SyntaxErrorCode, "failed to parse keel directive"},
		{"unterminated string", `keel::tag "open`, errors.SyntaxErrorCode, "failed to parse keel directive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.input, loc)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.Code(err))
			assert.Contains(t, err.Error(), tt.contains)
			assert.Contains(t, err.Error(), "user.go:4")
		})
	}
}

func TestParser_ParseDoc(t *testing.T) {
	p := NewParser()
	text := "GetUser returns a single user.\n\nkeel::summary Fetch a user\nkeel::tag users\nkeel::tag users admin\nkeel::deprecated\n"

	doc, err := p.ParseDoc(text, errors.SourceLocation{File: "user.go", Line: 20})
	require.NoError(t, err)
	assert.Equal(t, Doc{
		Description: "GetUser returns a single user.",
		Summary:     "Fetch a user",
		Deprecated:  true,
		Tags:        []string{"users", "admin"},
	}, doc)
	assert.False(t, doc.IsEmpty())
}

func TestParser_ParseDocKeepsValidParts(t *testing.T) {
	p := NewParser()
	text := "Login issues a token.\nkeel::bogus\nkeel::summary Sign in\n"

	doc, err := p.ParseDoc(text, errors.SourceLocation{File: "auth.go", Line: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.go:8")
	assert.Equal(t, "Sign in", doc.Summary)
	assert.Equal(t, "Login issues a token.", doc.Description)
}

func TestDoc_IsEmpty(t *testing.T) {
	assert.True(t, Doc{}.IsEmpty())
	assert.False(t, Doc{Tags: []string{"x"}}.IsEmpty())
}

package keel

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryMap(t *testing.T) {
	q := NewQueryMap(map[string][]string{
		"page":    {"3"},
		"size":    {"abc"},
		"debug":   {"Yes"},
		"tag":     {"a", "b"},
		"empty":   {""},
		"verbose": {"off"},
	})

	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "", q.Get("missing"))
	assert.Equal(t, "fallback", q.GetDefault("missing", "fallback"))
	assert.Equal(t, "fallback", q.GetDefault("empty", "fallback"))
	assert.Equal(t, 3, q.GetInt("page"))
	assert.Equal(t, 0, q.GetInt("size"))
	assert.Equal(t, 20, q.GetIntDefault("size", 20))
	assert.True(t, q.GetBool("debug"))
	assert.False(t, q.GetBool("verbose"))
	assert.False(t, q.GetBool("missing"))
	assert.Equal(t, []string{"a", "b"}, q.GetAll("tag"))
	assert.True(t, q.Has("empty"))
	assert.False(t, q.Has("missing"))
}

func TestQueryMap_Require(t *testing.T) {
	q := NewQueryMap(map[string][]string{"email": {"john@example.com"}})

	v, err := q.Require("email")
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", v)

	_, err = q.Require("code")
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)
	assert.Equal(t, "missing query parameter", he.Message)
	assert.Equal(t, []any{"code"}, he.Args)
}

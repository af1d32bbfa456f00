package keel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterDoc(t *testing.T) {
	tags := []string{"users"}
	RegisterDoc("example.com/app.(*UserController).Get", HandlerDoc{
		Description: "Returns a user.",
		Summary:     "Get user",
		Tags:        tags,
	})
	tags[0] = "changed"

	doc, ok := Doc("example.com/app.(*UserController).Get")
	assert.True(t, ok)
	assert.Equal(t, "Returns a user.", doc.Description)
	assert.Equal(t, "Get user", doc.Summary)
	assert.Equal(t, []string{"users"}, doc.Tags)

	_, ok = Doc("example.com/app.(*UserController).Missing")
	assert.False(t, ok)
}

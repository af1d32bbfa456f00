package keel

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryMap represents URL query parameters with convenient access methods
type QueryMap struct {
	values url.Values
}

// NewQueryMap wraps raw query values
func NewQueryMap(values map[string][]string) QueryMap {
	return QueryMap{values: url.Values(values)}
}

// Get returns the first value for the given key, or empty string if not found
func (q QueryMap) Get(key string) string {
	return q.values.Get(key)
}

// GetDefault returns the first value for the given key, or the default value if not found
func (q QueryMap) GetDefault(key, defaultValue string) string {
	if value := q.values.Get(key); value != "" {
		return value
	}
	return defaultValue
}

// GetInt returns the first value for the given key as an integer, or 0 if not found/invalid
func (q QueryMap) GetInt(key string) int {
	return q.GetIntDefault(key, 0)
}

// GetIntDefault returns the first value for the given key as an integer, or the default if not found/invalid
func (q QueryMap) GetIntDefault(key string, defaultValue int) int {
	if value := q.values.Get(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetBool returns the first value for the given key as a boolean
// Accepts: "true", "1", "yes", "on" (case insensitive) as true
func (q QueryMap) GetBool(key string) bool {
	switch strings.ToLower(q.values.Get(key)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Require returns the first value for key or a BadRequest error when missing
func (q QueryMap) Require(key string) (string, error) {
	if !q.Has(key) {
		return "", BadRequest(NewError("missing query parameter", key))
	}
	return q.values.Get(key), nil
}

// GetAll returns all values for the given key
func (q QueryMap) GetAll(key string) []string {
	return q.values[key]
}

// Has returns true if the key exists in the query parameters
func (q QueryMap) Has(key string) bool {
	_, exists := q.values[key]
	return exists
}

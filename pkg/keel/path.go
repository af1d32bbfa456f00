package keel

import (
	"strings"
)

// PathPartType represents the type of path part
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	WildcardPart
)

// PathPart represents a single part of a route path
type PathPart struct {
	Type      PathPartType
	Value     string // For static parts: the literal text, for parameters: the parameter name
	ParamType string // For parameters: the declared type (e.g., "int", "uuid"), empty for untyped
}

// Path is a route path template such as "/users/{id:int}/files/{*}".
// Adapters translate it into their own syntax through Parts.
type Path string

// Raw returns the original path template
func (p Path) Raw() string {
	return string(p)
}

// Join appends sub to the path, collapsing duplicate slashes at the seam
func (p Path) Join(sub string) Path {
	if sub == "" {
		return p
	}
	return Path(strings.TrimSuffix(string(p), "/") + "/" + strings.TrimPrefix(sub, "/"))
}

// Parts parses the path template and returns the individual parts
func (p Path) Parts() []PathPart {
	path := string(p)
	var parts []PathPart

	i := 0
	for i < len(path) {
		if path[i] != '{' {
			start := i
			for i < len(path) && path[i] != '{' {
				i++
			}
			parts = append(parts, PathPart{Type: StaticPart, Value: path[start:i]})
			continue
		}

		j := strings.IndexByte(path[i:], '}')
		if j == -1 {
			// unterminated, keep the brace as literal text
			parts = append(parts, PathPart{Type: StaticPart, Value: path[i:]})
			break
		}
		j += i

		content := path[i+1 : j]
		if content == "*" {
			parts = append(parts, PathPart{Type: WildcardPart, Value: "*"})
		} else {
			name, paramType, _ := strings.Cut(content, ":")
			parts = append(parts, PathPart{Type: ParameterPart, Value: name, ParamType: paramType})
		}
		i = j + 1
	}

	return parts
}

// Params returns the names of the path parameters in order
func (p Path) Params() []string {
	var names []string
	for _, part := range p.Parts() {
		if part.Type == ParameterPart {
			names = append(names, part.Value)
		}
	}
	return names
}

// Format rebuilds the path in a framework syntax. param renders a named
// parameter and wildcard renders the catch-all segment.
func (p Path) Format(param func(name string) string, wildcard string) string {
	var b strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString(param(part.Value))
		case WildcardPart:
			b.WriteString(wildcard)
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// ColonPath renders the path with ":name" parameters, the syntax shared by echo,
// gin and fiber
func (p Path) ColonPath(wildcard string) string {
	return p.Format(func(name string) string { return ":" + name }, wildcard)
}

// OpenAPIPath renders the path with "{name}" parameters and no type hints
func (p Path) OpenAPIPath() string {
	return p.Format(func(name string) string { return "{" + name + "}" }, "{path}")
}

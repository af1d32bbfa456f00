// Package annotations parses keel:: directives found in handler doc comments.
//
//	// GetUser returns a single user.
//	//
//	// keel::summary Fetch a user
//	// keel::tag users "user admin"
//	// keel::deprecated
package annotations

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/toyz/keel/internal/errors"
)

// Prefix starts every directive line
const Prefix = "keel::"

// Directive names
const (
	Summary    = "summary"
	Deprecated = "deprecated"
	Tag        = "tag"
)

// Directive is a single parsed keel:: line
type Directive struct {
	Name string
	Args []string
	Loc  errors.SourceLocation
}

type directive struct {
	Pos  lexer.Position
	Name string   `parser:"Prefix @Word"`
	Args []string `parser:"@(String | Word)*"`
}

type arity struct {
	min, max int // max < 0 means unbounded
}

var directives = map[string]arity{
	Summary:    {min: 1, max: -1},
	Deprecated: {min: 0, max: 0},
	Tag:        {min: 1, max: -1},
}

// Parser parses directive lines
type Parser struct {
	parser *participle.Parser[directive]
}

// NewParser creates a directive parser
func NewParser() *Parser {
	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Prefix", Pattern: `keel::`},
		{Name: "String", Pattern: `"(\\"|[^"])*"`},
		{Name: "Word", Pattern: `[^\s"]+`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	return &Parser{
		parser: participle.MustBuild[directive](
			participle.Lexer(lex),
			participle.Elide("Whitespace"),
			participle.Unquote("String"),
		),
	}
}

// IsDirective reports whether a doc comment line is a keel:: directive
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Prefix)
}

// Parse parses one directive line. loc points at the line; the column of a
// syntax error is added to it.
func (p *Parser) Parse(line string, loc errors.SourceLocation) (*Directive, error) {
	d, err := p.parser.ParseString(loc.File, strings.TrimSpace(line))
	if err != nil {
		errLoc := loc
		if perr, ok := err.(participle.Error); ok {
			errLoc.Column = perr.Position().Column
		}
		return nil, errors.WrapParseError("keel directive", err).
			At(errLoc).
			WithSuggestion("directives look like: keel::summary <text>, keel::tag <name>..., keel::deprecated")
	}

	spec, ok := directives[d.Name]
	if !ok {
		return nil, errors.New(errors.ValidationErrorCode, fmt.Sprintf("unknown directive %q", Prefix+d.Name)).
			At(loc).
			WithSuggestion(fmt.Sprintf("known directives: %s", strings.Join(Names(), ", ")))
	}
	if len(d.Args) < spec.min || (spec.max >= 0 && len(d.Args) > spec.max) {
		return nil, errors.New(errors.ValidationErrorCode, fmt.Sprintf("%s%s takes %s", Prefix, d.Name, spec)).
			At(loc)
	}

	return &Directive{Name: d.Name, Args: d.Args, Loc: loc}, nil
}

// Names lists the known directive names
func Names() []string {
	return []string{Deprecated, Summary, Tag}
}

func (a arity) String() string {
	switch {
	case a.max == 0:
		return "no arguments"
	case a.max < 0:
		return fmt.Sprintf("at least %d argument(s)", a.min)
	default:
		return fmt.Sprintf("%d to %d arguments", a.min, a.max)
	}
}

package annotations

import (
	stderrors "errors"
	"strings"

	"github.com/toyz/keel/internal/errors"
)

// Doc is the documentation of one handler
type Doc struct {
	Description string
	Summary     string
	Deprecated  bool
	Tags        []string
}

// IsEmpty reports whether the doc carries nothing worth registering
func (d Doc) IsEmpty() bool {
	return d.Description == "" && d.Summary == "" && !d.Deprecated && len(d.Tags) == 0
}

// ParseDoc splits a doc comment (as returned by ast.CommentGroup.Text) into
// its description and directives. loc points at the first comment line.
// Invalid directives are reported together; the rest of the doc is still
// returned.
func (p *Parser) ParseDoc(text string, loc errors.SourceLocation) (Doc, error) {
	var (
		doc         Doc
		description []string
		errs        []error
	)

	for i, line := range strings.Split(text, "\n") {
		if !IsDirective(line) {
			description = append(description, line)
			continue
		}

		lineLoc := loc
		if loc.Line > 0 {
			lineLoc.Line = loc.Line + i
		}
		d, err := p.Parse(line, lineLoc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch d.Name {
		case Summary:
			doc.Summary = strings.Join(d.Args, " ")
		case Deprecated:
			doc.Deprecated = true
		case Tag:
			for _, tag := range d.Args {
				if !contains(doc.Tags, tag) {
					doc.Tags = append(doc.Tags, tag)
				}
			}
		}
	}

	doc.Description = strings.TrimSpace(strings.Join(description, "\n"))
	return doc, stderrors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

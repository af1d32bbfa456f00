// Package docgen turns handler doc comments into keel.RegisterDoc calls.
//
// For every package it writes zz_keel_docs.go, whose init registers the
// description and keel:: directives of each documented controller method
// taking a *keel.Context. The registrar picks them up by runtime function
// name when routes are set up.
package docgen

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"text/template"

	"github.com/toyz/keel/internal/annotations"
	"github.com/toyz/keel/internal/diagnostics"
	"github.com/toyz/keel/internal/errors"
	"golang.org/x/tools/imports"
)

// OutputFile is the name of the generated file in each package
const OutputFile = "zz_keel_docs.go"

// KeelImportPath is the import path of the keel runtime package
const KeelImportPath = "github.com/toyz/keel/pkg/keel"

// Summary reports what a Generate run did
type Summary struct {
	PackagesScanned int
	Handlers        int
	Written         []string
	Removed         []string
}

// Generator writes zz_keel_docs.go files
type Generator struct {
	parser   *annotations.Parser
	reporter *diagnostics.Reporter
	module   string // overrides the go.mod module path when set
}

// New creates a generator reporting through reporter
func New(reporter *diagnostics.Reporter) *Generator {
	return &Generator{
		parser:   annotations.NewParser(),
		reporter: reporter,
	}
}

// SetModule overrides the module path read from go.mod
func (g *Generator) SetModule(path string) {
	g.module = path
}

// Generate scans the directories matched by patterns and writes or removes
// the generated file of each package. Directive errors are collected across
// packages; packages with errors are left untouched.
func (g *Generator) Generate(patterns []string) (Summary, error) {
	var summary Summary
	dirs, err := expandPatterns(patterns)
	if err != nil {
		return summary, err
	}

	var errs []error
	for _, dir := range dirs {
		mod, err := g.moduleFor(dir)
		if err != nil {
			return summary, err
		}
		importPath, err := mod.importPath(dir)
		if err != nil {
			return summary, err
		}
		if importPath == KeelImportPath {
			continue
		}

		pkg, err := scanDir(dir, importPath)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if pkg == nil {
			continue
		}
		summary.PackagesScanned++
		g.reporter.Verbose("scanned %s (%d handlers)", importPath, len(pkg.Handlers))

		entries, err := g.collect(pkg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		summary.Handlers += len(entries)

		target := filepath.Join(dir, OutputFile)
		if len(entries) == 0 {
			removed, err := removeIfExists(target)
			if err != nil {
				errs = append(errs, err)
			} else if removed {
				summary.Removed = append(summary.Removed, target)
			}
			continue
		}

		src, err := Render(pkg.Name, entries)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.WriteFile(target, src, 0o644); err != nil {
			errs = append(errs, errors.WrapFileSystemError("write", target, err))
			continue
		}
		summary.Written = append(summary.Written, target)
		g.reporter.Item("%s (%d handlers)", target, len(entries))
	}
	return summary, stderrors.Join(errs...)
}

// Clean removes the generated files from the matched directories
func (g *Generator) Clean(patterns []string) ([]string, error) {
	dirs, err := expandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, dir := range dirs {
		target := filepath.Join(dir, OutputFile)
		ok, err := removeIfExists(target)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, target)
			g.reporter.Verbose("removed %s", target)
		}
	}
	return removed, nil
}

func (g *Generator) moduleFor(dir string) (*module, error) {
	mod, err := findModule(dir)
	if err != nil {
		return nil, err
	}
	if g.module != "" {
		mod.path = g.module
	}
	return mod, nil
}

// Entry is one RegisterDoc call of the generated file
type Entry struct {
	Key string
	Doc annotations.Doc
}

func (g *Generator) collect(pkg *scannedPackage) ([]Entry, error) {
	var (
		entries []Entry
		errs    []error
	)
	for _, h := range pkg.Handlers {
		doc, err := g.parser.ParseDoc(h.Text, h.Loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if doc.IsEmpty() {
			continue
		}
		entries = append(entries, Entry{Key: h.Key, Doc: doc})
	}
	if len(errs) > 0 {
		return nil, stderrors.Join(errs...)
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return entries, nil
}

var fileTemplate = template.Must(template.New("docs").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`// Code generated by keel docgen. DO NOT EDIT.

package {{.Package}}

import "github.com/toyz/keel/pkg/keel"

func init() {
{{- range .Entries}}
	keel.RegisterDoc({{quote .Key}}, keel.HandlerDoc{
{{- if .Doc.Description}}
		Description: {{quote .Doc.Description}},
{{- end}}
{{- if .Doc.Summary}}
		Summary: {{quote .Doc.Summary}},
{{- end}}
{{- if .Doc.Deprecated}}
		Deprecated: true,
{{- end}}
{{- if .Doc.Tags}}
		Tags: []string{ {{- range $i, $t := .Doc.Tags}}{{if $i}}, {{end}}{{quote $t}}{{end -}} },
{{- end}}
	})
{{- end}}
}
`))

// Render produces the formatted source of a generated file
func Render(pkgName string, entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	err := fileTemplate.Execute(&buf, struct {
		Package string
		Entries []Entry
	}{pkgName, entries})
	if err != nil {
		return nil, errors.WrapGenerateError(OutputFile, err)
	}

	src, err := imports.Process(OutputFile, buf.Bytes(), &imports.Options{Comments: true, TabIndent: true, TabWidth: 8, FormatOnly: true})
	if err != nil {
		return nil, errors.WrapGenerateError(OutputFile, err)
	}
	return src, nil
}

func removeIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.WrapFileSystemError("remove", path, err)
}

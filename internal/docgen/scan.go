package docgen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/toyz/keel/internal/errors"
)

// expandPatterns resolves directory arguments. A trailing /... walks the
// tree, skipping hidden, vendor, testdata and underscore directories.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pattern := range patterns {
		base, recursive := strings.CutSuffix(pattern, "/...")
		if pattern == "..." {
			base, recursive = ".", true
		}
		if base == "" {
			base = "."
		}
		abs, err := filepath.Abs(base)
		if err != nil {
			return nil, errors.WrapFileSystemError("resolve", base, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, errors.WrapFileSystemError("stat", abs, err)
		}
		if !info.IsDir() {
			return nil, errors.New(errors.ConfigurationErrorCode, abs+" is not a directory")
		}
		if !recursive {
			add(abs)
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if path != abs && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, errors.WrapFileSystemError("walk", abs, err)
		}
	}
	return dirs, nil
}

// handler is a documented controller method
type handler struct {
	Key  string // runtime function name
	Text string // doc comment text
	Loc  errors.SourceLocation
}

// scannedPackage is what docgen found in one directory
type scannedPackage struct {
	Name     string
	Handlers []handler
}

// scanDir parses the non-test Go files of dir and collects documented
// methods taking a *keel.Context. It returns nil when dir holds no Go package.
func scanDir(dir, importPath string) (*scannedPackage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapFileSystemError("read", dir, err)
	}

	fset := token.NewFileSet()
	var pkg *scannedPackage
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || name == OutputFile {
			continue
		}

		path := filepath.Join(dir, name)
		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, errors.WrapParseError(path, err)
		}
		if pkg == nil {
			pkg = &scannedPackage{Name: file.Name.Name}
		}

		keelName, ok := keelImportName(file)
		if !ok {
			continue
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Doc == nil || fn.Recv == nil || !fn.Name.IsExported() || !takesContext(fn, keelName) {
				continue
			}
			recv, ok := receiverName(fn.Recv.List[0].Type)
			if !ok {
				continue
			}
			pos := fset.Position(fn.Doc.Pos())
			pkg.Handlers = append(pkg.Handlers, handler{
				Key:  importPath + "." + recv + "." + fn.Name.Name,
				Text: fn.Doc.Text(),
				Loc:  errors.SourceLocation{File: path, Line: pos.Line},
			})
		}
	}
	return pkg, nil
}

// keelImportName returns the name under which file imports the keel package
func keelImportName(file *ast.File) (string, bool) {
	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil || path != KeelImportPath {
			continue
		}
		if spec.Name != nil {
			if spec.Name.Name == "_" || spec.Name.Name == "." {
				return "", false
			}
			return spec.Name.Name, true
		}
		return "keel", true
	}
	return "", false
}

// takesContext reports whether one of fn's parameters is *keel.Context
func takesContext(fn *ast.FuncDecl, keelName string) bool {
	for _, field := range fn.Type.Params.List {
		star, ok := field.Type.(*ast.StarExpr)
		if !ok {
			continue
		}
		sel, ok := star.X.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Context" {
			continue
		}
		if x, ok := sel.X.(*ast.Ident); ok && x.Name == keelName {
			return true
		}
	}
	return false
}

// receiverName renders a receiver the way the runtime names methods:
// T or (*T). Generic receivers are not supported.
func receiverName(expr ast.Expr) (string, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, true
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return "(*" + id.Name + ")", true
		}
	case *ast.ParenExpr:
		return receiverName(t.X)
	}
	return "", false
}

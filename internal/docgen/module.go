package docgen

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/toyz/keel/internal/errors"
	"golang.org/x/mod/modfile"
)

// module is the Go module enclosing the scanned directories
type module struct {
	path string // module path from go.mod
	dir  string // directory holding go.mod
}

// findModule searches for go.mod starting from dir and walking up
func findModule(dir string) (*module, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WrapFileSystemError("resolve", dir, err)
	}

	for {
		goModPath := filepath.Join(current, "go.mod")
		content, err := os.ReadFile(goModPath)
		if err == nil {
			path := modfile.ModulePath(content)
			if path == "" {
				return nil, errors.New(errors.ConfigurationErrorCode, "no module declaration found in go.mod").
					At(errors.SourceLocation{File: goModPath})
			}
			return &module{path: path, dir: current}, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.WrapFileSystemError("read", goModPath, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, errors.New(errors.ConfigurationErrorCode, "go.mod file not found").
				WithSuggestion("run keel docgen inside a Go module or pass -module")
		}
		current = parent
	}
}

// importPath returns the import path of the package in dir
func (m *module) importPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WrapFileSystemError("resolve", dir, err)
	}
	rel, err := filepath.Rel(m.dir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.New(errors.ConfigurationErrorCode, abs+" is outside module "+m.path)
	}
	if rel == "." {
		return m.path, nil
	}
	return m.path + "/" + filepath.ToSlash(rel), nil
}

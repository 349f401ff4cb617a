package resolver

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// IsKernelSource reports whether a filename follows the kernel naming
// convention: a non-test Go file whose stem ends in "Kernel" or "_kernel".
func IsKernelSource(name string) bool {
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	stem := strings.TrimSuffix(name, ".go")
	return strings.HasSuffix(strings.ToLower(stem), "kernel")
}

// scanDir finds the single kernel source file in dir (non-recursive) and
// returns the one type it declares.
func scanDir(dir string) (typeName, file string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("%w: failed to read kernel directory %s: %v", ErrKernelClassNotFound, dir, err)
	}

	candidates := sets.New[string]()
	for _, entry := range entries {
		if entry.IsDir() || !IsKernelSource(entry.Name()) {
			continue
		}
		candidates.Insert(entry.Name())
	}

	switch candidates.Len() {
	case 0:
		return "", "", fmt.Errorf("%w: %w in %s", ErrKernelClassNotFound, ErrNoKernelSource, dir)
	case 1:
	default:
		return "", "", fmt.Errorf("%w: ambiguous kernel sources in %s: %v", ErrKernelClassNotFound, dir, sets.List(candidates))
	}

	file = filepath.Join(dir, sets.List(candidates)[0])
	types, err := declaredTypes(file)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrKernelClassNotFound, err)
	}
	if len(types) != 1 {
		return "", "", fmt.Errorf("%w: no kernel found in directory %s: %s declares %d types %v",
			ErrKernelClassNotFound, dir, filepath.Base(file), len(types), types)
	}
	return types[0], file, nil
}

// declaredTypes returns the names of the top-level defined types in a Go
// source file. Aliases are skipped since they do not define a new type.
func declaredTypes(path string) ([]string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var names []string
	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok || ts.Assign.IsValid() {
				continue
			}
			names = append(names, ts.Name.Name)
		}
	}
	return names, nil
}

// ==============================================================================================
// FILE: module/module.go
// ==============================================================================================
// PACKAGE: module
// PURPOSE: Resolves dotted import paths to source files and merges them into a single, flat
//          Program in declaration order. A module is parsed and spliced in at most once; a
//          second "import a.b.c" for an already-loaded normalized path is dropped, which is also
//          how import cycles terminate (the cyclic import sees whatever the cycle's root module
//          had already contributed above the re-entrant import line).
// ==============================================================================================

package module

import (
	"os"
	"path/filepath"

	"reaxl/ast"
	"reaxl/diag"
	"reaxl/lexer"
	"reaxl/parser"
)

// Loader resolves and merges a reaxl program rooted at a single entry file.
type Loader struct {
	Root string // directory dotted import paths are resolved under
	Ext  string // file extension appended to a resolved import path, default ".rx"

	loaded map[string]bool
}

// New builds a Loader rooted at root. An empty ext defaults to ".rx".
func New(root, ext string) *Loader {
	if ext == "" {
		ext = ".rx"
	}
	return &Loader{Root: root, Ext: ext, loaded: make(map[string]bool)}
}

// LoadEntry parses path and recursively inlines its imports into one flat Program.
func (l *Loader) LoadEntry(path string) (*ast.Program, error) {
	return l.loadFile(path)
}

func (l *Loader) loadFile(path string) (*ast.Program, error) {
	norm := filepath.Clean(path)
	if l.loaded[norm] {
		return &ast.Program{}, nil
	}
	l.loaded[norm] = true

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &diag.Fatal{Kind: diag.KindLoad, Msg: "cannot read module " + path + ": " + err.Error()}
	}

	p := parser.New(lexer.New(string(src)))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &diag.Fatal{Kind: diag.KindParse, Msg: "while parsing " + path + ": " + errs[0]}
	}

	return l.expandImports(prog)
}

// expandImports walks prog's top-level statements, splicing each ImportStatement's resolved
// module in place, and leaving every other statement untouched.
func (l *Loader) expandImports(prog *ast.Program) (*ast.Program, error) {
	merged := &ast.Program{}
	for _, stmt := range prog.Statements {
		imp, ok := stmt.(*ast.ImportStatement)
		if !ok {
			merged.Statements = append(merged.Statements, stmt)
			continue
		}
		sub, err := l.loadImportPath(imp.Path)
		if err != nil {
			return nil, err
		}
		merged.Statements = append(merged.Statements, sub.Statements...)
	}
	return merged, nil
}

func (l *Loader) loadImportPath(path []string) (*ast.Program, error) {
	rel := filepath.Join(path...) + l.Ext
	full := filepath.Join(l.Root, rel)
	return l.loadFile(full)
}

package module

import (
	"os"
	"path/filepath"
	"testing"

	"reaxl/ast"
	"reaxl/diag"
)

func writeModule(t testing.TB, dir, rel, src string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadEntryWithoutImports(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "main.rx", "x = 1;")
	l := New(dir, ".rx")
	prog, err := l.LoadEntry(filepath.Join(dir, "main.rx"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
}

func TestLoadEntryResolvesDottedImport(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util/math.rx", "step = 10;")
	writeModule(t, dir, "main.rx", "import util.math; x = step;")
	l := New(dir, ".rx")
	prog, err := l.LoadEntry(filepath.Join(dir, "main.rx"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 merged statements, got %d: %s", len(prog.Statements), prog.String())
	}
	if _, ok := prog.Statements[0].(*ast.AssignStatement); !ok {
		t.Fatalf("expected first statement from imported module, got %T", prog.Statements[0])
	}
}

func TestLoadEntryMissingFileIsFatalLoad(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, ".rx")
	_, err := l.LoadEntry(filepath.Join(dir, "missing.rx"))
	if err == nil {
		t.Fatalf("expected an error for a missing entry file")
	}
	if f, ok := err.(*diag.Fatal); !ok || f.Kind != diag.KindLoad {
		t.Fatalf("expected a fatal load error, got %#v", err)
	}
}

func TestLoadEntryParseErrorIsFatalParse(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "main.rx", "x = ;")
	l := New(dir, ".rx")
	_, err := l.LoadEntry(filepath.Join(dir, "main.rx"))
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	if f, ok := err.(*diag.Fatal); !ok || f.Kind != diag.KindParse {
		t.Fatalf("expected a fatal parse error, got %#v", err)
	}
}

package vm_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"reaxl/compiler"
	"reaxl/diag"
	"reaxl/lexer"
	"reaxl/module"
	"reaxl/parser"
	"reaxl/sink"
	"reaxl/vm"
)

// runProgram lexes, parses, compiles, and runs src end to end, returning everything it printed
// plus the warning log accumulated along the way.
func runProgram(t testing.TB, src string) (string, *diag.Log) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	c := compiler.New("main")
	chunk := c.Compile(prog)
	if errs := c.Errors(); len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}

	var buf bytes.Buffer
	machine := vm.New(sink.New(&buf))
	if err := machine.Run(chunk); err != nil {
		t.Fatalf("run error: %v", err)
	}
	return buf.String(), machine.Log
}

// runModuleProgram loads entry from root through the module loader (so imports are expanded in
// declaration order) before compiling and running it.
func runModuleProgram(t testing.TB, root, entry string) (string, *diag.Log) {
	t.Helper()
	loader := module.New(root, ".rx")
	prog, err := loader.LoadEntry(filepath.Join(root, entry))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	c := compiler.New("main")
	chunk := c.Compile(prog)
	if errs := c.Errors(); len(errs) != 0 {
		t.Fatalf("compile errors: %v", errs)
	}

	var buf bytes.Buffer
	machine := vm.New(sink.New(&buf))
	if err := machine.Run(chunk); err != nil {
		t.Fatalf("run error: %v", err)
	}
	return buf.String(), machine.Log
}

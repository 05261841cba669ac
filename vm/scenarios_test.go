package vm_test

import "testing"

// The six end-to-end scenarios from the language's testable-properties section, lexed, parsed,
// compiled, and run through the full pipeline, each checked against its literal expected stdout.

func TestScenarioReactiveScalar(t *testing.T) {
	out, _ := runProgram(t, `
		x = 1
		y ::= x + 1
		println y
		x = 10
		println y
	`)
	if out != "2\n11\n" {
		t.Fatalf("got %q, want %q", out, "2\n11\n")
	}
}

func TestScenarioLoopWithCapture(t *testing.T) {
	out, _ := runProgram(t, `
		arr = [3]
		i = 0
		loop {
			j := i
			arr[j] ::= j * 10
			i = i + 1
			if i >= 3 {
				break
			}
		}
		print arr[0]
		print arr[1]
		print arr[2]
	`)
	if out != "01020" {
		t.Fatalf("got %q, want %q", out, "01020")
	}
}

func TestScenarioStructReactiveField(t *testing.T) {
	out, _ := runProgram(t, `
		struct C {
			x = 0;
			step := 1;
			next ::= x + step;
		}
		c = struct C
		println c.next
		c.x = 10
		println c.next
	`)
	if out != "1\n11\n" {
		t.Fatalf("got %q, want %q", out, "1\n11\n")
	}
}

func TestScenarioFunctionReturningStructAliased(t *testing.T) {
	out, _ := runProgram(t, `
		struct P {
			x = 0;
		}
		func mk() {
			s := struct P
			return s
		}
		a = mk()
		b = a
		a.x = 7
		println b.x
	`)
	if out != "7\n" {
		t.Fatalf("got %q, want %q", out, "7\n")
	}
}

func TestScenarioArrayLengthAsIntegerLoopGuard(t *testing.T) {
	out, _ := runProgram(t, `
		arr = [4]
		i = 0
		loop {
			if i >= arr {
				break
			}
			println i
			i = i + 1
		}
	`)
	if out != "0\n1\n2\n3\n" {
		t.Fatalf("got %q, want %q", out, "0\n1\n2\n3\n")
	}
}

func TestScenarioReactiveDependencyThroughIndexedChain(t *testing.T) {
	out, _ := runProgram(t, `
		base = 1
		arr = [5]
		arr[0] ::= base
		arr[1] ::= arr[0] + 1
		arr[2] ::= arr[1] + 1
		arr[3] ::= arr[2] + 1
		arr[4] ::= arr[3] + 1
		println arr[4]
		base = 10
		println arr[4]
	`)
	if out != "5\n14\n" {
		t.Fatalf("got %q, want %q", out, "5\n14\n")
	}
}

package ast

import (
	"strings"
	"testing"

	"reaxl/token"
)

// TestProgramStringAssemblesLoopWithCaptureScenario builds the loop-with-capture program from
// spec §8 scenario 2 by hand and checks the assembled Program.String() contains every statement
// in source order, matching the shape the parser is expected to produce.
func TestProgramStringAssemblesLoopWithCaptureScenario(t *testing.T) {
	prog := &Program{
		Statements: []Statement{
			&AssignStatement{Target: ident("arr"), Value: &ArrayAllocExpression{Size: &IntegerLiteral{Token: token.Token{Literal: "3"}, Value: 3}}},
			&AssignStatement{Target: ident("i"), Value: &IntegerLiteral{Token: token.Token{Literal: "0"}, Value: 0}},
			&LoopStatement{
				Body: &BlockStatement{
					Statements: []Statement{
						&BindStatement{Name: ident("j"), Value: ident("i")},
						&ReactiveAssignStatement{
							Target: &IndexExpression{Left: ident("arr"), Index: ident("j")},
							Value:  &InfixExpression{Left: ident("j"), Operator: "*", Right: &IntegerLiteral{Token: token.Token{Literal: "10"}, Value: 10}},
						},
						&AssignStatement{Target: ident("i"), Value: &InfixExpression{Left: ident("i"), Operator: "+", Right: &IntegerLiteral{Token: token.Token{Literal: "1"}, Value: 1}}},
						&IfStatement{
							Condition:   &InfixExpression{Left: ident("i"), Operator: ">=", Right: &IntegerLiteral{Token: token.Token{Literal: "3"}, Value: 3}},
							Consequence: &BlockStatement{Statements: []Statement{&BreakStatement{}}},
						},
					},
				},
			},
		},
	}
	out := prog.String()
	for _, want := range []string{"arr = [3]", "i = 0", "j := i", "arr[j] ::= (j * 10)", "i = (i + 1)", "break"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected program dump to contain %q, got:\n%s", want, out)
		}
	}
}

func TestImportStatementWithinProgram(t *testing.T) {
	prog := &Program{
		Statements: []Statement{
			&ImportStatement{Path: []string{"util", "math"}},
			&ExpressionStatement{Expression: &CallExpression{Function: ident("double"), Arguments: []Expression{ident("x")}}},
		},
	}
	out := prog.String()
	if !strings.Contains(out, "import util.math") {
		t.Fatalf("expected import line, got:\n%s", out)
	}
	if !strings.Contains(out, "double(x)") {
		t.Fatalf("expected call expression, got:\n%s", out)
	}
}

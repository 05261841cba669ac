// ==============================================================================================
// FILE: compiler/compiler.go
// ==============================================================================================
// PACKAGE: compiler
// PURPOSE: Lowers an ast.Program into a bytecode.Chunk. Every reactive right-hand side — a
//          "::=" assignment, a reactive struct field — is compiled as its own sub-Chunk rather
//          than evaluated here, since the compiler must never touch a heap.Value: only the VM,
//          at read time, decides when (and whether) that sub-Chunk ever runs.
// ==============================================================================================

package compiler

import (
	"fmt"

	"reaxl/ast"
	"reaxl/bytecode"
	"reaxl/diag"
)

// Compiler lowers a single ast.Program (already import-expanded by the module loader) into a
// top-level Chunk. breakJumps tracks whether a "break" is legal at the current nesting.
type Compiler struct {
	chunk      *bytecode.Chunk
	breakJumps [][]int // one slice of not-yet-patched jump indices per enclosing loop
	errors     []error
}

// New returns a Compiler ready to lower prog into a Chunk named name.
func New(name string) *Compiler {
	return &Compiler{chunk: bytecode.NewChunk(name)}
}

// Errors returns every fatal compile error collected while lowering the program.
func (c *Compiler) Errors() []error { return c.errors }

// Compile lowers prog's statements into c's top-level chunk and returns it.
func (c *Compiler) Compile(prog *ast.Program) *bytecode.Chunk {
	for _, s := range prog.Statements {
		c.compileStatement(c.chunk, s)
	}
	c.chunk.Emit(bytecode.OpHalt, 0, 0)
	return c.chunk
}

func (c *Compiler) errorf(format string, args ...interface{}) {
	c.errors = append(c.errors, &diag.Fatal{
		Kind: diag.KindParse,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// ------------------------------------------------------------------------------------------
// STATEMENTS
// ------------------------------------------------------------------------------------------

func (c *Compiler) compileStatement(ch *bytecode.Chunk, stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		c.compileAssign(ch, s.Target, s.Value)
	case *ast.BindStatement:
		c.compileExpression(ch, s.Value)
		ch.Emit(bytecode.OpBindLocal, ch.AddStr(s.Name.Value), 0)
	case *ast.ReactiveAssignStatement:
		c.compileReactiveAssign(ch, s.Target, s.Value)
	case *ast.BlockStatement:
		for _, inner := range s.Statements {
			c.compileStatement(ch, inner)
		}
	case *ast.IfStatement:
		c.compileIf(ch, s)
	case *ast.LoopStatement:
		c.compileLoop(ch, s)
	case *ast.BreakStatement:
		c.compileBreak(ch)
	case *ast.ReturnStatement:
		if s.ReturnValue != nil {
			c.compileExpression(ch, s.ReturnValue)
		} else {
			ch.Emit(bytecode.OpLoadInt, 0, 0) // a bare return yields Int(0)
		}
		ch.Emit(bytecode.OpReturn, 0, 0)
	case *ast.PrintStatement:
		c.compileExpression(ch, s.Value)
		if s.Newline {
			ch.Emit(bytecode.OpPrintln, 0, 0)
		} else {
			ch.Emit(bytecode.OpPrint, 0, 0)
		}
	case *ast.ImportStatement:
		// Already expanded in place by the module loader; nothing left to compile.
	case *ast.StructDefStatement:
		c.compileStructDef(ch, s)
	case *ast.FuncDefStatement:
		c.compileFuncDef(ch, s)
	case *ast.ExpressionStatement:
		c.compileExpression(ch, s.Expression)
		ch.Emit(bytecode.OpPop, 0, 0)
	default:
		c.errorf("compiler: unhandled statement type %T", stmt)
	}
}

// compileAssign lowers "target = value". A bare-identifier target writes a global; a field or
// index target pushes its container first, then the value, then emits the matching Put op.
func (c *Compiler) compileAssign(ch *bytecode.Chunk, target ast.Expression, value ast.Expression) {
	switch t := target.(type) {
	case *ast.Identifier:
		c.compileExpression(ch, value)
		ch.Emit(bytecode.OpAssignGlobal, ch.AddStr(t.Value), 0)
	case *ast.FieldExpression:
		c.compileExpression(ch, t.Object)
		c.compileExpression(ch, value)
		ch.Emit(bytecode.OpFieldPut, ch.AddStr(t.Field.Value), 0)
	case *ast.IndexExpression:
		c.compileExpression(ch, t.Left)
		c.compileExpression(ch, t.Index)
		c.compileExpression(ch, value)
		ch.Emit(bytecode.OpIndexPut, 0, 0)
	default:
		c.errorf("compiler: invalid assignment target %T", target)
	}
}

// compileReactiveAssign lowers "target ::= value": value is never emitted into ch at all — it
// is compiled into its own sub-Chunk, stored as a Thunk index, and installed with a Put op that
// takes the thunk as an immediate operand instead of a stack value.
func (c *Compiler) compileReactiveAssign(ch *bytecode.Chunk, target ast.Expression, value ast.Expression) {
	thunkIdx := c.compileThunk(ch, value)
	switch t := target.(type) {
	case *ast.Identifier:
		ch.Emit(bytecode.OpAssignGlobalReactive, ch.AddStr(t.Value), thunkIdx)
	case *ast.FieldExpression:
		c.compileExpression(ch, t.Object)
		ch.Emit(bytecode.OpFieldPutReactive, ch.AddStr(t.Field.Value), thunkIdx)
	case *ast.IndexExpression:
		c.compileExpression(ch, t.Left)
		c.compileExpression(ch, t.Index)
		ch.Emit(bytecode.OpIndexPutReactive, 0, thunkIdx)
	default:
		c.errorf("compiler: invalid reactive assignment target %T", target)
	}
}

// compileThunk compiles expr into a brand-new sub-Chunk (added to ch.Thunks) and returns its
// index. The sub-chunk ends in OpReturn so the VM's thunk-evaluation path can reuse the same
// call-style dispatch it already has for function bodies.
func (c *Compiler) compileThunk(ch *bytecode.Chunk, expr ast.Expression) int32 {
	sub := bytecode.NewChunk("thunk")
	sc := &Compiler{chunk: sub}
	sc.compileExpression(sub, expr)
	sub.Emit(bytecode.OpReturn, 0, 0)
	c.errors = append(c.errors, sc.errors...)
	return ch.AddThunk(sub)
}

func (c *Compiler) compileIf(ch *bytecode.Chunk, s *ast.IfStatement) {
	c.compileExpression(ch, s.Condition)
	jumpElse := ch.Emit(bytecode.OpJumpIfFalse, -1, 0)
	c.compileStatement(ch, s.Consequence)
	if s.Alternative != nil {
		jumpEnd := ch.Emit(bytecode.OpJump, -1, 0)
		ch.PatchA(jumpElse, ch.Here())
		c.compileStatement(ch, s.Alternative)
		ch.PatchA(jumpEnd, ch.Here())
	} else {
		ch.PatchA(jumpElse, ch.Here())
	}
}

// compileLoop lowers an unconditional "loop { ... }". The frame-reset triple brackets the body:
// OpSnapshotFrame once before entry, OpResetFrame at the top of every iteration (discarding any
// ":=" bindings the previous pass added), and OpPopFrameMark once the loop is left, whether by
// falling through via "break" or (for a bodyless loop) never — reaxl loops only exit via break.
func (c *Compiler) compileLoop(ch *bytecode.Chunk, s *ast.LoopStatement) {
	ch.Emit(bytecode.OpSnapshotFrame, 0, 0)
	top := ch.Here()
	ch.Emit(bytecode.OpResetFrame, 0, 0)

	c.breakJumps = append(c.breakJumps, nil)
	c.compileStatement(ch, s.Body)
	ch.Emit(bytecode.OpJump, top, 0)

	breaks := c.breakJumps[len(c.breakJumps)-1]
	c.breakJumps = c.breakJumps[:len(c.breakJumps)-1]

	end := ch.Here()
	for _, idx := range breaks {
		ch.PatchA(idx, end)
	}
	ch.Emit(bytecode.OpPopFrameMark, 0, 0)
}

func (c *Compiler) compileBreak(ch *bytecode.Chunk) {
	if len(c.breakJumps) == 0 {
		c.errorf("compiler: break outside of loop")
		return
	}
	idx := ch.Emit(bytecode.OpJump, -1, 0)
	top := len(c.breakJumps) - 1
	c.breakJumps[top] = append(c.breakJumps[top], idx)
}

// compileStructDef compiles a "struct Name { ... }" definition: every field's initializer,
// reactive or not, becomes its own sub-chunk so the VM can choose eager vs. lazy evaluation per
// field kind at instantiation time, in declaration order.
func (c *Compiler) compileStructDef(ch *bytecode.Chunk, s *ast.StructDefStatement) {
	tmpl := &bytecode.StructTemplate{Name: s.Name.Value}
	for _, f := range s.Fields {
		tf := bytecode.TemplateField{Name: f.Name.Value, Kind: bytecode.FieldKind(f.Kind)}
		if f.Value != nil {
			sub := bytecode.NewChunk(s.Name.Value + "." + f.Name.Value)
			sc := &Compiler{chunk: sub}
			sc.compileExpression(sub, f.Value)
			sub.Emit(bytecode.OpReturn, 0, 0)
			c.errors = append(c.errors, sc.errors...)
			tf.Init = sub
		}
		tmpl.Fields = append(tmpl.Fields, tf)
	}
	idx := ch.AddTemplate(tmpl)
	ch.Emit(bytecode.OpDefineStruct, idx, 0)
}

func (c *Compiler) compileFuncDef(ch *bytecode.Chunk, s *ast.FuncDefStatement) {
	body := bytecode.NewChunk(s.Name.Value)
	sc := &Compiler{chunk: body}
	for _, stmt := range s.Body.Statements {
		sc.compileStatement(body, stmt)
	}
	body.Emit(bytecode.OpLoadInt, 0, 0)
	body.Emit(bytecode.OpReturn, 0, 0)
	c.errors = append(c.errors, sc.errors...)

	params := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = p.Value
	}
	proto := &bytecode.FunctionProto{Name: s.Name.Value, Params: params, Body: body}
	idx := ch.AddFunc(proto)
	ch.Emit(bytecode.OpDefineFunction, idx, 0)
	ch.Emit(bytecode.OpAssignGlobal, ch.AddStr(s.Name.Value), 0)
}

// ------------------------------------------------------------------------------------------
// EXPRESSIONS
// ------------------------------------------------------------------------------------------

func (c *Compiler) compileExpression(ch *bytecode.Chunk, expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		ch.Emit(bytecode.OpLoadInt, e.Value, 0)
	case *ast.CharLiteral:
		ch.Emit(bytecode.OpLoadChar, e.Value, 0)
	case *ast.StringLiteral:
		ch.Emit(bytecode.OpLoadStr, ch.AddStr(e.Value), 0)
	case *ast.Identifier:
		ch.Emit(bytecode.OpLoadIdent, ch.AddStr(e.Value), 0)
	case *ast.PrefixExpression:
		c.compileExpression(ch, e.Right)
		switch e.Operator {
		case "-":
			ch.Emit(bytecode.OpNeg, 0, 0)
		case "!":
			ch.Emit(bytecode.OpNot, 0, 0)
		default:
			c.errorf("compiler: unknown prefix operator %q", e.Operator)
		}
	case *ast.InfixExpression:
		c.compileInfix(ch, e)
	case *ast.TernaryExpression:
		c.compileExpression(ch, e.Condition)
		jumpElse := ch.Emit(bytecode.OpJumpIfFalse, -1, 0)
		c.compileExpression(ch, e.Then)
		jumpEnd := ch.Emit(bytecode.OpJump, -1, 0)
		ch.PatchA(jumpElse, ch.Here())
		c.compileExpression(ch, e.Else)
		ch.PatchA(jumpEnd, ch.Here())
	case *ast.CallExpression:
		for _, a := range e.Arguments {
			c.compileExpression(ch, a)
		}
		c.compileExpression(ch, e.Function)
		ch.Emit(bytecode.OpCall, int32(len(e.Arguments)), 0)
	case *ast.IndexExpression:
		c.compileExpression(ch, e.Left)
		c.compileExpression(ch, e.Index)
		ch.Emit(bytecode.OpIndexGet, 0, 0)
	case *ast.FieldExpression:
		c.compileExpression(ch, e.Object)
		ch.Emit(bytecode.OpFieldGet, ch.AddStr(e.Field.Value), 0)
	case *ast.ArrayAllocExpression:
		c.compileExpression(ch, e.Size)
		ch.Emit(bytecode.OpNewArray, 0, 0)
	case *ast.StructAllocExpression:
		ch.Emit(bytecode.OpAllocStruct, ch.AddStr(e.Name.Value), 0)
	default:
		c.errorf("compiler: unhandled expression type %T", expr)
	}
}

// compileInfix lowers "&&"/"||" with short-circuit jumps and every other binary operator as a
// plain evaluate-both-sides-then-combine op.
func (c *Compiler) compileInfix(ch *bytecode.Chunk, e *ast.InfixExpression) {
	switch e.Operator {
	case "&&":
		c.compileExpression(ch, e.Left)
		ch.Emit(bytecode.OpDup, 0, 0)
		shortCircuit := ch.Emit(bytecode.OpJumpIfFalse, -1, 0)
		ch.Emit(bytecode.OpPop, 0, 0)
		c.compileExpression(ch, e.Right)
		ch.PatchA(shortCircuit, ch.Here())
		return
	case "||":
		c.compileExpression(ch, e.Left)
		ch.Emit(bytecode.OpDup, 0, 0)
		shortCircuit := ch.Emit(bytecode.OpJumpIfTrue, -1, 0)
		ch.Emit(bytecode.OpPop, 0, 0)
		c.compileExpression(ch, e.Right)
		ch.PatchA(shortCircuit, ch.Here())
		return
	}

	c.compileExpression(ch, e.Left)
	c.compileExpression(ch, e.Right)
	switch e.Operator {
	case "+":
		ch.Emit(bytecode.OpAdd, 0, 0)
	case "-":
		ch.Emit(bytecode.OpSub, 0, 0)
	case "*":
		ch.Emit(bytecode.OpMul, 0, 0)
	case "/":
		ch.Emit(bytecode.OpDiv, 0, 0)
	case "%":
		ch.Emit(bytecode.OpMod, 0, 0)
	case "==":
		ch.Emit(bytecode.OpEq, 0, 0)
	case "!=":
		ch.Emit(bytecode.OpNotEq, 0, 0)
	case ">":
		ch.Emit(bytecode.OpGt, 0, 0)
	case "<":
		ch.Emit(bytecode.OpLt, 0, 0)
	case ">=":
		ch.Emit(bytecode.OpGtEq, 0, 0)
	case "<=":
		ch.Emit(bytecode.OpLtEq, 0, 0)
	default:
		c.errorf("compiler: unknown infix operator %q", e.Operator)
	}
}

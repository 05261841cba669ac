// ==============================================================================================
// FILE: bytecode/bytecode.go
// ==============================================================================================
// PACKAGE: bytecode
// PURPOSE: The linear instruction format the compiler emits and the VM executes. A Chunk never
//          embeds a heap.Value directly — every field/array/reactive initializer, however small,
//          compiles down to its own Chunk, which keeps this package free of any dependency on
//          heap (heap depends on bytecode for Thunk.Chunk, not the other way around).
// ==============================================================================================

package bytecode

import (
	"fmt"
	"io"
)

// Op is one opcode in the instruction stream.
type Op uint8

const (
	OpLoadInt Op = iota
	OpLoadChar
	OpLoadStr

	OpLoadIdent // A = name index into Strs

	OpAssignGlobal         // A = name index
	OpAssignGlobalReactive // A = name index, B = thunk index
	OpBindLocal            // A = name index

	OpFieldGet         // A = field-name index
	OpFieldPut         // A = field-name index
	OpFieldPutReactive // A = field-name index, B = thunk index

	OpIndexGet
	OpIndexPut
	OpIndexPutReactive // B = thunk index

	OpNewArray
	OpAllocStruct // A = struct-name index

	OpDefineFunction // A = FunctionProto index
	OpDefineStruct   // A = StructTemplate index

	OpCall   // A = argument count
	OpReturn

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	OpEq
	OpNotEq
	OpGt
	OpLt
	OpGtEq
	OpLtEq

	OpNeg
	OpNot

	OpJump        // A = target instruction index
	OpJumpIfFalse // A = target instruction index
	OpJumpIfTrue  // A = target instruction index

	OpPop
	OpDup

	OpPrint
	OpPrintln

	// Loop-iteration frame discipline: OpSnapshotFrame records the frame active just before a
	// loop begins; OpResetFrame (re-run at the top of every iteration) discards whatever ":="
	// bindings the previous iteration added, re-rooting at the snapshot; OpPopFrameMark retires
	// the snapshot once the loop is left (by falling through or by "break").
	OpSnapshotFrame
	OpResetFrame
	OpPopFrameMark

	OpHalt
)

var opNames = map[Op]string{
	OpLoadInt: "load-int", OpLoadChar: "load-char", OpLoadStr: "load-str",
	OpLoadIdent: "load-ident",
	OpAssignGlobal: "assign-global", OpAssignGlobalReactive: "assign-global-reactive",
	OpBindLocal: "bind-local",
	OpFieldGet:  "field-get", OpFieldPut: "field-put", OpFieldPutReactive: "field-put-reactive",
	OpIndexGet: "index-get", OpIndexPut: "index-put", OpIndexPutReactive: "index-put-reactive",
	OpNewArray: "new-array", OpAllocStruct: "alloc-struct",
	OpDefineFunction: "define-function", OpDefineStruct: "define-struct",
	OpCall: "call", OpReturn: "return",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpEq: "eq", OpNotEq: "neq", OpGt: "gt", OpLt: "lt", OpGtEq: "gte", OpLtEq: "lte",
	OpNeg: "neg", OpNot: "not",
	OpJump: "jump", OpJumpIfFalse: "jump-if-false", OpJumpIfTrue: "jump-if-true",
	OpPop: "pop", OpDup: "dup",
	OpPrint: "print", OpPrintln: "println",
	OpSnapshotFrame: "snapshot-frame", OpResetFrame: "reset-frame", OpPopFrameMark: "pop-frame-mark",
	OpHalt: "halt",
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", op)
}

// Instr is a single instruction: an opcode plus up to two int32 operands. Which operands are
// meaningful depends on Op; see the constant comments above.
type Instr struct {
	Op Op
	A  int32
	B  int32
}

// FieldKind mirrors ast.FieldKind without importing ast, so that bytecode stays a leaf package.
type FieldKind int

const (
	FieldMutable FieldKind = iota
	FieldBind
	FieldReactive
)

// TemplateField is one entry of a compiled struct template.
type TemplateField struct {
	Name string
	Kind FieldKind
	Init *Chunk // nil for a bare field, defaulting to Int(0)
}

// StructTemplate is the compiled form of a "struct Name { ... }" definition.
type StructTemplate struct {
	Name   string
	Fields []TemplateField
}

// FunctionProto is the compiled form of a "func Name(params) { ... }" definition.
type FunctionProto struct {
	Name   string
	Params []string
	Body   *Chunk
}

// Chunk is one self-contained unit of compiled code: a top-level program, a function body, or a
// reactive thunk's expression.
type Chunk struct {
	Name      string
	Instrs    []Instr
	Strs      []string
	Funcs     []*FunctionProto
	Templates []*StructTemplate
	Thunks    []*Chunk

	strIndex map[string]int32
}

// NewChunk creates an empty, named Chunk ready for emission.
func NewChunk(name string) *Chunk {
	return &Chunk{Name: name, strIndex: make(map[string]int32)}
}

// Emit appends an instruction and returns its index, for later jump patching.
func (c *Chunk) Emit(op Op, a, b int32) int {
	c.Instrs = append(c.Instrs, Instr{Op: op, A: a, B: b})
	return len(c.Instrs) - 1
}

// PatchA rewrites the A operand of the instruction at idx, used to back-fill forward jumps once
// their target address is known.
func (c *Chunk) PatchA(idx int, a int32) {
	c.Instrs[idx].A = a
}

// Here returns the index the next Emit call will land on — the natural jump target for "here".
func (c *Chunk) Here() int32 { return int32(len(c.Instrs)) }

// AddStr interns s into the string pool, returning its (possibly pre-existing) index.
func (c *Chunk) AddStr(s string) int32 {
	if c.strIndex == nil {
		c.strIndex = make(map[string]int32)
	}
	if idx, ok := c.strIndex[s]; ok {
		return idx
	}
	idx := int32(len(c.Strs))
	c.Strs = append(c.Strs, s)
	c.strIndex[s] = idx
	return idx
}

// AddFunc appends a compiled function prototype and returns its index.
func (c *Chunk) AddFunc(fn *FunctionProto) int32 {
	c.Funcs = append(c.Funcs, fn)
	return int32(len(c.Funcs) - 1)
}

// AddTemplate appends a compiled struct template and returns its index.
func (c *Chunk) AddTemplate(t *StructTemplate) int32 {
	c.Templates = append(c.Templates, t)
	return int32(len(c.Templates) - 1)
}

// AddThunk appends a reactive expression's compiled sub-chunk and returns its index.
func (c *Chunk) AddThunk(sub *Chunk) int32 {
	c.Thunks = append(c.Thunks, sub)
	return int32(len(c.Thunks) - 1)
}

// Disassemble renders the chunk's instruction stream as "<pc> <mnemonic> <operands>" lines, in
// the style of db47h-ngaro's asm.Disassemble, and recurses into nested function/thunk chunks.
func (c *Chunk) Disassemble(w io.Writer) {
	fmt.Fprintf(w, "chunk %s (%d instrs)\n", c.Name, len(c.Instrs))
	for pc, in := range c.Instrs {
		fmt.Fprintf(w, "%6d  %-24s", pc, in.Op.String())
		switch in.Op {
		case OpLoadInt, OpLoadChar:
			fmt.Fprintf(w, "%d", in.A)
		case OpLoadStr, OpLoadIdent, OpAssignGlobal, OpBindLocal, OpFieldGet, OpFieldPut,
			OpAllocStruct:
			fmt.Fprintf(w, "%q", c.strAt(in.A))
		case OpAssignGlobalReactive, OpFieldPutReactive:
			fmt.Fprintf(w, "%q thunk#%d", c.strAt(in.A), in.B)
		case OpIndexPutReactive:
			fmt.Fprintf(w, "thunk#%d", in.B)
		case OpDefineFunction:
			if int(in.A) < len(c.Funcs) {
				fmt.Fprintf(w, "%q", c.Funcs[in.A].Name)
			}
		case OpDefineStruct:
			if int(in.A) < len(c.Templates) {
				fmt.Fprintf(w, "%q", c.Templates[in.A].Name)
			}
		case OpCall:
			fmt.Fprintf(w, "argc=%d", in.A)
		case OpJump, OpJumpIfFalse, OpJumpIfTrue:
			fmt.Fprintf(w, "-> %d", in.A)
		}
		fmt.Fprintln(w)
	}
	for _, fn := range c.Funcs {
		fn.Body.Disassemble(w)
	}
	for _, th := range c.Thunks {
		th.Disassemble(w)
	}
}

func (c *Chunk) strAt(idx int32) string {
	if int(idx) < 0 || int(idx) >= len(c.Strs) {
		return "?"
	}
	return c.Strs[idx]
}

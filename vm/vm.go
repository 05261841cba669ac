// ==============================================================================================
// FILE: vm/vm.go
// ==============================================================================================
// PACKAGE: vm
// PURPOSE: The stack interpreter. Owns the single operand stack, the global environment, the
//          struct-template and function registries, and the reactive re-entry set used for
//          cycle detection on every Location read. Function calls and reactive-thunk evaluation
//          each recurse into execChunk with a fresh Go call frame; loop iteration never does,
//          since a loop body is compiled inline into its enclosing Chunk.
// ==============================================================================================

package vm

import (
	"github.com/pkg/errors"

	"reaxl/bytecode"
	"reaxl/diag"
	"reaxl/heap"
	"reaxl/sink"
)

// maxCallDepth bounds Go-level recursion from nested function calls and reactive-thunk reads.
// Exceeding it is a non-reactive stack overflow: fatal, per spec.md §7.
const maxCallDepth = 2000

// VM executes a compiled Chunk against a heap and reports warnings to a Log.
type VM struct {
	Heap *heap.Heap
	Log  *diag.Log
	Sink *sink.Sink

	globals   map[string]heap.Location
	templates map[string]*bytecode.StructTemplate

	stack     []heap.Value
	resolving map[*heap.Thunk]bool
	callDepth int
}

// New builds a VM ready to Run compiled chunks, writing print/println output to out.
func New(out *sink.Sink) *VM {
	return &VM{
		Heap:      heap.New(),
		Log:       diag.NewLog(),
		Sink:      out,
		globals:   make(map[string]heap.Location),
		templates: make(map[string]*bytecode.StructTemplate),
		resolving: make(map[*heap.Thunk]bool),
	}
}

// Run executes chunk as the entry module's top level. Between top-level instructions where the
// operand stack is empty — which is exactly the boundary between statements, since every
// statement's net stack effect in this language is zero — a collection pass runs, per the
// mark-and-sweep design adopted for this repository.
func (vm *VM) Run(chunk *bytecode.Chunk) error {
	pc := 0
	var frame *heap.BindFrame
	var frameMarks []*heap.BindFrame

	for pc < len(chunk.Instrs) {
		in := chunk.Instrs[pc]
		if in.Op == bytecode.OpHalt {
			return nil
		}
		next, newFrame, err := vm.step(chunk, in, frame, &frameMarks)
		if err != nil {
			return err
		}
		frame = newFrame
		if next < 0 {
			pc++
		} else {
			pc = next
		}
		if len(vm.stack) == 0 {
			vm.Heap.Collect(vm.roots(), vm.liveFrames(frame, frameMarks))
		}
	}
	return nil
}

// execChunk runs chunk to completion (OpReturn or falling off the end) with frame as the active
// immutable-binding scope, used for function bodies and reactive-thunk expressions. It shares
// the VM's single operand stack but never the caller's frameMarks, matching the rule that loop
// frame-resets are local to the Chunk they are compiled into.
func (vm *VM) execChunk(chunk *bytecode.Chunk, frame *heap.BindFrame) (heap.Value, error) {
	vm.callDepth++
	defer func() { vm.callDepth-- }()
	if vm.callDepth > maxCallDepth {
		return heap.Value{}, &diag.Fatal{Kind: diag.KindStackOverflow, Msg: "call depth exceeded"}
	}

	var frameMarks []*heap.BindFrame
	pc := 0
	for pc < len(chunk.Instrs) {
		in := chunk.Instrs[pc]
		if in.Op == bytecode.OpReturn {
			return vm.pop(), nil
		}
		if in.Op == bytecode.OpHalt {
			return heap.Unit(), nil
		}
		next, newFrame, err := vm.step(chunk, in, frame, &frameMarks)
		if err != nil {
			return heap.Value{}, err
		}
		frame = newFrame
		if next < 0 {
			pc++
		} else {
			pc = next
		}
	}
	return heap.Unit(), nil
}

// step executes a single instruction, returning the frame that should be active afterward and
// either a jump target (>= 0) or -1 to mean "fall through to pc+1".
func (vm *VM) step(chunk *bytecode.Chunk, in bytecode.Instr, frame *heap.BindFrame, frameMarks *[]*heap.BindFrame) (int, *heap.BindFrame, error) {
	switch in.Op {
	case bytecode.OpLoadInt:
		vm.push(heap.Int(in.A))
	case bytecode.OpLoadChar:
		vm.push(heap.Char(in.A))
	case bytecode.OpLoadStr:
		vm.push(vm.Heap.NewString(chunk.Strs[in.A]))
	case bytecode.OpLoadIdent:
		v, err := vm.loadIdent(chunk.Strs[in.A], frame)
		if err != nil {
			return 0, frame, err
		}
		vm.push(v)

	case bytecode.OpAssignGlobal:
		v := vm.pop()
		name := chunk.Strs[in.A]
		if vm.shadowedByBind(name, frame) {
			vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "cannot reassign immutable binding %q", name)
		} else {
			vm.globals[name] = heap.Concrete(v)
		}
	case bytecode.OpAssignGlobalReactive:
		name := chunk.Strs[in.A]
		th := &heap.Thunk{Chunk: chunk.Thunks[in.B], Frame: frame}
		if vm.shadowedByBind(name, frame) {
			vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "cannot reassign immutable binding %q", name)
		} else {
			vm.globals[name] = heap.ReactiveLocation(th)
		}
	case bytecode.OpBindLocal:
		v := vm.pop()
		frame = frame.Push(chunk.Strs[in.A], v)

	case bytecode.OpFieldGet:
		obj := vm.pop()
		v, err := vm.fieldGet(obj, chunk.Strs[in.A])
		if err != nil {
			return 0, frame, err
		}
		vm.push(v)
	case bytecode.OpFieldPut:
		v := vm.pop()
		obj := vm.pop()
		vm.fieldPut(obj, chunk.Strs[in.A], heap.Concrete(v))
	case bytecode.OpFieldPutReactive:
		obj := vm.pop()
		th := &heap.Thunk{Chunk: chunk.Thunks[in.B], Frame: frame}
		vm.fieldPut(obj, chunk.Strs[in.A], heap.ReactiveLocation(th))

	case bytecode.OpIndexGet:
		idx := vm.pop()
		obj := vm.pop()
		v, err := vm.indexGet(obj, idx)
		if err != nil {
			return 0, frame, err
		}
		vm.push(v)
	case bytecode.OpIndexPut:
		v := vm.pop()
		idx := vm.pop()
		obj := vm.pop()
		vm.indexPut(obj, idx, heap.Concrete(v))
	case bytecode.OpIndexPutReactive:
		idx := vm.pop()
		obj := vm.pop()
		th := &heap.Thunk{Chunk: chunk.Thunks[in.B], Frame: frame}
		vm.indexPut(obj, idx, heap.ReactiveLocation(th))

	case bytecode.OpNewArray:
		sizeV := vm.pop()
		n, ok := vm.Heap.ToInt(sizeV)
		if !ok {
			vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "array size must coerce to an integer")
			n = 0
		}
		vm.push(vm.Heap.NewArray(n))
	case bytecode.OpAllocStruct:
		vm.push(vm.instantiateStruct(chunk.Strs[in.A]))

	case bytecode.OpDefineFunction:
		proto := chunk.Funcs[in.A]
		vm.push(vm.Heap.NewFunc(proto))
	case bytecode.OpDefineStruct:
		tmpl := chunk.Templates[in.A]
		vm.templates[tmpl.Name] = tmpl

	case bytecode.OpCall:
		v, err := vm.call(int(in.A))
		if err != nil {
			return 0, frame, err
		}
		vm.push(v)
	case bytecode.OpReturn:
		// Handled by the caller's dispatch loop (execChunk returns immediately); Run never
		// expects to see one at the top level, but falling through here is harmless.

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		vm.binaryArith(in.Op)
	case bytecode.OpEq, bytecode.OpNotEq, bytecode.OpGt, bytecode.OpLt, bytecode.OpGtEq, bytecode.OpLtEq:
		vm.compare(in.Op)
	case bytecode.OpNeg:
		v := vm.pop()
		n, _ := vm.Heap.ToInt(v)
		if v.Kind == heap.KChar {
			vm.push(heap.Char(-n))
		} else {
			vm.push(heap.Int(-n))
		}
	case bytecode.OpNot:
		v := vm.pop()
		if vm.Heap.Truthy(v) {
			vm.push(heap.Int(0))
		} else {
			vm.push(heap.Int(1))
		}

	case bytecode.OpJump:
		return int(in.A), frame, nil
	case bytecode.OpJumpIfFalse:
		v := vm.pop()
		if !vm.Heap.Truthy(v) {
			return int(in.A), frame, nil
		}
	case bytecode.OpJumpIfTrue:
		v := vm.pop()
		if vm.Heap.Truthy(v) {
			return int(in.A), frame, nil
		}

	case bytecode.OpPop:
		vm.pop()
	case bytecode.OpDup:
		vm.push(vm.peek())

	case bytecode.OpPrint:
		v := vm.pop()
		vm.Sink.Print(vm.Heap.Render(v))
	case bytecode.OpPrintln:
		v := vm.pop()
		vm.Sink.Println(vm.Heap.Render(v))

	case bytecode.OpSnapshotFrame:
		*frameMarks = append(*frameMarks, frame)
	case bytecode.OpResetFrame:
		frame = (*frameMarks)[len(*frameMarks)-1]
	case bytecode.OpPopFrameMark:
		*frameMarks = (*frameMarks)[:len(*frameMarks)-1]

	default:
		return 0, frame, errors.Errorf("vm: unhandled opcode %v", in.Op)
	}
	return -1, frame, nil
}

func (vm *VM) push(v heap.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() heap.Value {
	if len(vm.stack) == 0 {
		return heap.Unit()
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek() heap.Value {
	if len(vm.stack) == 0 {
		return heap.Unit()
	}
	return vm.stack[len(vm.stack)-1]
}

// loadIdent resolves a bare identifier: immutable lexical bindings shadow the global
// environment. An unbound name falls back to Int(0), the language's universal "nothing" value,
// rather than raising a fault — this mirrors the spec's no-boolean/zero-as-nothing convention.
func (vm *VM) loadIdent(name string, frame *heap.BindFrame) (heap.Value, error) {
	if v, ok := frame.Lookup(name); ok {
		return v, nil
	}
	if loc, ok := vm.globals[name]; ok {
		return vm.readLocation(loc)
	}
	return heap.Int(0), nil
}

// shadowedByBind reports whether name is currently bound as an immutable ":=" in frame's chain —
// in which case an "=" write to it is a recoverable type-mismatch fault rather than a global
// write, per the spec's reassignment rule.
func (vm *VM) shadowedByBind(name string, frame *heap.BindFrame) bool {
	_, ok := frame.Lookup(name)
	return ok
}

// readLocation resolves loc to a concrete Value, evaluating its thunk (with cycle detection) if
// it is reactive.
func (vm *VM) readLocation(loc heap.Location) (heap.Value, error) {
	if loc.Reactive == nil {
		return loc.Val, nil
	}
	th := loc.Reactive
	if vm.resolving[th] {
		vm.Log.Warnf(diag.KindCycle, diag.Position{}, "reactive cycle detected")
		return heap.Int(0), nil
	}
	vm.resolving[th] = true
	defer delete(vm.resolving, th)
	return vm.execChunk(th.Chunk, th.Frame)
}

// roots returns every Value the collector must treat as reachable: the operand stack plus every
// global binding's current Value. A global's Value is Location.Val when the binding is concrete,
// or — for a reactive binding — whatever the thunk last produced is not tracked, so the thunk's
// captured Frame must be marked instead (see liveFrames) to keep what the thunk body can reach.
func (vm *VM) roots() []heap.Value {
	roots := append([]heap.Value(nil), vm.stack...)
	for _, loc := range vm.globals {
		if loc.Reactive == nil {
			roots = append(roots, loc.Val)
		}
	}
	return roots
}

func (vm *VM) liveFrames(frame *heap.BindFrame, marks []*heap.BindFrame) []*heap.BindFrame {
	frames := append([]*heap.BindFrame{frame}, marks...)
	for _, loc := range vm.globals {
		if loc.Reactive != nil {
			frames = append(frames, loc.Reactive.Frame)
		}
	}
	return frames
}

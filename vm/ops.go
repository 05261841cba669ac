// ==============================================================================================
// FILE: vm/ops.go
// ==============================================================================================
// PACKAGE: vm
// PURPOSE: Value-level operations the dispatch loop in vm.go delegates to: struct field access,
//          array indexing, struct instantiation from a template, calls, and arithmetic/compare.
//          Kept separate from the opcode switch itself so that switch stays a thin trampoline.
// ==============================================================================================

package vm

import (
	"reaxl/bytecode"
	"reaxl/diag"
	"reaxl/heap"
)

func (vm *VM) fieldGet(obj heap.Value, name string) (heap.Value, error) {
	s := vm.Heap.StructAt(obj.H)
	if obj.Kind != heap.KStruct || s == nil {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "field %q read on a non-struct value", name)
		return heap.Int(0), nil
	}
	loc, ok := s.Get(name)
	if !ok {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "struct %s has no field %q", s.Def, name)
		return heap.Int(0), nil
	}
	return vm.readLocation(loc)
}

func (vm *VM) fieldPut(obj heap.Value, name string, loc heap.Location) {
	s := vm.Heap.StructAt(obj.H)
	if obj.Kind != heap.KStruct || s == nil {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "field %q write on a non-struct value", name)
		return
	}
	s.Set(name, loc)
}

// indexGet serves both Array and String: a String is "an array of Char" for indexing purposes,
// so text[i] yields the i-th code point as a Char rather than falling through to the
// non-array-value warning (the rule "arithmetic between Char and Int yields Char" only keeps
// text[i] + 1 printable if text[i] itself produces a Char).
func (vm *VM) indexGet(obj, idx heap.Value) (heap.Value, error) {
	if obj.Kind == heap.KString {
		s := vm.Heap.StringAt(obj.H)
		runes := []rune(s)
		n, ok := vm.Heap.ToInt(idx)
		if !ok || n < 0 || int(n) >= len(runes) {
			vm.Log.Warnf(diag.KindIndexBounds, diag.Position{}, "index %d out of bounds (length %d)", n, len(runes))
			return heap.Int(0), nil
		}
		return heap.Char(runes[n]), nil
	}

	a := vm.Heap.ArrayAt(obj.H)
	if obj.Kind != heap.KArray || a == nil {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "index read on a non-array value")
		return heap.Int(0), nil
	}
	n, ok := vm.Heap.ToInt(idx)
	if !ok || n < 0 || int(n) >= len(a.Cells) {
		vm.Log.Warnf(diag.KindIndexBounds, diag.Position{}, "index %d out of bounds (length %d)", n, len(a.Cells))
		return heap.Int(0), nil
	}
	return vm.readLocation(a.Cells[n])
}

// indexPut only serves Array: a String's character cells are not individually addressable
// storage (heap.Heap interns Strings as plain Go strings, not Location slices), so a write
// through a string index is reported the same as any other non-array write target.
func (vm *VM) indexPut(obj, idx heap.Value, loc heap.Location) {
	a := vm.Heap.ArrayAt(obj.H)
	if obj.Kind != heap.KArray || a == nil {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "index write on a non-array value")
		return
	}
	n, ok := vm.Heap.ToInt(idx)
	if !ok || n < 0 || int(n) >= len(a.Cells) {
		vm.Log.Warnf(diag.KindIndexBounds, diag.Position{}, "index %d out of bounds (length %d)", n, len(a.Cells))
		return
	}
	a.Cells[n] = loc
}

// instantiateStruct builds a fresh struct instance from the named template. Every field gets a
// lazily-resolved sibling binding in a shared frame — whether the field's own initializer is
// eager ("=" / ":=") or reactive ("::=") — so a reactive field can reference a sibling by bare
// name and only pay for evaluating siblings it actually reads.
func (vm *VM) instantiateStruct(name string) heap.Value {
	tmpl, ok := vm.templates[name]
	if !ok {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "struct %q is not defined", name)
		tmpl = &bytecode.StructTemplate{Name: name}
	}
	s, v := vm.Heap.NewStruct(name)

	var siblingFrame *heap.BindFrame
	for _, f := range tmpl.Fields {
		fieldName := f.Name
		siblingFrame = siblingFrame.PushLazy(fieldName, func() heap.Value {
			loc, ok := s.Get(fieldName)
			if !ok {
				return heap.Int(0)
			}
			val, _ := vm.readLocation(loc)
			return val
		})
	}

	for _, f := range tmpl.Fields {
		switch {
		case f.Kind == bytecode.FieldReactive:
			th := &heap.Thunk{Chunk: f.Init, Frame: siblingFrame}
			s.Set(f.Name, heap.ReactiveLocation(th))
		case f.Init != nil:
			val, _ := vm.execChunk(f.Init, siblingFrame)
			s.Set(f.Name, heap.Concrete(val))
		default:
			s.Set(f.Name, heap.Concrete(heap.Int(0)))
		}
	}
	return v
}

func (vm *VM) call(argc int) (heap.Value, error) {
	fnVal := vm.pop()
	args := make([]heap.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	if fnVal.Kind != heap.KFunction {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "call target is not a function")
		return heap.Int(0), nil
	}
	proto := vm.Heap.FuncAt(fnVal.H)
	if proto == nil {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "call target resolves to no function body")
		return heap.Int(0), nil
	}
	var frame *heap.BindFrame
	for i, p := range proto.Params {
		var arg heap.Value
		if i < len(args) {
			arg = args[i]
		}
		frame = frame.Push(p, arg)
	}
	return vm.execChunk(proto.Body, frame)
}

// binaryArith implements +, -, *, /, % with the char-preserving rule: the result is Char iff
// either operand was Char, otherwise Int. Division/modulo by zero yields Int(0) plus a warning.
func (vm *VM) binaryArith(op bytecode.Op) {
	right := vm.pop()
	left := vm.pop()
	a, aok := vm.Heap.ToInt(left)
	b, bok := vm.Heap.ToInt(right)
	if !aok || !bok {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "arithmetic operand does not coerce to an integer")
		vm.push(heap.Int(0))
		return
	}

	var n int32
	switch op {
	case bytecode.OpAdd:
		n = a + b
	case bytecode.OpSub:
		n = a - b
	case bytecode.OpMul:
		n = a * b
	case bytecode.OpDiv:
		if b == 0 {
			vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "division by zero")
			vm.push(heap.Int(0))
			return
		}
		n = a / b
	case bytecode.OpMod:
		if b == 0 {
			vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "modulo by zero")
			vm.push(heap.Int(0))
			return
		}
		n = a % b
	}

	if left.Kind == heap.KChar || right.Kind == heap.KChar {
		vm.push(heap.Char(n))
	} else {
		vm.push(heap.Int(n))
	}
}

// compare implements ==, !=, >, <, >=, <=. Array/Struct/Function operands compare by handle
// identity for ==/!=; every other comparison coerces both sides to int.
func (vm *VM) compare(op bytecode.Op) {
	right := vm.pop()
	left := vm.pop()

	if (op == bytecode.OpEq || op == bytecode.OpNotEq) &&
		left.Kind == right.Kind &&
		(left.Kind == heap.KArray || left.Kind == heap.KStruct || left.Kind == heap.KFunction) {
		eq := left.H == right.H
		if op == bytecode.OpNotEq {
			eq = !eq
		}
		vm.push(boolInt(eq))
		return
	}

	a, aok := vm.Heap.ToInt(left)
	b, bok := vm.Heap.ToInt(right)
	if !aok || !bok {
		vm.Log.Warnf(diag.KindTypeMismatch, diag.Position{}, "comparison operand does not coerce to an integer")
		vm.push(heap.Int(0))
		return
	}

	var result bool
	switch op {
	case bytecode.OpEq:
		result = a == b
	case bytecode.OpNotEq:
		result = a != b
	case bytecode.OpGt:
		result = a > b
	case bytecode.OpLt:
		result = a < b
	case bytecode.OpGtEq:
		result = a >= b
	case bytecode.OpLtEq:
		result = a <= b
	}
	vm.push(boolInt(result))
}

func boolInt(b bool) heap.Value {
	if b {
		return heap.Int(1)
	}
	return heap.Int(0)
}

// ==============================================================================================
// FILE: heap/heap.go
// ==============================================================================================
// PACKAGE: heap
// PURPOSE: The runtime value model: the tagged Value union, addressable Locations (concrete or
//          reactive), arrays and structs, the immutable-binding frame chain, and the indexed
//          heap arena that resolves Array/Struct/String handles. heap never imports vm — reading
//          a reactive Location requires executing bytecode, which is the VM's job; heap only
//          stores the Thunk (compiled chunk + captured frame) the VM later evaluates.
// ==============================================================================================

package heap

import (
	"fmt"
	"strings"

	"reaxl/bytecode"
)

// Kind tags a Value's variant.
type Kind uint8

const (
	KUnit Kind = iota
	KInt
	KChar
	KString
	KArray
	KStruct
	KFunction
)

func (k Kind) String() string {
	switch k {
	case KUnit:
		return "unit"
	case KInt:
		return "int"
	case KChar:
		return "char"
	case KString:
		return "string"
	case KArray:
		return "array"
	case KStruct:
		return "struct"
	case KFunction:
		return "function"
	default:
		return "?"
	}
}

// Value is the tagged union every expression produces. N carries an Int/Char payload; H carries
// an arena handle for String/Array/Struct/Function.
type Value struct {
	Kind Kind
	N    int32
	H    int32
}

func Unit() Value           { return Value{Kind: KUnit} }
func Int(n int32) Value     { return Value{Kind: KInt, N: n} }
func Char(n int32) Value    { return Value{Kind: KChar, N: n} }
func StringV(h int32) Value { return Value{Kind: KString, H: h} }
func ArrayV(h int32) Value  { return Value{Kind: KArray, H: h} }
func StructV(h int32) Value { return Value{Kind: KStruct, H: h} }
func FuncV(h int32) Value   { return Value{Kind: KFunction, H: h} }

// BindFrame is one node of a persistent, never-mutated singly linked list of immutable ":="
// bindings. A reactive thunk captures "the current scope" by storing a *BindFrame pointer — safe
// forever, since no frame is ever mutated after construction. Resolve, when set, lazily computes
// the bound value on first Lookup instead of eagerly — used only for a reactive struct field's
// sibling-field bindings, so a sibling that is never referenced is never evaluated (and can
// never trip a false-positive cycle).
type BindFrame struct {
	Name    string
	Val     Value
	Resolve func() Value
	Parent  *BindFrame
}

// Push returns a new frame binding name to val ahead of f.
func (f *BindFrame) Push(name string, val Value) *BindFrame {
	return &BindFrame{Name: name, Val: val, Parent: f}
}

// PushLazy returns a new frame binding name to a value computed on demand by resolve.
func (f *BindFrame) PushLazy(name string, resolve func() Value) *BindFrame {
	return &BindFrame{Name: name, Resolve: resolve, Parent: f}
}

// Lookup walks the frame chain outward from f, returning the bound value for name if found.
func (f *BindFrame) Lookup(name string) (Value, bool) {
	for n := f; n != nil; n = n.Parent {
		if n.Name == name {
			if n.Resolve != nil {
				return n.Resolve(), true
			}
			return n.Val, true
		}
	}
	return Value{}, false
}

// Thunk is an unevaluated expression plus the immutable-binding context captured at the moment
// it was stored via "::=". The VM evaluates Chunk with Frame as the active scope on every read.
type Thunk struct {
	Chunk *bytecode.Chunk
	Frame *BindFrame
}

// Location is one addressable storage slot: either a concrete Value or a reactive Thunk.
type Location struct {
	Val      Value
	Reactive *Thunk
}

// Concrete builds a Location holding a plain value.
func Concrete(v Value) Location { return Location{Val: v} }

// ReactiveLocation builds a Location holding an unevaluated expression.
func ReactiveLocation(t *Thunk) Location { return Location{Reactive: t} }

// Array is a fixed-size, zero-initialized-at-allocation collection of Locations.
type Array struct {
	Cells []Location
}

// Struct is an open, insertion-ordered name -> Location mapping. The template that produced it
// is consulted only at instantiation; nothing about it constrains fields added later.
type Struct struct {
	Def    string
	Order  []string
	Fields map[string]Location
}

// Get returns the field's Location, or false if the field does not exist.
func (s *Struct) Get(name string) (Location, bool) {
	loc, ok := s.Fields[name]
	return loc, ok
}

// Set writes loc at name, appending name to Order on first use (open-struct semantics: adding a
// new field persists only on this instance).
func (s *Struct) Set(name string, loc Location) {
	if _, exists := s.Fields[name]; !exists {
		s.Order = append(s.Order, name)
	}
	s.Fields[name] = loc
}

// Heap is the indexed arena for every reference-kind Value: arrays, structs, strings, and
// function prototypes are never stored inline in a Value, only as integer handles into here.
type Heap struct {
	Arrays  []*Array
	Structs []*Struct
	Strings []string
	Funcs   []*bytecode.FunctionProto
}

// New builds an empty arena.
func New() *Heap { return &Heap{} }

// NewArray allocates a fresh, zero-initialized array of n cells and returns its Value.
func (h *Heap) NewArray(n int32) Value {
	if n < 0 {
		n = 0
	}
	cells := make([]Location, n)
	for i := range cells {
		cells[i] = Concrete(Int(0))
	}
	h.Arrays = append(h.Arrays, &Array{Cells: cells})
	return ArrayV(int32(len(h.Arrays) - 1))
}

// NewStruct allocates an empty struct record (the caller populates Fields) and returns both the
// record and its Value, so template instantiation can fill fields in declaration order.
func (h *Heap) NewStruct(def string) (*Struct, Value) {
	s := &Struct{Def: def, Fields: make(map[string]Location)}
	h.Structs = append(h.Structs, s)
	return s, StructV(int32(len(h.Structs) - 1))
}

// NewString interns a fresh string record and returns its Value.
func (h *Heap) NewString(s string) Value {
	h.Strings = append(h.Strings, s)
	return StringV(int32(len(h.Strings) - 1))
}

// NewFunc registers a compiled function prototype and returns its Value.
func (h *Heap) NewFunc(fn *bytecode.FunctionProto) Value {
	h.Funcs = append(h.Funcs, fn)
	return FuncV(int32(len(h.Funcs) - 1))
}

func (h *Heap) ArrayAt(idx int32) *Array {
	if idx < 0 || int(idx) >= len(h.Arrays) {
		return nil
	}
	return h.Arrays[idx]
}

func (h *Heap) StructAt(idx int32) *Struct {
	if idx < 0 || int(idx) >= len(h.Structs) {
		return nil
	}
	return h.Structs[idx]
}

func (h *Heap) FuncAt(idx int32) *bytecode.FunctionProto {
	if idx < 0 || int(idx) >= len(h.Funcs) {
		return nil
	}
	return h.Funcs[idx]
}

func (h *Heap) StringAt(idx int32) string {
	if idx < 0 || int(idx) >= len(h.Strings) {
		return ""
	}
	return h.Strings[idx]
}

// ToInt coerces v into the integer context the spec defines: Int/Char pass their payload
// through, Array/String coerce to their length, Struct/Function/Unit cannot coerce.
func (h *Heap) ToInt(v Value) (int32, bool) {
	switch v.Kind {
	case KInt, KChar:
		return v.N, true
	case KArray:
		if a := h.ArrayAt(v.H); a != nil {
			return int32(len(a.Cells)), true
		}
		return 0, false
	case KString:
		return int32(len(h.StringAt(v.H))), true
	default:
		return 0, false
	}
}

// Truthy applies the spec's boolean-context rule (zero is false, non-zero is true) on top of
// ToInt; a coercion failure is treated as false.
func (h *Heap) Truthy(v Value) bool {
	n, ok := h.ToInt(v)
	return ok && n != 0
}

// Render produces the print/println stringification: strings as their character content, chars
// as the single character, non-char arrays as their length, ints as decimal.
func (h *Heap) Render(v Value) string {
	switch v.Kind {
	case KInt:
		return fmt.Sprintf("%d", v.N)
	case KChar:
		return string(rune(v.N))
	case KString:
		return h.StringAt(v.H)
	case KArray:
		a := h.ArrayAt(v.H)
		if a == nil {
			return "0"
		}
		return fmt.Sprintf("%d", len(a.Cells))
	case KStruct:
		s := h.StructAt(v.H)
		if s == nil {
			return "struct"
		}
		var parts []string
		for _, name := range s.Order {
			loc := s.Fields[name]
			parts = append(parts, name+"="+h.renderLocation(loc))
		}
		return s.Def + "{" + strings.Join(parts, ", ") + "}"
	case KFunction:
		return "function"
	default:
		return "unit"
	}
}

func (h *Heap) renderLocation(loc Location) string {
	if loc.Reactive != nil {
		return "<reactive>"
	}
	return h.Render(loc.Val)
}

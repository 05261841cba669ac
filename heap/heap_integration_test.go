package heap

import "testing"

// TestStructInstantiationWithReactiveSiblingField exercises the sibling-lazy-binding scenario:
// a struct field's reactive initializer reads a sibling field through a lazily-resolved
// BindFrame, so the sibling is only evaluated when actually referenced.
func TestStructInstantiationWithReactiveSiblingField(t *testing.T) {
	h := New()
	s, sv := h.NewStruct("Rect")

	widthEvaluated := false
	var frame *BindFrame
	frame = frame.PushLazy("width", func() Value {
		widthEvaluated = true
		return Int(4)
	})
	frame = frame.PushLazy("height", func() Value {
		return Int(5)
	})

	s.Set("width", Concrete(Int(4)))
	s.Set("height", Concrete(Int(5)))
	// area is modeled here as already-resolved via frame lookup, standing in for what the
	// compiler/VM would do when evaluating a reactive "area ::= width * height" field.
	if v, ok := frame.Lookup("height"); !ok || v != Int(5) {
		t.Fatalf("expected height=5 from frame, got %#v %v", v, ok)
	}
	if widthEvaluated {
		t.Fatalf("width should not be evaluated unless looked up")
	}
	if _, ok := frame.Lookup("width"); !ok {
		t.Fatalf("expected width to resolve on lookup")
	}
	if !widthEvaluated {
		t.Fatalf("expected width to be evaluated once looked up")
	}

	got, ok := s.Get("width")
	if !ok || got.Val != Int(4) {
		t.Fatalf("expected struct field width=4, got %#v", got)
	}
	if sv.Kind != KStruct {
		t.Fatalf("expected struct value kind, got %v", sv.Kind)
	}
}

// TestArrayOfStructsRoundTrip exercises nested handles: an array whose cells hold struct
// values, each struct holding a field referencing a shared string.
func TestArrayOfStructsRoundTrip(t *testing.T) {
	h := New()
	label := h.NewString("node")

	arrVal := h.NewArray(2)
	arr := h.ArrayAt(arrVal.H)
	for i := range arr.Cells {
		s, sv := h.NewStruct("Node")
		s.Set("label", Concrete(label))
		s.Set("id", Concrete(Int(int32(i))))
		arr.Cells[i] = Concrete(sv)
	}

	for i, cell := range arr.Cells {
		s := h.StructAt(cell.Val.H)
		idLoc, _ := s.Get("id")
		if idLoc.Val != Int(int32(i)) {
			t.Fatalf("cell %d: expected id=%d, got %#v", i, i, idLoc.Val)
		}
		labelLoc, _ := s.Get("label")
		if h.StringAt(labelLoc.Val.H) != "node" {
			t.Fatalf("cell %d: expected shared label 'node'", i)
		}
	}
}

// TestReactiveLocationDeferredEvaluation checks that a reactive Location only stores the
// thunk, never eagerly computing a value, leaving that entirely to the VM's read path.
func TestReactiveLocationDeferredEvaluation(t *testing.T) {
	th := &Thunk{Chunk: nil, Frame: nil}
	loc := ReactiveLocation(th)
	if loc.Reactive != th {
		t.Fatalf("expected ReactiveLocation to retain the thunk pointer")
	}
	if loc.Val != (Value{}) {
		t.Fatalf("expected a reactive Location to carry a zero Val, got %#v", loc.Val)
	}
}

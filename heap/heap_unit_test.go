package heap

import "testing"

func TestNewArrayIsZeroInitialized(t *testing.T) {
	h := New()
	v := h.NewArray(3)
	arr := h.ArrayAt(v.H)
	if len(arr.Cells) != 3 {
		t.Fatalf("expected 3 cells, got %d", len(arr.Cells))
	}
	for i, c := range arr.Cells {
		if c.Reactive != nil || c.Val != Int(0) {
			t.Fatalf("cell %d not zero-initialized: %#v", i, c)
		}
	}
}

func TestToIntCoercions(t *testing.T) {
	h := New()
	strVal := h.NewString("hi")
	arrVal := h.NewArray(4)

	cases := []struct {
		v    Value
		want int32
		ok   bool
	}{
		{Int(5), 5, true},
		{Char('a'), int32('a'), true},
		{strVal, 2, true},
		{arrVal, 4, true},
		{Unit(), 0, false},
	}
	for _, c := range cases {
		n, ok := h.ToInt(c.v)
		if ok != c.ok || (ok && n != c.want) {
			t.Fatalf("ToInt(%#v) = (%d,%v), want (%d,%v)", c.v, n, ok, c.want, c.ok)
		}
	}
}

func TestTruthy(t *testing.T) {
	h := New()
	emptyArr := h.NewArray(0)
	nonEmptyArr := h.NewArray(1)
	if h.Truthy(Int(0)) {
		t.Fatalf("Int(0) should be falsy")
	}
	if !h.Truthy(Int(1)) {
		t.Fatalf("Int(1) should be truthy")
	}
	if h.Truthy(emptyArr) {
		t.Fatalf("zero-length array should be falsy")
	}
	if !h.Truthy(nonEmptyArr) {
		t.Fatalf("non-empty array should be truthy")
	}
	if h.Truthy(Unit()) {
		t.Fatalf("a coercion failure should be treated as falsy")
	}
}

func TestBindFrameLookupWalksOutward(t *testing.T) {
	var f *BindFrame
	f = f.Push("x", Int(1))
	f = f.Push("y", Int(2))
	if v, ok := f.Lookup("x"); !ok || v != Int(1) {
		t.Fatalf("expected x=1, got %#v, %v", v, ok)
	}
	if v, ok := f.Lookup("y"); !ok || v != Int(2) {
		t.Fatalf("expected y=2, got %#v, %v", v, ok)
	}
	if _, ok := f.Lookup("z"); ok {
		t.Fatalf("expected z to be unbound")
	}
}

func TestBindFrameShadowing(t *testing.T) {
	var f *BindFrame
	f = f.Push("x", Int(1))
	f = f.Push("x", Int(2))
	v, _ := f.Lookup("x")
	if v != Int(2) {
		t.Fatalf("expected innermost binding to win, got %#v", v)
	}
}

func TestBindFrameLazyResolveOnlyCalledOnLookup(t *testing.T) {
	called := false
	var f *BindFrame
	f = f.PushLazy("y", func() Value {
		called = true
		return Int(42)
	})
	if called {
		t.Fatalf("resolve should not run until Lookup")
	}
	v, ok := f.Lookup("y")
	if !ok || v != Int(42) || !called {
		t.Fatalf("expected lazy resolution to produce 42, got %#v %v", v, ok)
	}
}

func TestStructSetTracksInsertionOrder(t *testing.T) {
	h := New()
	s, _ := h.NewStruct("Point")
	s.Set("x", Concrete(Int(1)))
	s.Set("y", Concrete(Int(2)))
	s.Set("x", Concrete(Int(9)))
	if len(s.Order) != 2 {
		t.Fatalf("expected order to track each field once, got %v", s.Order)
	}
	loc, ok := s.Get("x")
	if !ok || loc.Val != Int(9) {
		t.Fatalf("expected updated x=9, got %#v", loc)
	}
}

// ==============================================================================================
// FILE: heap/gc.go
// ==============================================================================================
// PACKAGE: heap
// PURPOSE: A simple mark-and-sweep collector, run by the VM between top-level statements. Roots
//          are the live value stack, the global environment, and every immutable-binding frame
//          currently on the call/loop chain; reactive thunks retain reachability through the
//          frame snapshot they captured at "::=" time.
// ==============================================================================================

package heap

// Collect marks every Array/Struct reachable from roots or frames and drops the Go-level
// reference to anything unmarked, so it can be reclaimed by the host garbage collector. Handles
// are never renumbered — an unmarked slot becomes nil rather than being removed — so every other
// Value.H in the program stays valid.
func (h *Heap) Collect(roots []Value, frames []*BindFrame) {
	markedArrays := make([]bool, len(h.Arrays))
	markedStructs := make([]bool, len(h.Structs))

	var markValue func(Value)
	var markLocation func(Location)
	var markFrame func(*BindFrame)

	markValue = func(v Value) {
		switch v.Kind {
		case KArray:
			if v.H < 0 || int(v.H) >= len(markedArrays) || markedArrays[v.H] {
				return
			}
			markedArrays[v.H] = true
			if a := h.Arrays[v.H]; a != nil {
				for _, cell := range a.Cells {
					markLocation(cell)
				}
			}
		case KStruct:
			if v.H < 0 || int(v.H) >= len(markedStructs) || markedStructs[v.H] {
				return
			}
			markedStructs[v.H] = true
			if s := h.Structs[v.H]; s != nil {
				for _, name := range s.Order {
					markLocation(s.Fields[name])
				}
			}
		}
	}

	markLocation = func(loc Location) {
		if loc.Reactive != nil {
			// The thunk's own expression is not re-walked here: it has not been evaluated, so it
			// cannot itself hold a live heap reference yet. Only its captured frame can.
			markFrame(loc.Reactive.Frame)
			return
		}
		markValue(loc.Val)
	}

	markFrame = func(f *BindFrame) {
		for n := f; n != nil; n = n.Parent {
			if n.Resolve == nil {
				markValue(n.Val)
			}
		}
	}

	for _, r := range roots {
		markValue(r)
	}
	for _, f := range frames {
		markFrame(f)
	}

	for i, marked := range markedArrays {
		if !marked {
			h.Arrays[i] = nil
		}
	}
	for i, marked := range markedStructs {
		if !marked {
			h.Structs[i] = nil
		}
	}
}

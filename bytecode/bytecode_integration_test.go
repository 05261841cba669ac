package bytecode

import (
	"bytes"
	"strings"
	"testing"
)

// TestDisassembleRendersNestedChunks builds a small chunk containing a function and a reactive
// thunk and checks the disassembly covers all three regions with readable mnemonics.
func TestDisassembleRendersNestedChunks(t *testing.T) {
	main := NewChunk("main")
	nameIdx := main.AddStr("total")

	thunk := NewChunk("thunk#0")
	thunk.Emit(OpLoadIdent, thunk.AddStr("a"), 0)
	thunk.Emit(OpLoadIdent, thunk.AddStr("b"), 0)
	thunk.Emit(OpAdd, 0, 0)
	thunkIdx := main.AddThunk(thunk)

	fnBody := NewChunk("add")
	fnBody.Emit(OpLoadIdent, fnBody.AddStr("a"), 0)
	fnBody.Emit(OpLoadIdent, fnBody.AddStr("b"), 0)
	fnBody.Emit(OpAdd, 0, 0)
	fnBody.Emit(OpReturn, 0, 0)
	fnIdx := main.AddFunc(&FunctionProto{Name: "add", Params: []string{"a", "b"}, Body: fnBody})

	main.Emit(OpDefineFunction, fnIdx, 0)
	main.Emit(OpAssignGlobalReactive, nameIdx, thunkIdx)
	main.Emit(OpHalt, 0, 0)

	var buf bytes.Buffer
	main.Disassemble(&buf)
	out := buf.String()

	for _, want := range []string{"chunk main", "chunk add", "chunk thunk#0", "define-function", "assign-global-reactive", `"total"`, "thunk#0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected disassembly to contain %q, got:\n%s", want, out)
		}
	}
}

func TestJumpPatchingProducesLoopBackEdge(t *testing.T) {
	c := NewChunk("main")
	c.Emit(OpSnapshotFrame, 0, 0)
	loopStart := c.Here()
	c.Emit(OpResetFrame, 0, 0)
	c.Emit(OpLoadInt, 1, 0)
	jumpBack := c.Emit(OpJump, loopStart, 0)
	c.Emit(OpPopFrameMark, 0, 0)

	if c.Instrs[jumpBack].A != loopStart {
		t.Fatalf("expected back-edge target %d, got %d", loopStart, c.Instrs[jumpBack].A)
	}
}

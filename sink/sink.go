// ==============================================================================================
// FILE: sink/sink.go
// ==============================================================================================
// PACKAGE: sink
// PURPOSE: The output side of "print"/"println" — a thin io.Writer wrapper that writes text the
//          VM has already rendered with heap.Render, so the sink itself knows nothing about
//          values or formatting.
// ==============================================================================================

package sink

import (
	"fmt"
	"io"
)

// Sink writes print/println output to an underlying writer.
type Sink struct {
	W io.Writer
}

// New wraps w as a Sink.
func New(w io.Writer) *Sink { return &Sink{W: w} }

// Print writes text with no trailing newline.
func (s *Sink) Print(text string) {
	fmt.Fprint(s.W, text)
}

// Println writes text followed by a newline.
func (s *Sink) Println(text string) {
	fmt.Fprintln(s.W, text)
}

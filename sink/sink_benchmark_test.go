package sink

import (
	"io"
	"testing"
)

func BenchmarkPrintln(b *testing.B) {
	s := New(io.Discard)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		s.Println("42")
	}
}

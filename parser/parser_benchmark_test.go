package parser

import (
	"testing"

	"reaxl/lexer"
)

func BenchmarkParseProgram(b *testing.B) {
	const input = `arr = [3]; i = 0; loop { j := i; arr[j] ::= j * 10; i = i + 1; if i >= 3 { break; } }`
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		p := New(lexer.New(input))
		p.ParseProgram()
	}
}

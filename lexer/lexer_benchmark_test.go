package lexer

import "testing"

func BenchmarkNextToken(b *testing.B) {
	const input = `arr = [3]; i = 0; loop { j := i; arr[j] ::= j * 10; i = i + 1; if i >= 3 { break; } }`
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		l := New(input)
		for {
			tok := l.NextToken()
			if tok.Type == "EOF" {
				break
			}
		}
	}
}

package lexer

import (
	"testing"

	"reaxl/token"
)

// Smoke test: an empty input immediately yields EOF.
func TestEmptyInputYieldsEOF(t *testing.T) {
	l := New("")
	tok := l.NextToken()
	if tok.Type != token.EOF {
		t.Fatalf("expected EOF for empty input, got %s", tok.Type)
	}
}

func TestWhitespaceOnlyYieldsEOF(t *testing.T) {
	l := New("   \n\t\r  ")
	tok := l.NextToken()
	if tok.Type != token.EOF {
		t.Fatalf("expected EOF, got %s", tok.Type)
	}
}

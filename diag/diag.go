// ==============================================================================================
// FILE: diag/diag.go
// ==============================================================================================
// PACKAGE: diag
// PURPOSE: Shared diagnostic vocabulary for every stage of the pipeline (lexer, parser, module
//          loader, compiler, VM). Fatal diagnostics abort the stage that raised them; Warnings
//          are recoverable-fault records appended to a per-run Log and flushed to stderr once
//          the run completes.
// ==============================================================================================

package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Position identifies a location in source text.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Kind enumerates the error/warning categories named in the error handling design.
type Kind string

const (
	KindLex          Kind = "lex"
	KindParse        Kind = "parse"
	KindLoad         Kind = "load"
	KindTypeMismatch Kind = "type-mismatch"
	KindIndexBounds  Kind = "index-bounds"
	KindCycle        Kind = "reactive-cycle"
	KindStackOverflow Kind = "stack-overflow"
)

// Fatal is returned by the lex/parse/load stages and by non-reactive stack overflow in the VM.
// It always causes the driver to stop and pick an exit code from Kind.
type Fatal struct {
	Kind Kind
	Pos  Position
	Msg  string
}

func (f *Fatal) Error() string {
	return fmt.Sprintf("%s error at %s: %s", f.Kind, f.Pos, f.Msg)
}

// Wrap attaches a stack trace to a Fatal as it threads up through a caller, in the style of
// github.com/pkg/errors-based wrapping used by db47h-ngaro's cmd/retro driver.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, context)
}

// ExitCode maps a Fatal's Kind to the CLI exit code convention from the external interface spec:
// compile-time faults (lex/parse/load) exit 2, runtime faults (stack overflow) exit 1.
func (f *Fatal) ExitCode() int {
	switch f.Kind {
	case KindLex, KindParse, KindLoad:
		return 2
	default:
		return 1
	}
}

// Warning is a recoverable runtime fault: the offending operation already produced its sentinel
// value (Int(0) for reads, a no-op for writes); the Warning only records that it happened.
type Warning struct {
	Kind Kind
	Pos  Position
	Msg  string
}

func (w Warning) String() string {
	return fmt.Sprintf("warning: %s: %s (%s)", w.Kind, w.Msg, w.Pos)
}

// Log accumulates warnings for the duration of one VM run.
type Log struct {
	Warnings []Warning
}

func NewLog() *Log { return &Log{} }

func (l *Log) Warnf(kind Kind, pos Position, format string, args ...interface{}) {
	l.Warnings = append(l.Warnings, Warning{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

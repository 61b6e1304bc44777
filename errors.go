package decxspec

import (
	"errors"
	"fmt"
)

var (
	// ErrEditTargetNotFound is wrapped by editors when no line of the edited
	// file matches an instruction.
	ErrEditTargetNotFound = errors.New("edit target not found")
	// ErrTimeout is wrapped by test failures of programs that did not exit in
	// time.
	ErrTimeout = errors.New("timeout")
)

// SourcePosition locates a line of a specification file. Line and Column
// are 1-based, a zero Column means the whole line.
type SourcePosition struct {
	File   string
	Line   int
	Column int
}

func (p SourcePosition) String() string {
	if p.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// ParseError reports a malformed matrix section body.
type ParseError struct {
	Pos SourcePosition
	Msg string
}

func parseErrorf(pos SourcePosition, format string, a ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, a...)}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// SectionFormatError reports a malformed matrix section header.
type SectionFormatError struct {
	Pos     SourcePosition
	Keyword string
	Msg     string
}

func (e *SectionFormatError) Error() string {
	return fmt.Sprintf("%s: %s section: %s", e.Pos, e.Keyword, e.Msg)
}

// SpecificationFormatError reports a broken specification file, e.g. an
// unrecognized chunk or a failure test without error block. It is not about
// the tested program and aborts a run.
type SpecificationFormatError struct {
	Pos   SourcePosition
	Msg   string
	Chunk string
	// Err is the section error that made the chunk unreadable, if any.
	Err error
}

func specErrorf(pos SourcePosition, chunk []string, format string, a ...any) *SpecificationFormatError {
	err := &SpecificationFormatError{Pos: pos, Msg: fmt.Sprintf(format, a...)}
	if len(chunk) > 0 {
		err.Chunk = joinLines(chunk)
	}
	return err
}

func (e *SpecificationFormatError) Unwrap() error { return e.Err }

func (e *SpecificationFormatError) Error() string {
	if e.Chunk == "" {
		return fmt.Sprintf("%s: error in specification: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: error in specification: %s:\n%s", e.Pos, e.Msg, e.Chunk)
}

// TestFailure is a mismatch between the program's behaviour and the
// expectations of a test. Test failures are recorded and do not stop a run.
type TestFailure struct {
	Msg     string
	Timeout bool
}

func failuref(format string, a ...any) *TestFailure {
	return &TestFailure{Msg: fmt.Sprintf(format, a...)}
}

func (f *TestFailure) Error() string { return f.Msg }

func (f *TestFailure) Unwrap() error {
	if f.Timeout {
		return ErrTimeout
	}
	return nil
}

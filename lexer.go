package decxspec

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// TagComment starts a comment that runs to the end of the line.
const TagComment = '#'

// Lexer is a line cursor over the text of a specification file or over a
// chunk of it. It keeps track of line numbers for error messages.
type Lexer struct {
	file  string
	lines []string
	first int
	next  int
	col   int
}

// NewLexer reads the complete text of a specification file. Comments are
// stripped and the text is NFC normalized.
func NewLexer(file, text string) *Lexer {
	lines := SplitLines(norm.NFC.String(text))
	for i, l := range lines {
		lines[i] = StripComment(l)
	}
	return &Lexer{file: file, lines: lines, first: 1}
}

func newChunkLexer(file string, first int, lines []string) *Lexer {
	return &Lexer{
		file:  file,
		lines: append([]string(nil), lines...),
		first: first,
	}
}

// SplitLines splits text into lines without line terminators. A trailing
// newline does not start an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// StripComment removes everything from the first '#' to the end of line.
func StripComment(line string) string {
	if i := strings.IndexByte(line, TagComment); i >= 0 {
		return line[:i]
	}
	return line
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

func (lx *Lexer) EOF() bool { return lx.next >= len(lx.lines) }

// Peek returns the pending line without consuming it.
func (lx *Lexer) Peek() (string, bool) {
	if lx.EOF() {
		return "", false
	}
	return lx.lines[lx.next], true
}

// ReadLine consumes and returns the pending line.
func (lx *Lexer) ReadLine() (string, bool) {
	if lx.EOF() {
		return "", false
	}
	l := lx.lines[lx.next]
	lx.next++
	lx.col = 0
	return l, true
}

// FindEmptyLine reports whether the pending line is blank. It does not
// consume the line.
func (lx *Lexer) FindEmptyLine() bool {
	l, ok := lx.Peek()
	return ok && isBlank(l)
}

// LStrip strips leading white space from the pending line. The column where
// the content starts is kept for Context.
func (lx *Lexer) LStrip() *Lexer {
	if lx.EOF() {
		return lx
	}
	l := lx.lines[lx.next]
	s := strings.TrimLeftFunc(l, unicode.IsSpace)
	lx.col += utf8.RuneCountInString(l[:len(l)-len(s)])
	lx.lines[lx.next] = s
	return lx
}

// Context returns the position of the pending line, or of the last line
// at end of input.
func (lx *Lexer) Context() SourcePosition {
	idx := lx.next
	if idx >= len(lx.lines) && idx > 0 {
		idx = len(lx.lines) - 1
	}
	return SourcePosition{
		File:   lx.file,
		Line:   lx.first + idx,
		Column: lx.col + 1,
	}
}

func joinLines(lines []string) string { return strings.Join(lines, "\n") }

package decxspec

import (
	"fmt"
	"strings"
)

// DiffOp is the kind of an edit instruction.
type DiffOp int

const (
	// OpReplace replaces the content of the matched line, keeping its
	// indentation.
	OpReplace DiffOp = iota
	OpComment
	OpUncomment
	OpIndent
	// OpInsertAbove inserts Line immediately before the matched line.
	OpInsertAbove
)

var diffOpKeywords = [...]string{
	OpReplace:     "",
	OpComment:     "COMMENT",
	OpUncomment:   "UNCOMMENT",
	OpIndent:      "INDENT",
	OpInsertAbove: "INSERT ABOVE",
}

func (op DiffOp) String() string {
	switch {
	case op == OpReplace:
		return "REPLACE"
	case op > 0 && int(op) < len(diffOpKeywords):
		return diffOpKeywords[op]
	}
	return fmt.Sprintf("diff-op(%d)", int(op))
}

// DiffInstruction edits the first line of a file whose trimmed text starts
// with Match.
type DiffInstruction struct {
	Op    DiffOp
	Match string
	// Line is the replacement for OpReplace and the new line for
	// OpInsertAbove.
	Line string
	Pos  SourcePosition
}

func (in DiffInstruction) String() string {
	switch in.Op {
	case OpReplace:
		return fmt.Sprintf("'%s' -> '%s'", in.Match, in.Line)
	case OpInsertAbove:
		return fmt.Sprintf("%s '%s': '%s'", in.Op, in.Match, in.Line)
	}
	return fmt.Sprintf("%s '%s'", in.Op, in.Match)
}

// FileDiff is one diff block of a test chunk.
type FileDiff struct {
	File         string
	Persist      bool
	Instructions []DiffInstruction
	Pos          SourcePosition
}

// diffBuilder collects the instruction lines of a diff block. Instructions
// that need a second line stay pending until it arrives.
type diffBuilder struct {
	diff    *FileDiff
	pending *DiffInstruction
}

func (b *diffBuilder) add(line string, pos SourcePosition) error {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}
	if p := b.pending; p != nil {
		p.Line = text
		b.diff.Instructions = append(b.diff.Instructions, *p)
		b.pending = nil
		return nil
	}
	op, match := parseDiffLine(text)
	if match == "" {
		return specErrorf(pos, nil, "%s instruction without text in diff (%s)", op, b.diff.File)
	}
	in := DiffInstruction{Op: op, Match: match, Pos: pos}
	switch op {
	case OpReplace, OpInsertAbove:
		b.pending = &in
	default:
		b.diff.Instructions = append(b.diff.Instructions, in)
	}
	return nil
}

func (b *diffBuilder) finish() error {
	if p := b.pending; p != nil {
		if p.Op == OpReplace {
			return specErrorf(p.Pos, nil,
				"replace line '%s' in diff (%s) lacks its replacement", p.Match, b.diff.File)
		}
		return specErrorf(p.Pos, nil,
			"%s '%s' in diff (%s) lacks the line to insert", p.Op, p.Match, b.diff.File)
	}
	if len(b.diff.Instructions) == 0 {
		return specErrorf(b.diff.Pos, nil, "empty diff (%s)", b.diff.File)
	}
	return nil
}

// parseDiffLine splits off an instruction keyword. Lines without keyword
// start a replace pair.
func parseDiffLine(text string) (DiffOp, string) {
	word, rest := cutWord(text)
	switch word {
	case "COMMENT":
		return OpComment, rest
	case "UNCOMMENT":
		return OpUncomment, rest
	case "INDENT":
		return OpIndent, rest
	case "INSERT":
		if w, anchor := cutWord(rest); w == "ABOVE" {
			return OpInsertAbove, anchor
		}
	}
	return OpReplace, text
}

func cutWord(s string) (word, rest string) {
	word, rest, _ = strings.Cut(s, " ")
	return word, strings.TrimSpace(rest)
}

// Package edit applies the diff instructions of specification files to the
// input files of the tested program.
package edit

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/fractalqb/decxspec"
)

// IndentUnit is what OpIndent puts in front of a line.
const IndentUnit = "    "

const commentPrefix = "# "

// TargetNotFoundError tells that no line matched an instruction.
type TargetNotFoundError struct {
	File        string
	Instruction decxspec.DiffInstruction
}

func (e *TargetNotFoundError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("no line matches %s", e.Instruction)
	}
	return fmt.Sprintf("%s: no line matches %s", e.File, e.Instruction)
}

func (e *TargetNotFoundError) Unwrap() error { return decxspec.ErrEditTargetNotFound }

// Lines applies instructions in order to lines and returns the result. The
// input slice is not modified.
func Lines(lines []string, ins ...decxspec.DiffInstruction) ([]string, error) {
	res := append([]string(nil), lines...)
	for _, in := range ins {
		var err error
		if res, err = Apply(res, in); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Apply applies one instruction to the first matching line. It may modify
// lines in place.
func Apply(lines []string, in decxspec.DiffInstruction) ([]string, error) {
	var i int
	if in.Op == decxspec.OpUncomment {
		i = findCommented(lines, in.Match)
	} else {
		i = find(lines, in.Match)
	}
	if i < 0 {
		return nil, &TargetNotFoundError{Instruction: in}
	}
	indent, text := splitIndent(lines[i])
	switch in.Op {
	case decxspec.OpReplace:
		lines[i] = indent + in.Line
	case decxspec.OpComment:
		lines[i] = indent + commentPrefix + text
	case decxspec.OpUncomment:
		text = strings.TrimPrefix(text[1:], " ")
		lines[i] = indent + text
	case decxspec.OpIndent:
		lines[i] = IndentUnit + lines[i]
	case decxspec.OpInsertAbove:
		lines = slices.Insert(lines, i, indent+in.Line)
	default:
		return nil, fmt.Errorf("unknown diff operation %s", in.Op)
	}
	return lines, nil
}

func splitIndent(line string) (indent, text string) {
	text = strings.TrimLeftFunc(line, unicode.IsSpace)
	return line[:len(line)-len(text)], text
}

// find returns the index of the first line whose trimmed text starts with
// match.
func find(lines []string, match string) int {
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), match) {
			return i
		}
	}
	return -1
}

func findCommented(lines []string, match string) int {
	for i, l := range lines {
		text, ok := strings.CutPrefix(strings.TrimSpace(l), "#")
		if !ok {
			continue
		}
		if strings.HasPrefix(strings.TrimPrefix(text, " "), match) {
			return i
		}
	}
	return -1
}

// File applies instructions to the file at path. The file keeps its mode
// and its trailing newline.
func File(path string, ins []decxspec.DiffInstruction) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text := string(data)
	eol := "\n"
	if strings.Contains(text, "\r\n") {
		eol = "\r\n"
	}
	nl := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	if lines, err = Lines(lines, ins...); err != nil {
		var tnf *TargetNotFoundError
		if errors.As(err, &tnf) {
			tnf.File = path
		}
		return err
	}
	text = strings.Join(lines, eol)
	if nl {
		text += eol
	}
	return os.WriteFile(path, []byte(text), stat.Mode().Perm())
}

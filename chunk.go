package decxspec

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TestChunk is a named test read from a specification file.
type TestChunk struct {
	File   string
	Name   string
	Pos    SourcePosition
	Expect Expectation
	Diffs  []FileDiff
	// Error is set for Failure tests.
	Error *ErrorChecker
	// Checkers are the matrix sections written inline into the chunk.
	Checkers []Checker
}

// chunk is a run of lines separated from its neighbours by at least two
// blank lines.
type chunk struct {
	first int
	lines []string
}

func readChunks(file string, r io.Reader) ([]chunk, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return splitChunks(NewLexer(file, string(text)).lines), nil
}

func splitChunks(lines []string) (chunks []chunk) {
	var (
		cur    *chunk
		blanks int
	)
	for i, l := range lines {
		if isBlank(l) {
			blanks++
			continue
		}
		if cur != nil && blanks >= 2 {
			chunks = append(chunks, *cur)
			cur = nil
		}
		if cur == nil {
			cur = &chunk{first: i + 1}
		} else {
			cur.lines = append(cur.lines, lines[i-blanks:i]...)
		}
		cur.lines = append(cur.lines, l)
		blanks = 0
	}
	if cur != nil {
		chunks = append(chunks, *cur)
	}
	return chunks
}

func parseTestHeader(line string) (Expectation, string, bool) {
	text := strings.TrimSpace(line)
	if name, ok := strings.CutPrefix(text, "Success:"); ok {
		return ExpectSuccess, strings.TrimSpace(name), true
	}
	if name, ok := strings.CutPrefix(text, "Failure:"); ok {
		return ExpectFailure, strings.TrimSpace(name), true
	}
	return 0, "", false
}

type directiveKind int

const (
	noDirective directiveKind = iota
	testDirective
	sectionDirective
	diffDirective
	errorDirective
)

type directive struct {
	kind    directiveKind
	section SectionKind
	file    string
	persist bool
	code    int
}

// parseDirective recognizes the lines that open a block inside a test
// chunk.
func parseDirective(line string) (d directive, err error) {
	text := strings.TrimSpace(line)
	if _, _, ok := parseTestHeader(text); ok {
		return directive{kind: testDirective}, nil
	}
	if k, ok := isSectionHeader(text); ok {
		return directive{kind: sectionDirective, section: k}, nil
	}
	if rest, ok := strings.CutPrefix(text, "diff ("); ok {
		file, tail, ok := strings.Cut(rest, "):")
		if !ok {
			return d, fmt.Errorf("malformed diff header '%s', expect 'diff (<file>):'", text)
		}
		d = directive{kind: diffDirective, file: strings.TrimSpace(file)}
		if d.file == "" {
			return d, fmt.Errorf("diff header without file name")
		}
		switch tail = strings.TrimSpace(tail); tail {
		case "":
		case "PERSIST":
			d.persist = true
		default:
			return d, fmt.Errorf("unexpected '%s' after diff (%s):", tail, d.file)
		}
		return d, nil
	}
	if rest, ok := strings.CutPrefix(text, "error ("); ok {
		code, tail, ok := strings.Cut(rest, "):")
		if !ok {
			return d, fmt.Errorf("malformed error header '%s', expect 'error (<code>):'", text)
		}
		d = directive{kind: errorDirective}
		if d.code, err = strconv.Atoi(strings.TrimSpace(code)); err != nil {
			return d, fmt.Errorf("invalid error code '%s'", strings.TrimSpace(code))
		}
		if tail = strings.TrimSpace(tail); tail != "" {
			return d, fmt.Errorf("unexpected '%s' after error (%d):", tail, d.code)
		}
		return d, nil
	}
	return directive{}, nil
}

// parseChunk returns the checker of a standalone section chunk or the test
// of a test chunk.
func parseChunk(file string, c chunk) (*TestChunk, Checker, error) {
	head := c.lines[0]
	pos := SourcePosition{File: file, Line: c.first}
	if _, ok := LookupSection(head); ok {
		chk, err := ParseSection(newChunkLexer(file, c.first, c.lines))
		return nil, chk, sectionError(err, c.lines)
	}
	expect, name, ok := parseTestHeader(head)
	if !ok {
		return nil, nil, specErrorf(pos, c.lines, "unrecognized chunk type")
	}
	t := &TestChunk{File: file, Name: name, Pos: pos, Expect: expect}
	if len(c.lines) == 1 {
		if expect == ExpectFailure {
			return nil, nil, specErrorf(pos, c.lines,
				"not enough information provided in failure test chunk")
		}
		return t, nil, nil
	}
	if err := t.parseBody(c); err != nil {
		return nil, nil, err
	}
	if expect == ExpectFailure && t.Error == nil {
		return nil, nil, specErrorf(pos, c.lines, "failure test '%s' without error block", name)
	}
	if expect == ExpectSuccess && t.Error != nil {
		return nil, nil, specErrorf(pos, c.lines, "success test '%s' with error block", name)
	}
	return t, nil, nil
}

// parseBody reads the blocks that follow the test header. Each block runs
// up to the next directive or the end of the chunk.
func (t *TestChunk) parseBody(c chunk) error {
	var (
		kind    = noDirective
		diff    *diffBuilder
		errCode int
		errMsg  []string
		secLine int
		secBody []string
	)
	closeBlock := func() error {
		switch kind {
		case diffDirective:
			if err := diff.finish(); err != nil {
				return err
			}
			t.Diffs = append(t.Diffs, *diff.diff)
		case errorDirective:
			if t.Error != nil {
				return specErrorf(t.Pos, c.lines, "more than one error block in test '%s'", t.Name)
			}
			t.Error = &ErrorChecker{
				Code:    errCode,
				Message: strings.TrimSpace(strings.Join(errMsg, "\n")),
			}
		case sectionDirective:
			chk, err := ParseSection(newChunkLexer(t.File, secLine, secBody))
			if err != nil {
				return sectionError(err, c.lines)
			}
			t.Checkers = append(t.Checkers, chk)
		}
		return nil
	}

	for i := 1; i < len(c.lines); i++ {
		line := c.lines[i]
		pos := SourcePosition{File: t.File, Line: c.first + i}
		d, err := parseDirective(line)
		if err != nil {
			return specErrorf(pos, nil, "%s", err)
		}
		if d.kind == noDirective {
			switch kind {
			case diffDirective:
				err = diff.add(line, pos)
			case errorDirective:
				errMsg = append(errMsg, strings.TrimSpace(line))
			case sectionDirective:
				secBody = append(secBody, line)
			default:
				if !isBlank(line) {
					err = specErrorf(pos, c.lines, "unexpected line outside of any block: '%s'",
						strings.TrimSpace(line))
				}
			}
			if err != nil {
				return err
			}
			continue
		}
		if err = closeBlock(); err != nil {
			return err
		}
		switch kind = d.kind; kind {
		case testDirective:
			return specErrorf(pos, c.lines,
				"test header inside of test chunk '%s', separate tests by two blank lines", t.Name)
		case diffDirective:
			diff = &diffBuilder{diff: &FileDiff{File: d.file, Persist: d.persist, Pos: pos}}
		case errorDirective:
			errCode, errMsg = d.code, nil
		case sectionDirective:
			secLine, secBody = pos.Line, []string{line}
		}
	}
	return closeBlock()
}

// sectionError turns a malformed section header into an error of the
// specification. Other errors are returned unchanged.
func sectionError(err error, chunk []string) error {
	var sfe *SectionFormatError
	if !errors.As(err, &sfe) {
		return err
	}
	e := specErrorf(sfe.Pos, chunk, "%s section: %s", sfe.Keyword, sfe.Msg)
	e.Err = sfe
	return e
}

// ParseSections reads a file that only consists of matrix sections.
func ParseSections(file string, r io.Reader) ([]Checker, error) {
	chunks, err := readChunks(file, r)
	if err != nil {
		return nil, err
	}
	var res []Checker
	for _, c := range chunks {
		t, chk, err := parseChunk(file, c)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return nil, specErrorf(t.Pos, c.lines, "test chunk in section file")
		}
		res = append(res, chk)
	}
	return res, nil
}

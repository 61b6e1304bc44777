package decxspec

import (
	"fmt"
	"strings"
	"unicode"
)

// SectionKind identifies the matrix sections of a specification.
type SectionKind int

const (
	SectionAdjacency SectionKind = iota
	SectionRates
	SectionDistribution

	numSectionKinds
)

// Automaton consumes the body lines of one section and builds the checker
// for it.
type Automaton interface {
	// Feed consumes at least one line from lex.
	Feed(lex *Lexer) error
	// Terminate is called once the section ended.
	Terminate() (Checker, error)
}

var sectionTable = [numSectionKinds]struct {
	keyword   string
	automaton func(pos SourcePosition) Automaton
}{
	SectionAdjacency: {
		keyword: "adjacency",
		automaton: func(pos SourcePosition) Automaton {
			return newMatricesAutomaton(&adjacencyFormat, pos)
		},
	},
	SectionRates: {
		keyword: "rates",
		automaton: func(pos SourcePosition) Automaton {
			return newMatricesAutomaton(&ratesFormat, pos)
		},
	},
	SectionDistribution: {
		keyword: "distribution",
		automaton: func(pos SourcePosition) Automaton {
			return &distributionAutomaton{chk: &DistributionChecker{Pos: pos}}
		},
	},
}

// SectionKinds returns all known section kinds in declaration order.
func SectionKinds() []SectionKind {
	res := make([]SectionKind, numSectionKinds)
	for i := range res {
		res[i] = SectionKind(i)
	}
	return res
}

func (k SectionKind) String() string {
	if k < 0 || k >= numSectionKinds {
		return fmt.Sprintf("section(%d)", int(k))
	}
	return sectionTable[k].keyword
}

// ParseSectionKind maps a section keyword to its kind.
func ParseSectionKind(keyword string) (SectionKind, error) {
	for k := range sectionTable {
		if sectionTable[k].keyword == keyword {
			return SectionKind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown section keyword '%s'", keyword)
}

// LookupSection recognizes a line that introduces a section. The line only
// has to start with the keyword; header syntax is checked by Reader.Match.
func LookupSection(line string) (SectionKind, bool) {
	word := strings.TrimSpace(line)
	if i := strings.IndexFunc(word, func(r rune) bool {
		return r == ':' || unicode.IsSpace(r)
	}); i >= 0 {
		word = word[:i]
	}
	k, err := ParseSectionKind(word)
	return k, err == nil
}

// isSectionHeader is the strict form used inside test chunks where a loose
// match could hit an edited input line.
func isSectionHeader(line string) (SectionKind, bool) {
	word, ok := strings.CutSuffix(strings.TrimSpace(line), ":")
	if !ok {
		return 0, false
	}
	k, err := ParseSectionKind(word)
	return k, err == nil
}

// Reader checks the header of a section and creates its automaton.
type Reader struct {
	Kind SectionKind
}

// Match consumes the header line "<keyword>:" and the blank line after it.
func (rd Reader) Match(lex *Lexer) (Automaton, error) {
	kw := rd.Kind.String()
	pos := lex.LStrip().Context()
	line, ok := lex.ReadLine()
	if !ok {
		return nil, &SectionFormatError{Pos: pos, Keyword: kw, Msg: "missing header"}
	}
	rest, ok := strings.CutPrefix(line, kw)
	if !ok {
		return nil, &SectionFormatError{
			Pos:     pos,
			Keyword: kw,
			Msg:     fmt.Sprintf("expect header '%s:', have '%s'", kw, strings.TrimSpace(line)),
		}
	}
	tail, ok := strings.CutPrefix(rest, ":")
	if !ok {
		return nil, &SectionFormatError{
			Pos:     pos,
			Keyword: kw,
			Msg:     fmt.Sprintf("missing colon after '%s'", kw),
		}
	}
	if !isBlank(tail) {
		return nil, &SectionFormatError{
			Pos:     pos,
			Keyword: kw,
			Msg:     fmt.Sprintf("unexpected '%s' after '%s:'", strings.TrimSpace(tail), kw),
		}
	}
	if !lex.FindEmptyLine() {
		return nil, &SectionFormatError{
			Pos:     lex.Context(),
			Keyword: kw,
			Msg:     fmt.Sprintf("expect blank line after '%s:'", kw),
		}
	}
	lex.ReadLine()
	return sectionTable[rd.Kind].automaton(pos), nil
}

// ParseSection reads a complete section from lex. The section ends with
// the input of lex.
func ParseSection(lex *Lexer) (Checker, error) {
	head, ok := lex.Peek()
	if !ok {
		return nil, specErrorf(lex.Context(), nil, "empty section")
	}
	kind, ok := LookupSection(head)
	if !ok {
		return nil, specErrorf(lex.Context(), nil,
			"not a section header: '%s'",
			strings.TrimSpace(head),
		)
	}
	atm, err := Reader{Kind: kind}.Match(lex)
	if err != nil {
		return nil, err
	}
	for !lex.EOF() {
		if err = atm.Feed(lex); err != nil {
			return nil, err
		}
	}
	return atm.Terminate()
}

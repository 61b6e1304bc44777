package decxspec

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var distributionHeader = regexp.MustCompile(`\nDistribution (.*?):`)

// DistributionChecker checks the single distribution matrix the program
// displays. Areas and species order is significant.
type DistributionChecker struct {
	Areas   []string
	Species []string
	Data    [][]int
	Pos     SourcePosition
}

// DistributionOutput is a distribution matrix as the program displayed it.
type DistributionOutput struct {
	Areas   []string
	Species []string
	Data    [][]int
}

// ParseDistributionOutput reads the distribution matrix from program output.
// Names are NFC normalized like specification text.
func ParseDistributionOutput(stdout []byte) (*DistributionOutput, error) {
	out := norm.NFC.String(string(stdout))
	loc := distributionHeader.FindStringIndex(out)
	if loc == nil {
		return nil, fmt.Errorf("missing distribution header /%s/", distributionHeader)
	}
	lines := strings.Split(strings.TrimSpace(out[loc[1]:]), "\n")
	res := &DistributionOutput{Areas: strings.Fields(lines[0])}
	for i, line := range lines[1:] {
		sp, data, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("distribution line %d: missing ':' after species in '%s'", i+1, line)
		}
		row := []int{}
		for _, s := range strings.Fields(data) {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("distribution line %d: %w", i+1, err)
			}
			row = append(row, v)
		}
		res.Species = append(res.Species, strings.TrimSpace(sp))
		res.Data = append(res.Data, row)
	}
	return res, nil
}

func (c *DistributionChecker) Check(res *ProcessResult) error {
	out, err := ParseDistributionOutput(res.Stdout)
	if err != nil {
		return failuref("could not find distribution display in output:\n%s\n%s%s",
			res.Stdout,
			err,
			stderrNote(res),
		)
	}
	if !slices.Equal(out.Areas, c.Areas) {
		return failuref("expected to find distribution areas:\n%s\nfound instead:\n%s",
			strings.Join(c.Areas, " "),
			strings.Join(out.Areas, " "),
		)
	}
	if !slices.Equal(out.Species, c.Species) {
		return failuref("expected to find distribution species:\n%s\nfound instead:\n%s",
			strings.Join(c.Species, " "),
			strings.Join(out.Species, " "),
		)
	}
	if !slices.EqualFunc(out.Data, c.Data, func(a, b []int) bool {
		return slices.Equal(a, b)
	}) {
		return failuref("expected to find distribution data:\n%s\nfound instead:\n%s",
			renderDistribution(c.Data),
			renderDistribution(out.Data),
		)
	}
	return nil
}

func renderDistribution(data [][]int) string {
	var sb strings.Builder
	for i, row := range data {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("  ")
		for j, v := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(v))
		}
	}
	return sb.String()
}

type distributionAutomaton struct {
	chk *DistributionChecker
}

func (a *distributionAutomaton) Feed(lex *Lexer) error {
	if lex.FindEmptyLine() {
		lex.ReadLine()
		return nil
	}
	c := a.chk
	pos := lex.LStrip().Context()
	line, _ := lex.ReadLine()
	fields := strings.Fields(line)

	if c.Areas == nil {
		c.Areas = fields
		return nil
	}

	sp, ok := strings.CutSuffix(fields[0], ":")
	if !ok {
		return parseErrorf(pos, "end species name '%s' with colon ':'", fields[0])
	}
	row := make([]int, 0, len(fields)-1)
	for _, s := range fields[1:] {
		switch s {
		case "0":
			row = append(row, 0)
		case "1":
			row = append(row, 1)
		default:
			return parseErrorf(pos, "'%s' is not valid matrix data, use '0' or '1'", s)
		}
	}
	if len(row) != len(c.Areas) {
		return parseErrorf(pos, "expected %d data in line, found %d", len(c.Areas), len(row))
	}
	c.Species = append(c.Species, sp)
	c.Data = append(c.Data, row)
	return nil
}

func (a *distributionAutomaton) Terminate() (Checker, error) {
	if a.chk.Areas == nil {
		return nil, parseErrorf(a.chk.Pos, "distribution section declares no areas")
	}
	return a.chk, nil
}

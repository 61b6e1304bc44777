package decxspec

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PeriodMatrix holds the values of one period, rows and columns in areas
// order.
type PeriodMatrix[V comparable] [][]V

func newPeriodMatrix[V comparable](n int) PeriodMatrix[V] {
	m := make(PeriodMatrix[V], n)
	for i := range m {
		m[i] = make([]V, n)
	}
	return m
}

// legacyOne is how the legacy rates display shows the value 1.
const legacyOne = " . "

// matrixFormat has everything that differs between adjacency and rates
// matrices.
type matrixFormat[V comparable] struct {
	keyword string
	title   string
	marker  string
	header  *regexp.Regexp
	// Rows only hold values up to the diagonal and are mirrored.
	triangular bool
	// Legacy periods start with an areas header and rows with the area name.
	rowNames bool
	spec     func(string) (V, error)
	legacy   func(string) (V, error)
	full     func(string) (V, error)
	format   func(V) string
}

var adjacencyFormat = matrixFormat[string]{
	keyword:    "adjacency",
	title:      "Adjacency",
	marker:     "Reading adjacency matrix file...\n",
	header:     regexp.MustCompile(`\nAdjacency (.*?):\n`),
	triangular: true,
	rowNames:   true,
	spec:       parseBinary,
	legacy:     func(s string) (string, error) { return s, nil },
	full:       func(s string) (string, error) { return s, nil },
	format:     func(s string) string { return s },
}

var ratesFormat = matrixFormat[float64]{
	keyword: "rates",
	title:   "Rates",
	marker:  "Reading rate matrix file\n",
	header:  regexp.MustCompile(`\nRates (.*?):\n`),
	spec:    parseSpecRate,
	legacy: func(s string) (float64, error) {
		if s == legacyOne {
			return 1, nil
		}
		return parseRate(s)
	},
	full:   parseRate,
	format: formatRate,
}

func parseBinary(s string) (string, error) {
	if s != "0" && s != "1" {
		return "", fmt.Errorf("'%s' is not valid adjacency data, use '0' or '1'", s)
	}
	return s, nil
}

func parseRate(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected floating number, found '%s' instead", s)
	}
	return f, nil
}

// parseSpecRate rejects NaN which never equals any displayed rate.
func parseSpecRate(s string) (float64, error) {
	f, err := parseRate(s)
	if err == nil && math.IsNaN(f) {
		return 0, fmt.Errorf("'%s' is not a valid rate", s)
	}
	return f, err
}

func formatRate(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// split cuts the NFC normalized program output into the legacy and the full
// display.
func (f *matrixFormat[V]) split(stdout string) (legacy, full string, err error) {
	_, out, ok := strings.Cut(norm.NFC.String(stdout), f.marker)
	if !ok {
		return "", "", fmt.Errorf("missing introduction %q", f.marker)
	}
	loc := f.header.FindStringIndex(out)
	if loc == nil {
		return "", "", fmt.Errorf("missing full display header /%s/", f.header)
	}
	return out[:loc[0]], out[loc[1]:], nil
}

// MatricesChecker checks the adjacency or rates matrices the program
// displays for every period.
type MatricesChecker[V comparable] struct {
	Areas   []string
	Periods []PeriodMatrix[V]
	Pos     SourcePosition
	format  *matrixFormat[V]
}

type (
	AdjacencyChecker = MatricesChecker[string]
	RatesChecker     = MatricesChecker[float64]
)

func (c *MatricesChecker[V]) Check(res *ProcessResult) error {
	legacy, full, err := c.format.split(string(res.Stdout))
	if err != nil {
		return failuref("could not find %s legacy and full display in output:\n%s\n%s%s",
			c.format.keyword,
			res.Stdout,
			err,
			stderrNote(res),
		)
	}
	if msg := c.checkLegacy(legacy); msg != "" {
		return &TestFailure{Msg: msg}
	}
	if msg := c.checkFull(full); msg != "" {
		return &TestFailure{Msg: msg}
	}
	return nil
}

// checkLegacy consumes the legacy display period by period. It returns an
// empty string if the display matches.
func (c *MatricesChecker[V]) checkLegacy(legacy string) string {
	kw := c.format.keyword
	fail := func(format string, a ...any) string {
		return fmt.Sprintf(format, a...) + "\nLegacy display:\n" + legacy
	}
	leg := legacy
	for p, period := range c.Periods {
		if c.format.rowNames {
			header, rest, _ := strings.Cut(leg, "\n\n")
			expected := "\t" + strings.Join(c.Areas, "\t")
			if header != expected {
				return fail("Invalid header in %s legacy display, period %d. Expected:\n%q\nGot:\n%q\n",
					kw, p, expected, header)
			}
			leg = rest
		}
		for i, row := range period {
			if c.format.rowNames {
				name, rest, _ := strings.Cut(leg, "\t")
				if name != c.Areas[i] {
					return fail("Invalid area name in %s legacy display, period %d, row %d. Expected: %q. Got %q.",
						kw, p, i, c.Areas[i], name)
				}
				leg = rest
			}
			n := len(row)
			if c.format.triangular {
				n = i + 1
			}
			for j := 0; j < n; j++ {
				tok, rest, ok := strings.Cut(leg, "\t")
				if !ok || strings.Contains(tok, "\n") {
					return fail("Missing %s value in legacy display, period %d, row %d, column %d. Expected: %s.",
						kw, p, i, j, c.format.format(row[j]))
				}
				v, err := c.format.legacy(tok)
				if err != nil || v != row[j] {
					return fail("Invalid %s value in legacy display, period %d, row %d, column %d. Expected: %s. Got %q.",
						kw, p, i, j, c.format.format(row[j]), tok)
				}
				leg = rest
			}
			rest, tail, _ := strings.Cut(leg, "\n")
			if rest != "" {
				return fail("Unexpected data after end of %s legacy display line, period %d, row %d: %q",
					kw, p, i, rest)
			}
			leg = tail
		}
		if leg != "" {
			rest, tail, _ := strings.Cut(leg, "\n")
			if rest != "" {
				return fail("Unexpected data after end of %s legacy display matrix, period %d: %q",
					kw, p, rest)
			}
			leg = tail
		}
	}
	if leg != "" {
		return fmt.Sprintf("Unexpected data after end of %s legacy display: %q.", kw, leg)
	}
	return ""
}

// splitFullDisplay returns the rows of each period. Only empty leftovers at
// the ends are dropped, an empty period in between has no rows.
func splitFullDisplay(full string) [][]string {
	blocks := strings.Split(strings.TrimSpace(full), "---")
	res := make([][]string, 0, len(blocks))
	for i, block := range blocks {
		block = strings.TrimSpace(block)
		switch {
		case block != "":
			res = append(res, strings.Split(block, "\n"))
		case i > 0 && i < len(blocks)-1:
			res = append(res, []string{})
		}
	}
	return res
}

// checkFull compares the full display block by block. It returns an empty
// string if the display matches.
func (c *MatricesChecker[V]) checkFull(full string) string {
	blocks := splitFullDisplay(full)
	mismatch := func(format string, a ...any) string {
		return fmt.Sprintf("%s matrices full data mismatch, %s. Expected:\n%s\nActual:\n%s",
			c.format.title,
			fmt.Sprintf(format, a...),
			c.render(),
			full,
		)
	}
	for p, period := range c.Periods {
		if p >= len(blocks) {
			return mismatch("missing period %d: expected %d periods, found %d",
				p, len(c.Periods), len(blocks))
		}
		rows := blocks[p]
		if len(rows) != len(period) {
			return mismatch("period %d has %d rows, expected %d", p, len(rows), len(period))
		}
		for i, row := range rows {
			toks := strings.Fields(row)
			if len(toks) != len(period[i]) {
				return mismatch("period %d, row %d has %d values, expected %d",
					p, i, len(toks), len(period[i]))
			}
			for j, tok := range toks {
				v, err := c.format.full(tok)
				if err != nil {
					return mismatch("period %d, row %d, column %d: %s", p, i, j, err)
				}
				if v != period[i][j] {
					return mismatch("period %d, row %d, column %d: expected %s, got %s",
						p, i, j, c.format.format(period[i][j]), tok)
				}
			}
		}
	}
	if len(blocks) > len(c.Periods) {
		return fmt.Sprintf("Trailing periods in %s full display: expected %d periods, found %d. Expected:\n%s\nActual:\n%s",
			c.format.keyword,
			len(c.Periods),
			len(blocks),
			c.render(),
			full,
		)
	}
	return ""
}

func (c *MatricesChecker[V]) render() string {
	return renderPeriods(c.Periods, c.format.format)
}

func renderPeriods[V comparable](periods []PeriodMatrix[V], format func(V) string) string {
	var sb strings.Builder
	for p, period := range periods {
		if p > 0 {
			sb.WriteString("---\n")
		}
		for _, row := range period {
			for j, v := range row {
				if j > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(format(v))
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

type matricesAutomaton[V comparable] struct {
	chk    *MatricesChecker[V]
	period PeriodMatrix[V] // nil while waiting for a period header
	row    int
}

func newMatricesAutomaton[V comparable](f *matrixFormat[V], pos SourcePosition) *matricesAutomaton[V] {
	return &matricesAutomaton[V]{chk: &MatricesChecker[V]{Pos: pos, format: f}}
}

func (a *matricesAutomaton[V]) newPeriod() {
	a.period = newPeriodMatrix[V](len(a.chk.Areas))
	a.chk.Periods = append(a.chk.Periods, a.period)
	a.row = 0
}

func (a *matricesAutomaton[V]) Feed(lex *Lexer) error {
	c := a.chk
	if lex.FindEmptyLine() {
		pos := lex.Context()
		lex.ReadLine()
		if a.period != nil {
			if a.row < len(c.Areas) {
				return parseErrorf(pos, "period %d ends after %d rows, expected %d",
					len(c.Periods)-1, a.row, len(c.Areas))
			}
			a.period = nil
		}
		return nil
	}
	pos := lex.LStrip().Context()
	line, _ := lex.ReadLine()
	fields := strings.Fields(line)

	if c.Areas == nil {
		c.Areas = fields
		a.newPeriod()
		return nil
	}
	if a.period == nil {
		if !slices.Equal(fields, c.Areas) {
			return parseErrorf(pos,
				"invalid areas header in period %d: [%s], expected it to be like the first one: [%s]",
				len(c.Periods),
				strings.Join(fields, " "),
				strings.Join(c.Areas, " "),
			)
		}
		a.newPeriod()
		return nil
	}

	p, i := len(c.Periods)-1, a.row
	if i >= len(c.Areas) {
		return parseErrorf(pos, "unexpected row '%s' in period %d, all %d areas are given",
			strings.TrimSpace(line), p, len(c.Areas))
	}
	name, values := strings.TrimSuffix(fields[0], ":"), fields[1:]
	if name != c.Areas[i] {
		return parseErrorf(pos, "invalid area name in period %d: '%s', expected same order as before: '%s'",
			p, name, c.Areas[i])
	}
	n := len(c.Areas)
	if c.format.triangular {
		n = i + 1
	}
	if len(values) != n {
		return parseErrorf(pos, "expected %d values on row %d, period %d, found %d instead",
			n, i, p, len(values))
	}
	for j, s := range values {
		v, err := c.format.spec(s)
		if err != nil {
			return &ParseError{Pos: pos, Msg: err.Error()}
		}
		a.period[i][j] = v
		if c.format.triangular {
			a.period[j][i] = v
		}
	}
	a.row++
	return nil
}

func (a *matricesAutomaton[V]) Terminate() (Checker, error) {
	c := a.chk
	if c.Areas == nil {
		return nil, parseErrorf(c.Pos, "%s section declares no areas", c.format.keyword)
	}
	if a.period != nil && a.row < len(c.Areas) {
		return nil, parseErrorf(c.Pos, "period %d ends after %d rows, expected %d",
			len(c.Periods)-1, a.row, len(c.Areas))
	}
	return c, nil
}

// MatrixOutput is an adjacency or rates block as the program displayed it.
// Rates are displayed without area names, Areas is nil for them.
type MatrixOutput[V comparable] struct {
	Areas  []string
	Legacy []PeriodMatrix[V]
	Full   []PeriodMatrix[V]
}

// ParseAdjacencyOutput reads both adjacency displays from program output.
func ParseAdjacencyOutput(stdout []byte) (*MatrixOutput[string], error) {
	return adjacencyFormat.parseOutput(string(stdout))
}

// ParseRatesOutput reads both rates displays from program output.
func ParseRatesOutput(stdout []byte) (*MatrixOutput[float64], error) {
	return ratesFormat.parseOutput(string(stdout))
}

func (f *matrixFormat[V]) parseOutput(stdout string) (res *MatrixOutput[V], err error) {
	legacy, full, err := f.split(stdout)
	if err != nil {
		return nil, err
	}
	res = new(MatrixOutput[V])
	if res.Areas, res.Legacy, err = f.parseLegacy(legacy); err != nil {
		return nil, fmt.Errorf("%s legacy display: %w", f.keyword, err)
	}
	if res.Full, err = f.parseFull(full); err != nil {
		return nil, fmt.Errorf("%s full display: %w", f.keyword, err)
	}
	return res, nil
}

func (f *matrixFormat[V]) parseLegacy(legacy string) (areas []string, periods []PeriodMatrix[V], err error) {
	var (
		cur PeriodMatrix[V]
		row int
	)
	for ln, line := range strings.Split(legacy, "\n") {
		if isBlank(line) {
			if !f.rowNames {
				cur = nil
			}
			continue
		}
		cells := strings.Split(strings.TrimSuffix(line, "\t"), "\t")
		if f.rowNames && cells[0] == "" {
			switch hdr := cells[1:]; {
			case areas == nil:
				areas = hdr
			case !slices.Equal(areas, hdr):
				return nil, nil, fmt.Errorf("line %d: areas header [%s] differs from [%s]",
					ln+1, strings.Join(hdr, " "), strings.Join(areas, " "))
			}
			cur = newPeriodMatrix[V](len(areas))
			periods = append(periods, cur)
			row = 0
			continue
		}
		if cur == nil {
			if f.rowNames {
				return nil, nil, fmt.Errorf("line %d: row before areas header", ln+1)
			}
			cur = newPeriodMatrix[V](len(cells))
			periods = append(periods, cur)
			row = 0
		}
		if f.rowNames {
			if row >= len(areas) || cells[0] != areas[row] {
				return nil, nil, fmt.Errorf("line %d: unexpected row name '%s'", ln+1, cells[0])
			}
			cells = cells[1:]
		}
		if row >= len(cur) {
			return nil, nil, fmt.Errorf("line %d: too many rows", ln+1)
		}
		n := len(cur)
		if f.triangular {
			n = row + 1
		}
		if len(cells) != n {
			return nil, nil, fmt.Errorf("line %d: %d values, expected %d", ln+1, len(cells), n)
		}
		for j, s := range cells {
			v, err := f.legacy(s)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", ln+1, err)
			}
			cur[row][j] = v
			if f.triangular {
				cur[j][row] = v
			}
		}
		row++
	}
	return areas, periods, nil
}

func (f *matrixFormat[V]) parseFull(full string) ([]PeriodMatrix[V], error) {
	blocks := splitFullDisplay(full)
	res := make([]PeriodMatrix[V], 0, len(blocks))
	for p, rows := range blocks {
		m := make(PeriodMatrix[V], len(rows))
		for i, row := range rows {
			for _, tok := range strings.Fields(row) {
				v, err := f.full(tok)
				if err != nil {
					return nil, fmt.Errorf("period %d, row %d: %w", p, i, err)
				}
				m[i] = append(m[i], v)
			}
		}
		res = append(res, m)
	}
	return res, nil
}

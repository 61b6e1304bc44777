package decxspec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Prepare drafts matrix sections from what the program displayed. The
// draft is meant to be reviewed before it is used as expectation.
type Prepare struct {
	// Kinds of sections to write. If empty, every matrix found in the output
	// is written.
	Kinds []SectionKind
	// Areas names the rows of rates matrices, which the program displays
	// without names.
	Areas []string
}

// Text writes one section per kind, separated by two blank lines.
func (p Prepare) Text(w io.Writer, stdout []byte) error {
	kinds := p.Kinds
	if len(kinds) == 0 {
		kinds = DetectSections(stdout)
		if len(kinds) == 0 {
			return errors.New("no matrix display found in output")
		}
	}
	for i, k := range kinds {
		if i > 0 {
			if _, err := io.WriteString(w, "\n\n"); err != nil {
				return err
			}
		}
		var err error
		switch k {
		case SectionAdjacency:
			err = p.adjacency(w, stdout)
		case SectionRates:
			err = p.rates(w, stdout)
		case SectionDistribution:
			err = p.distribution(w, stdout)
		default:
			err = fmt.Errorf("cannot prepare %s section", k)
		}
		if err != nil {
			return fmt.Errorf("prepare %s: %w", k, err)
		}
	}
	return nil
}

// DetectSections returns the kinds of matrices displayed in stdout.
func DetectSections(stdout []byte) (kinds []SectionKind) {
	if bytes.Contains(stdout, []byte(adjacencyFormat.marker)) {
		kinds = append(kinds, SectionAdjacency)
	}
	if bytes.Contains(stdout, []byte(ratesFormat.marker)) {
		kinds = append(kinds, SectionRates)
	}
	if distributionHeader.Match(stdout) {
		kinds = append(kinds, SectionDistribution)
	}
	return kinds
}

func (p Prepare) adjacency(w io.Writer, stdout []byte) error {
	out, err := ParseAdjacencyOutput(stdout)
	if err != nil {
		return err
	}
	if len(out.Areas) == 0 {
		return errors.New("no areas in legacy display")
	}
	return writeMatrices(w, SectionAdjacency, out.Areas, out.Full, true, func(s string) string { return s })
}

func (p Prepare) rates(w io.Writer, stdout []byte) error {
	out, err := ParseRatesOutput(stdout)
	if err != nil {
		return err
	}
	if len(p.Areas) == 0 {
		return errors.New("rates need area names")
	}
	return writeMatrices(w, SectionRates, p.Areas, out.Full, false, formatRate)
}

func writeMatrices[V comparable](
	w io.Writer,
	kind SectionKind,
	areas []string,
	periods []PeriodMatrix[V],
	triangular bool,
	format func(V) string,
) error {
	if len(periods) == 0 {
		return errors.New("no periods in full display")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s:\n", kind)
	for p, period := range periods {
		if len(period) != len(areas) {
			return fmt.Errorf("period %d has %d rows for %d areas", p, len(period), len(areas))
		}
		fmt.Fprintf(tw, "\n\t%s\n", strings.Join(areas, "\t"))
		for i, row := range period {
			n := len(row)
			if triangular {
				n = i + 1
			}
			if len(row) != len(areas) {
				return fmt.Errorf("period %d, row %d has %d values for %d areas", p, i, len(row), len(areas))
			}
			fmt.Fprint(tw, areas[i])
			for _, v := range row[:n] {
				fmt.Fprint(tw, "\t", format(v))
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}

func (p Prepare) distribution(w io.Writer, stdout []byte) error {
	out, err := ParseDistributionOutput(stdout)
	if err != nil {
		return err
	}
	if len(out.Areas) == 0 {
		return errors.New("no areas in distribution display")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "%s:\n\n\t%s\n", SectionDistribution, strings.Join(out.Areas, "\t"))
	for i, sp := range out.Species {
		fmt.Fprintf(tw, "%s:", sp)
		for _, v := range out.Data[i] {
			fmt.Fprint(tw, "\t", strconv.Itoa(v))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

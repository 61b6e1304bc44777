package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fractalqb/decxspec"
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	fileStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type summary struct {
	w io.Writer
}

func (s summary) verdict(v decxspec.Verdict) {
	mark := passStyle.Render("PASS")
	if !v.Passed() {
		mark = failStyle.Render("FAIL")
	}
	fmt.Fprintf(s.w, "Test: %s.. %s\n", v.Test, mark)
}

// final lists every failure and every specification file that could not
// be read to the end.
func (s summary) final(verdicts []decxspec.Verdict, broken []error) {
	var failed []decxspec.Verdict
	for _, v := range verdicts {
		if !v.Passed() {
			failed = append(failed, v)
		}
	}
	fmt.Fprintln(s.w)
	if len(failed) == 0 && len(broken) == 0 {
		fmt.Fprintln(s.w, passStyle.Render(fmt.Sprintf("All %d tests passed.", len(verdicts))))
		return
	}
	fmt.Fprintln(s.w, titleStyle.Render(fmt.Sprintf("%d of %d tests failed:",
		len(failed),
		len(verdicts),
	)))
	for _, v := range failed {
		fmt.Fprintf(s.w, "\n%s %s\n%s\n",
			failStyle.Render(v.Test),
			fileStyle.Render("("+v.Pos.String()+")"),
			indent(v.Err.Msg),
		)
	}
	for _, err := range broken {
		fmt.Fprintf(s.w, "\n%s\n%s\n", failStyle.Render("broken specification"), indent(err.Error()))
	}
}

func indent(msg string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(msg, "\n"), "\n", "\n  ")
}

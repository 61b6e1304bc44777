package decxspec

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ProcessResult is what a single run of the tested program left behind.
type ProcessResult struct {
	Command  string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
	Duration time.Duration
}

// Checker verifies a process result against expectations that were read
// from a specification. A nil result means the check passed, otherwise the
// error is a *TestFailure.
type Checker interface {
	Check(res *ProcessResult) error
}

// Expectation is the kind of a test.
type Expectation int

const (
	ExpectSuccess Expectation = iota
	ExpectFailure
)

func (e Expectation) String() string {
	switch e {
	case ExpectSuccess:
		return "Success"
	case ExpectFailure:
		return "Failure"
	}
	return fmt.Sprintf("expectation(%d)", int(e))
}

// SuccessChecker expects the program to exit with code 0.
type SuccessChecker struct{}

func (SuccessChecker) Check(res *ProcessResult) error {
	if res.ExitCode != 0 {
		return failuref("program failed while expecting a success (error code %d):\n%s",
			res.ExitCode,
			res.Stderr,
		)
	}
	return nil
}

// ErrorChecker expects the program to fail with Code and Message on stderr.
// Messages are compared with normalized white space.
type ErrorChecker struct {
	Code    int
	Message string
}

func (ec ErrorChecker) Check(res *ProcessResult) error {
	if res.ExitCode == 0 {
		return failuref("program succeeded while expecting a failure")
	}
	if res.ExitCode != ec.Code {
		return failuref("program errored out with the wrong code: expected %d, got %d",
			ec.Code,
			res.ExitCode,
		)
	}
	if NormalizeSpace(string(res.Stderr)) != NormalizeSpace(ec.Message) {
		return failuref("program errored with the wrong message, expected:\n%s\ngot:\n%s",
			ec.Message,
			res.Stderr,
		)
	}
	return nil
}

// NormalizeSpace collapses all runs of white space to a single space and
// trims both ends. The result is NFC normalized.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func stderrNote(res *ProcessResult) string {
	if len(res.Stderr) == 0 {
		return ""
	}
	return fmt.Sprintf("\nstderr (%d):\n%s", res.ExitCode, res.Stderr)
}

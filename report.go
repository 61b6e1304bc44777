package decxspec

import (
	"encoding/json"
	"io"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Report summarizes the verdicts of a run for machines.
type Report struct {
	Tests  []ReportEntry `json:"tests"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
}

type ReportEntry struct {
	File    string `json:"file"`
	Test    string `json:"test"`
	Line    int    `json:"line"`
	Passed  bool   `json:"passed"`
	Timeout bool   `json:"timeout,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewReport(verdicts []Verdict) *Report {
	r := &Report{Tests: make([]ReportEntry, 0, len(verdicts))}
	for _, v := range verdicts {
		e := ReportEntry{
			File:   v.File,
			Test:   v.Test,
			Line:   v.Pos.Line,
			Passed: v.Passed(),
		}
		if v.Err != nil {
			e.Message = v.Err.Msg
			e.Timeout = v.Err.Timeout
			r.Failed++
		} else {
			r.Passed++
		}
		r.Tests = append(r.Tests, e)
	}
	return r
}

// WriteJSON writes the report as canonical JSON (RFC 8785). Reports of
// equal runs are byte identical.
func (r *Report) WriteJSON(w io.Writer) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	canon, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return err
	}
	_, err = w.Write(canon)
	return err
}

package decxspec_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/fractalqb/decxspec"
	"github.com/fractalqb/decxspec/edit"
)

// memEditor keeps input files in memory.
type memEditor struct {
	pristine map[string][]string
	files    map[string][]string
	resets   int
}

func newMemEditor(files map[string][]string) *memEditor {
	return &memEditor{pristine: files}
}

func (e *memEditor) Reset() error {
	e.files = make(map[string][]string, len(e.pristine))
	for name, lines := range e.pristine {
		e.files[name] = slices.Clone(lines)
	}
	e.resets++
	return nil
}

func (e *memEditor) Apply(file string, ins []decxspec.DiffInstruction) error {
	lines, ok := e.files[file]
	if !ok {
		return fmt.Errorf("no file %s", file)
	}
	lines, err := edit.Lines(lines, ins...)
	if err != nil {
		return err
	}
	e.files[file] = lines
	return nil
}

// fakeRunner lets run decide what the program does with the edited files.
type fakeRunner struct {
	editor *memEditor
	run    func(ctx context.Context, files map[string][]string) *decxspec.ProcessResult
	seen   [][]string
}

func (r *fakeRunner) Run(ctx context.Context, command string) (*decxspec.ProcessResult, error) {
	r.seen = append(r.seen, slices.Clone(r.editor.files["config.toml"]))
	res := r.run(ctx, r.editor.files)
	res.Command = command
	return res, nil
}

func succeed(context.Context, map[string][]string) *decxspec.ProcessResult {
	return &decxspec.ProcessResult{}
}

func newTestManager(run func(context.Context, map[string][]string) *decxspec.ProcessResult) (*decxspec.Manager, *fakeRunner) {
	ed := newMemEditor(map[string][]string{
		"config.toml": {"foo=bar", "baz=1"},
	})
	rn := &fakeRunner{editor: ed, run: run}
	return decxspec.NewManager("decx config.toml", rn, ed), rn
}

func runSpec(t *testing.T, m *decxspec.Manager, spec string) error {
	t.Helper()
	return m.RunFile(context.Background(), t.Name()+".spec", strings.NewReader(spec))
}

func TestManager_persistentDiff(t *testing.T) {
	m, rn := newTestManager(succeed)
	err := runSpec(t, m, `Success: persist
diff (config.toml): PERSIST
    COMMENT foo=bar


Success: local edit
diff (config.toml):
    COMMENT baz


Success: no diff block
`)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"# foo=bar", "baz=1"},
		{"# foo=bar", "# baz=1"},
		{"# foo=bar", "baz=1"},
	}
	if diff := cmp.Diff(want, rn.seen); diff != "" {
		t.Error(diff)
	}
	if n := len(m.Failures()); n != 0 {
		t.Errorf("%d failures: %+v", n, m.Failures())
	}

	err = m.RunFile(context.Background(), "next.spec", strings.NewReader("Success: next file"))
	if err != nil {
		t.Fatal(err)
	}
	if last := rn.seen[len(rn.seen)-1]; last[0] != "foo=bar" {
		t.Errorf("persistent diff leaked into next file: %v", last)
	}
}

func TestManager_errorMessage(t *testing.T) {
	var stderr string
	m, _ := newTestManager(func(context.Context, map[string][]string) *decxspec.ProcessResult {
		return &decxspec.ProcessResult{ExitCode: 2, Stderr: []byte(stderr)}
	})
	const spec = `Failure: bad input
error (2):
    bad input
`
	stderr = "  bad   input  \n"
	if err := runSpec(t, m, spec); err != nil {
		t.Fatal(err)
	}
	stderr = "bad INPUT"
	if err := runSpec(t, m, spec); err != nil {
		t.Fatal(err)
	}
	res := m.Results()
	if len(res) != 2 {
		t.Fatalf("%d results", len(res))
	}
	if !res[0].Passed() {
		t.Errorf("normalized whitespace failed: %s", res[0].Err)
	}
	if res[1].Passed() {
		t.Error("case insensitive message passed")
	}
}

func TestManager_exitCodes(t *testing.T) {
	code := 0
	m, _ := newTestManager(func(context.Context, map[string][]string) *decxspec.ProcessResult {
		return &decxspec.ProcessResult{ExitCode: code, Stderr: []byte("boom")}
	})
	const spec = "Success: s\n\n\nFailure: f\nerror (3):\n  boom\n"
	code = 1
	if err := runSpec(t, m, spec); err != nil {
		t.Fatal(err)
	}
	for _, v := range m.Results() {
		if v.Passed() {
			t.Errorf("test %s passed with exit code 1", v.Test)
		}
	}
	if !strings.Contains(m.Results()[1].Err.Msg, "expected 3, got 1") {
		t.Errorf("unexpected message: %s", m.Results()[1].Err.Msg)
	}
}

const adjacencyOutput = "Reading adjacency matrix file...\n" +
	"\tA\tB\n\nA\t0\t\nB\t1\t1\t\n" +
	"\nAdjacency (1 period):\n" +
	"0 1\n1 1\n"

func TestManager_pendingSection(t *testing.T) {
	m, _ := newTestManager(func(_ context.Context, files map[string][]string) *decxspec.ProcessResult {
		if files["config.toml"][0] == "foo=bar" {
			return &decxspec.ProcessResult{Stdout: []byte(adjacencyOutput)}
		}
		return &decxspec.ProcessResult{Stdout: []byte("nothing to show")}
	})
	var verdicts []decxspec.Verdict
	m.OnVerdict = func(v decxspec.Verdict) { verdicts = append(verdicts, v) }
	err := runSpec(t, m, `adjacency:

     A B
  A  0
  B  1 1


Success: adjacency shown


adjacency:

     A B
  A  0
  B  1 1


Success: adjacency not shown
diff (config.toml):
    COMMENT foo


Success: no section left
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(verdicts) != 3 {
		t.Fatalf("%d verdicts", len(verdicts))
	}
	if !verdicts[0].Passed() {
		t.Errorf("adjacency shown: %s", verdicts[0].Err)
	}
	if verdicts[1].Passed() {
		t.Error("adjacency not shown passed")
	}
	if !verdicts[2].Passed() {
		t.Errorf("section applied twice: %s", verdicts[2].Err)
	}
	if diff := cmp.Diff(verdicts, m.Results()); diff != "" {
		t.Error(diff)
	}
	if fs := m.Failures(); len(fs) != 1 || fs[0].Test != "adjacency not shown" {
		t.Errorf("wrong failures %+v", fs)
	}
	if verdicts[1].Pos.Line != 18 {
		t.Errorf("wrong position %s", verdicts[1].Pos)
	}
}

func TestManager_timeout(t *testing.T) {
	m, _ := newTestManager(func(ctx context.Context, _ map[string][]string) *decxspec.ProcessResult {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("no deadline")
		}
		return &decxspec.ProcessResult{ExitCode: -1, TimedOut: true}
	})
	m.Timeout = time.Second
	if err := runSpec(t, m, "Success: hangs"); err != nil {
		t.Fatal(err)
	}
	v := m.Results()[0]
	if v.Passed() || !v.Err.Timeout || !errors.Is(v.Err, decxspec.ErrTimeout) {
		t.Errorf("not a timeout: %+v", v.Err)
	}
}

func TestManager_fatalErrors(t *testing.T) {
	t.Run("edit target", func(t *testing.T) {
		m, _ := newTestManager(succeed)
		err := runSpec(t, m, "Success: x\ndiff (config.toml):\n    COMMENT nope\n")
		if !errors.Is(err, decxspec.ErrEditTargetNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})
	t.Run("specification", func(t *testing.T) {
		m, rn := newTestManager(succeed)
		err := runSpec(t, m, "Success: a\n\n\nFailure: b\n\n\nSuccess: c")
		var sfe *decxspec.SpecificationFormatError
		if !errors.As(err, &sfe) {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rn.seen) != 1 {
			t.Errorf("%d runs", len(rn.seen))
		}
	})
	t.Run("parse error", func(t *testing.T) {
		m, _ := newTestManager(succeed)
		err := runSpec(t, m, "adjacency:\n\n  A B\n  A 2\n\n\nSuccess: x")
		var perr *decxspec.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if perr.Pos.Line != 4 {
			t.Errorf("wrong position %s", perr.Pos)
		}
	})
	t.Run("section at end", func(t *testing.T) {
		m, _ := newTestManager(succeed)
		err := runSpec(t, m, "Success: x\n\n\nrates:\n\n  A\n  A 1\n")
		if err == nil {
			t.Error("no error for section without test")
		}
	})
}

func TestManager_Step_canceled(t *testing.T) {
	m, rn := newTestManager(succeed)
	if err := m.Open("t.spec", strings.NewReader("Success: a\n\n\nSuccess: b")); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	more, err := m.Step(ctx)
	if err != nil || !more {
		t.Fatalf("first step: %t, %v", more, err)
	}
	cancel()
	if _, err = m.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error: %v", err)
	}
	if len(rn.seen) != 1 {
		t.Errorf("%d runs", len(rn.seen))
	}
}

func TestManager_decomposedMessage(t *testing.T) {
	const msg = "unknown area Re\u0301union"
	m, _ := newTestManager(func(context.Context, map[string][]string) *decxspec.ProcessResult {
		return &decxspec.ProcessResult{ExitCode: 2, Stderr: []byte(msg + "\n")}
	})
	if err := runSpec(t, m, "Failure: accent\nerror (2):\n    "+msg+"\n"); err != nil {
		t.Fatal(err)
	}
	if v := m.Results()[0]; !v.Passed() {
		t.Error(v.Err)
	}
}

func TestManager_verdictLogLevel(t *testing.T) {
	m, _ := newTestManager(func(context.Context, map[string][]string) *decxspec.ProcessResult {
		return &decxspec.ProcessResult{ExitCode: 1}
	})
	var buf bytes.Buffer
	m.Log = zerolog.New(&buf).Level(zerolog.InfoLevel)
	if err := runSpec(t, m, "Success: fails"); err != nil {
		t.Fatal(err)
	}
	if len(m.Failures()) != 1 {
		t.Fatal("test did not fail")
	}
	if buf.Len() > 0 {
		t.Errorf("logged above debug level: %s", buf.String())
	}
}

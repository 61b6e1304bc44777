// Package spectesting checks DECX output captured in Go tests against
// matrix sections stored as testdata.
//
// Example reads the expected sections from testdata/TestAdjacency.spec:
//
//	func TestAdjacency(t *testing.T) {
//		stdout, _ := exec.Command("decx", "--check-adjacency").Output()
//		spectesting.Error(t, "", stdout)
//	}
//
// Section file:
//
//	adjacency:
//
//	        A  B
//	    A   0
//	    B   1  1
package spectesting

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
		"testing"

	"github.com/fractalqb/decxspec"
)

// When this environment variable is set to a regexp and the name of the
// current test matches, calls to Error or Fatal record the output as new
// section file instead of checking it. E.g.
//
//	DECXSPEC_RECORD=TestAdjacency go test .
const RecordEnv = "DECXSPEC_RECORD"

// GoTestdataDir is the name of Go's default directory for testdata (see go
// help test).
const GoTestdataDir = "testdata"

func Error(t testing.TB, hint string, stdout []byte) error {
	return defaultConfig.Error(t, hint, stdout)
}

func Fatal(t testing.TB, hint string, stdout []byte) {
	defaultConfig.Fatal(t, hint, stdout)
}

func Record(t testing.TB, hint string, stdout []byte) {
	defaultConfig.Record(t, hint, stdout)
}

// FileSuffix is appended to section file names that have no extension.
const FileSuffix = ".spec"

// SectionDir is the directory of section files. A test without hint
// uses <Dir>/<test name>.spec, hints name files in <Dir>/<test name>/.
type SectionDir string

// Path returns the section file of t. A hint without extension gets
// FileSuffix.
func (dir SectionDir) Path(t testing.TB, hint string) string {
	if hint == "" {
		return filepath.Join(string(dir), t.Name()+FileSuffix)
	}
	if filepath.Ext(hint) == "" {
		hint += FileSuffix
	}
	return filepath.Join(string(dir), t.Name(), hint)
}

type Config struct {
	SectionFile     func(t testing.TB, hint string) string
	RecordOverwrite bool
	// Areas names the rows of recorded rates matrices.
	Areas []string
}

var defaultConfig = Config{
	SectionFile: SectionDir(GoTestdataDir).Path,
}

func (cfg Config) Error(t testing.TB, hint string, stdout []byte) error {
	t.Helper()
	if recording(t) {
		cfg.Record(t, hint, stdout)
		return nil
	}
	err := cfg.compare(t, hint, stdout)
	if err != nil {
		t.Error(err)
	}
	return err
}

func (cfg Config) Fatal(t testing.TB, hint string, stdout []byte) {
	t.Helper()
	if recording(t) {
		cfg.Record(t, hint, stdout)
		return
	}
	if err := cfg.compare(t, hint, stdout); err != nil {
		t.Fatal(err)
	}
}

// recording reports whether the output of test is to be recorded.
func recording(t testing.TB) bool {
	pattern := os.Getenv(RecordEnv)
	if pattern == "" {
		return false
	}
	match, err := regexp.MatchString(pattern, t.Name())
	if err != nil {
		t.Logf("spectesting: ignore %s: %s", RecordEnv, err)
		return false
	}
	return match
}

func (cfg *Config) compare(t testing.TB, hint string, stdout []byte) error {
	reffile := cfg.SectionFile(t, hint)
	rd, err := os.Open(reffile)
	if os.IsNotExist(err) {
		t.Logf("to record a section file run '%[1]s=%[2]s go test -run %[2]s'",
			RecordEnv,
			t.Name(),
		)
		return fmt.Errorf("section file %s does not exist", reffile)
	} else if err != nil {
		return err
	}
	defer rd.Close()
	checkers, err := decxspec.ParseSections(reffile, rd)
	if err != nil {
		return err
	}
	res := &decxspec.ProcessResult{Stdout: stdout}
	for _, chk := range checkers {
		if err = chk.Check(res); err != nil {
			return fmt.Errorf("%s: %w", reffile, err)
		}
	}
	return nil
}

func (cfg Config) Record(t testing.TB, hint string, stdout []byte) {
	t.Helper()
	reffile := cfg.SectionFile(t, hint)
	if _, err := os.Stat(reffile); !os.IsNotExist(err) && !cfg.RecordOverwrite {
		t.Fatalf("spectesting: section file '%s' already exists", reffile)
	}
	var buf bytes.Buffer
	if err := (decxspec.Prepare{Areas: cfg.Areas}).Text(&buf, stdout); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(reffile), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(reffile, buf.Bytes(), 0666); err != nil {
		t.Fatal(err)
	}
	t.Errorf("spectesting recorder wrote: %s", reffile)
}

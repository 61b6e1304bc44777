package decxspec

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func chunksOf(t *testing.T, text string) []chunk {
	t.Helper()
	chunks, err := readChunks("t.spec", strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	return chunks
}

func TestSplitChunks(t *testing.T) {
	chunks := chunksOf(t, `

Success: dry run   # nothing to edit


Failure: no tree
diff (config.toml):

    tree = "tree.tre"
    # tree = "tree.tre"
error (2):
    no tree given



adjacency:
`)
	want := []chunk{
		{first: 3, lines: []string{"Success: dry run   "}},
		{first: 6, lines: []string{
			"Failure: no tree",
			"diff (config.toml):",
			"",
			`    tree = "tree.tre"`,
			"    ",
			"error (2):",
			"    no tree given",
		}},
		{first: 16, lines: []string{"adjacency:"}},
	}
	if diff := cmp.Diff(want, chunks, cmp.AllowUnexported(chunk{})); diff != "" {
		t.Error(diff)
	}
}

func parseTestChunk(t *testing.T, text string) *TestChunk {
	t.Helper()
	chunks := chunksOf(t, text)
	if len(chunks) != 1 {
		t.Fatalf("%d chunks", len(chunks))
	}
	test, chk, err := parseChunk("t.spec", chunks[0])
	if err != nil {
		t.Fatal(err)
	}
	if chk != nil {
		t.Fatal("section instead of test")
	}
	return test
}

func TestParseChunk_failure(t *testing.T) {
	test := parseTestChunk(t, `Failure: missing distribution file
diff (config.toml): PERSIST
    distribution = "distrib.txt"
    distribution = "nope.txt"
    COMMENT tree
diff (data/adj.txt):
    INSERT ABOVE A 0
    C 1
    UNCOMMENT B 1 1
    INDENT A
error (2):
    Error: could not open
    file 'nope.txt'.
`)
	want := &TestChunk{
		File:   "t.spec",
		Name:   "missing distribution file",
		Pos:    SourcePosition{File: "t.spec", Line: 1},
		Expect: ExpectFailure,
		Diffs: []FileDiff{
			{
				File:    "config.toml",
				Persist: true,
				Pos:     SourcePosition{File: "t.spec", Line: 2},
				Instructions: []DiffInstruction{
					{Op: OpReplace, Match: `distribution = "distrib.txt"`, Line: `distribution = "nope.txt"`},
					{Op: OpComment, Match: "tree"},
				},
			},
			{
				File: "data/adj.txt",
				Pos:  SourcePosition{File: "t.spec", Line: 6},
				Instructions: []DiffInstruction{
					{Op: OpInsertAbove, Match: "A 0", Line: "C 1"},
					{Op: OpUncomment, Match: "B 1 1"},
					{Op: OpIndent, Match: "A"},
				},
			},
		},
		Error: &ErrorChecker{Code: 2, Message: "Error: could not open\nfile 'nope.txt'."},
	}
	if diff := cmp.Diff(want, test, cmpopts.IgnoreFields(DiffInstruction{}, "Pos")); diff != "" {
		t.Error(diff)
	}
}

func TestParseChunk_inlineSection(t *testing.T) {
	test := parseTestChunk(t, `Success: adjacency read
diff (config.toml):
    COMMENT rates
adjacency:

     A B
  A  0
  B  1 1
`)
	if test.Expect != ExpectSuccess || test.Error != nil {
		t.Fatalf("wrong expectation %s", test.Expect)
	}
	if len(test.Diffs) != 1 || len(test.Diffs[0].Instructions) != 1 {
		t.Fatalf("wrong diffs: %+v", test.Diffs)
	}
	if len(test.Checkers) != 1 {
		t.Fatalf("%d inline checkers", len(test.Checkers))
	}
	adj, ok := test.Checkers[0].(*AdjacencyChecker)
	if !ok {
		t.Fatalf("wrong checker %T", test.Checkers[0])
	}
	if adj.Pos.Line != 4 {
		t.Errorf("section position %s", adj.Pos)
	}
}

func TestParseChunk_dryRun(t *testing.T) {
	test := parseTestChunk(t, "Success:dry run")
	if test.Name != "dry run" || len(test.Diffs) != 0 {
		t.Errorf("unexpected test %+v", test)
	}
}

func TestParseChunk_section(t *testing.T) {
	chunks := chunksOf(t, "rates:\n\n   A\n A 1\n")
	test, chk, err := parseChunk("t.spec", chunks[0])
	if err != nil {
		t.Fatal(err)
	}
	if test != nil {
		t.Fatal("test instead of section")
	}
	if _, ok := chk.(*RatesChecker); !ok {
		t.Errorf("wrong checker %T", chk)
	}
}

func TestParseChunk_specErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		msg  string
	}{
		{"unrecognized", "Matrix:\n  A B", "unrecognized chunk type"},
		{"empty failure", "Failure: nothing", "not enough information"},
		{"failure without error", "Failure: x\ndiff (a):\n  COMMENT b", "without error block"},
		{"success with error", "Success: x\nerror (2):\n  boom", "success test 'x' with error block"},
		{"two errors", "Failure: x\nerror (2):\n  a\nerror (3):\n  b", "more than one error block"},
		{"dangling pair", "Success: x\ndiff (a):\n  b = 1", "lacks its replacement"},
		{"dangling insert", "Success: x\ndiff (a):\n  INSERT ABOVE b", "lacks the line to insert"},
		{"keyword only", "Success: x\ndiff (a):\n  COMMENT", "COMMENT instruction without text"},
		{"empty diff", "Success: x\ndiff (a):\nerror (2):\n  b", "empty diff (a)"},
		{"stray line", "Success: x\n  b = 1", "unexpected line outside of any block"},
		{"nested test", "Success: x\ndiff (a):\n  COMMENT b\nSuccess: y", "test header inside of test chunk"},
		{"diff header", "Success: x\ndiff (a:\n  COMMENT b", "malformed diff header"},
		{"diff marker", "Success: x\ndiff (a): KEEP\n  COMMENT b", "unexpected 'KEEP'"},
		{"error code", "Failure: x\nerror (two):\n  b", "invalid error code 'two'"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			chunks := chunksOf(t, test.text)
			_, _, err := parseChunk("t.spec", chunks[0])
			var sfe *SpecificationFormatError
			if !errors.As(err, &sfe) {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(sfe.Msg, test.msg) {
				t.Errorf("message lacks '%s': %s", test.msg, sfe.Msg)
			}
		})
	}
}

func TestParseChunk_sectionHeader(t *testing.T) {
	for _, text := range []string{
		"adjacency:\n   A B\nA 0\nB 1 1",
		"Success: x\nadjacency:\n   A B\nA 0\nB 1 1",
	} {
		_, _, err := parseChunk("t.spec", chunksOf(t, text)[0])
		var spe *SpecificationFormatError
		if !errors.As(err, &spe) {
			t.Fatalf("no specification error: %v", err)
		}
		var sfe *SectionFormatError
		if !errors.As(err, &sfe) {
			t.Fatalf("section error not wrapped: %v", err)
		}
		if sfe.Keyword != "adjacency" || !strings.Contains(spe.Msg, "expect blank line") {
			t.Errorf("unexpected error: %s", err)
		}
	}
}

func TestParseSections(t *testing.T) {
	checkers, err := ParseSections("t.spec", strings.NewReader(adjacencySection+"\n\n"+ratesSection))
	if err != nil {
		t.Fatal(err)
	}
	if len(checkers) != 2 {
		t.Fatalf("%d sections", len(checkers))
	}
	_, err = ParseSections("t.spec", strings.NewReader(adjacencySection+"\n\nSuccess: x"))
	if err == nil {
		t.Error("test chunk accepted")
	}
}

package edit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fractalqb/decxspec"
)

var config = []string{
	"[input]",
	`    tree = "tree.tre"`,
	`    # rates = "rates.txt"`,
	`    distribution = "distrib.txt"`,
}

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		in   decxspec.DiffInstruction
		want []string
	}{
		{
			name: "replace keeps indentation",
			in:   decxspec.DiffInstruction{Op: decxspec.OpReplace, Match: "tree =", Line: `tree = "other.tre"`},
			want: []string{"[input]", `    tree = "other.tre"`, config[2], config[3]},
		},
		{
			name: "comment",
			in:   decxspec.DiffInstruction{Op: decxspec.OpComment, Match: "distribution"},
			want: []string{"[input]", config[1], config[2], `    # distribution = "distrib.txt"`},
		},
		{
			name: "uncomment",
			in:   decxspec.DiffInstruction{Op: decxspec.OpUncomment, Match: "rates ="},
			want: []string{"[input]", config[1], `    rates = "rates.txt"`, config[3]},
		},
		{
			name: "indent",
			in:   decxspec.DiffInstruction{Op: decxspec.OpIndent, Match: "[input]"},
			want: []string{"    [input]", config[1], config[2], config[3]},
		},
		{
			name: "insert above",
			in:   decxspec.DiffInstruction{Op: decxspec.OpInsertAbove, Match: "distribution", Line: "adjacency = \"adj.txt\""},
			want: []string{"[input]", config[1], config[2], `    adjacency = "adj.txt"`, config[3]},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Lines(config, test.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Error(diff)
			}
		})
	}
	if config[1] != `    tree = "tree.tre"` {
		t.Errorf("input lines modified: %q", config[1])
	}
}

func TestLines_firstMatchWins(t *testing.T) {
	lines := []string{"a = 1", "a = 2"}
	got, err := Lines(lines, decxspec.DiffInstruction{Op: decxspec.OpReplace, Match: "a =", Line: "a = 3"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a = 3", "a = 2"}, got); diff != "" {
		t.Error(diff)
	}
}

func TestLines_commentTwice(t *testing.T) {
	in := decxspec.DiffInstruction{Op: decxspec.OpComment, Match: "foo=bar"}
	once, err := Lines([]string{"foo=bar"}, in)
	if err != nil {
		t.Fatal(err)
	}
	if once[0] != "# foo=bar" {
		t.Fatalf("commented once: %q", once[0])
	}
	in.Match = "# foo=bar"
	twice, err := Lines(once, in)
	if err != nil {
		t.Fatal(err)
	}
	if twice[0] != "# # foo=bar" {
		t.Errorf("commented twice: %q", twice[0])
	}
}

func TestLines_uncommentSkipsActiveLines(t *testing.T) {
	lines := []string{"rates = 1", "#rates = 2"}
	got, err := Lines(lines, decxspec.DiffInstruction{Op: decxspec.OpUncomment, Match: "rates"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"rates = 1", "rates = 2"}, got); diff != "" {
		t.Error(diff)
	}
}

func TestLines_notFound(t *testing.T) {
	_, err := Lines(config, decxspec.DiffInstruction{Op: decxspec.OpComment, Match: "nope"})
	if !errors.Is(err, decxspec.ErrEditTargetNotFound) {
		t.Fatalf("unexpected error: %v", err)
	}
	var tnf *TargetNotFoundError
	if !errors.As(err, &tnf) {
		t.Fatalf("not a target error: %T", err)
	}
	if tnf.Instruction.Match != "nope" {
		t.Errorf("wrong instruction: %s", tnf.Instruction)
	}
}

func TestFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(name, []byte("a = 1\nb = 2\n"), 0640); err != nil {
		t.Fatal(err)
	}
	err := File(name, []decxspec.DiffInstruction{
		{Op: decxspec.OpComment, Match: "b"},
		{Op: decxspec.OpReplace, Match: "a", Line: "a = 4"},
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if s := string(data); s != "a = 4\n# b = 2\n" {
		t.Errorf("wrong content %q", s)
	}
	stat, err := os.Stat(name)
	if err != nil {
		t.Fatal(err)
	}
	if m := stat.Mode().Perm(); m != 0640 {
		t.Errorf("mode changed to %o", m)
	}

	err = File(name, []decxspec.DiffInstruction{{Op: decxspec.OpIndent, Match: "c"}})
	var tnf *TargetNotFoundError
	if !errors.As(err, &tnf) || tnf.File != name {
		t.Errorf("unexpected error: %v", err)
	}
}

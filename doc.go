/*
Package decxspec runs the DECX command line program against human-authored
specification files and compares what the program displays with the
expectations written down in these files. A specification file consists of
test chunks separated by at least two blank lines. Everything from '#' to the
end of a line is a comment and is stripped before the file is read.

The simplest test only states that the program must succeed with the
unmodified input files:

	Success: dry run

A test that needs modified input files carries diff blocks. Each diff block
names the file it edits, relative to the staging directory, and lists edit
instructions up to the next directive:

	Success: other tree
	diff (config.toml):
	    tree = "tree.tre"
	    tree = "other.tre"

The two lines above form a replace pair: the first line whose trimmed text
starts with `tree = "tree.tre"` is replaced by `tree = "other.tre"`, keeping
its indentation. As '#' always starts a comment, commenting out is done with
an instruction keyword:

	COMMENT <match>           prefix the matched line with "# "
	UNCOMMENT <match>         remove "# " from the matched commented line
	INDENT <match>            prefix the matched line with four spaces
	INSERT ABOVE <anchor>     insert the next line above the anchor line
	<new line>

A diff block whose header ends with PERSIST stays applied to every following
test of the same specification file:

	diff (config.toml): PERSIST
	    COMMENT rate_matrix

Failure tests must declare the expected exit code and the expected error
message. Messages are compared with normalized whitespace, but case
sensitive:

	Failure: missing distribution file
	diff (config.toml):
	    distribution = "distrib.txt"
	    distribution = "nope.txt"
	error (2):
	    Error: could not open file 'nope.txt'.

# Matrix Sections

A matrix section describes what the program displays when it reads an
adjacency, rates or distribution matrix. A section starts with its keyword,
followed by a colon and a mandatory blank line. A chunk that only holds a
section attaches its checks to the next test. A section may also be written
inline at the end of a test chunk.

Adjacency matrices are lower triangular and binary. Each row starts with the
area name. Periods are separated by a blank line and repeat the areas header:

	adjacency:

	        A  B  C
	    A   0
	    B   1  1
	    C   0  1  1

	        A  B  C
	    A   0
	    B   0  1
	    C   0  1  1

Rate matrices are full and hold floating point numbers:

	rates:

	        A    B
	    A   1    0.5
	    B   0.1  1

Distribution matrices have a single period. Species names end with a colon:

	distribution:

	         A B C
	    Sp1: 0 1 1
	    Sp2: 1 0 0

# Comparing Output

Adjacency and rates are displayed twice by the program: a legacy tab
delimited display and a full display with periods separated by "---". Both
displays are checked against the section. Row and column order is load
bearing, missing or trailing rows and periods are reported as mismatches.
*/
package decxspec

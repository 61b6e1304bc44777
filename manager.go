package decxspec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Runner runs the tested program once.
type Runner interface {
	Run(ctx context.Context, command string) (*ProcessResult, error)
}

// Editor maintains the input files of the tested program.
type Editor interface {
	// Reset restores the pristine input files.
	Reset() error
	Apply(file string, ins []DiffInstruction) error
}

// Verdict is the outcome of one test. Err is nil for passed tests.
type Verdict struct {
	File string
	Test string
	Pos  SourcePosition
	Err  *TestFailure
}

func (v Verdict) Passed() bool { return v.Err == nil }

// Manager runs the test chunks of specification files one after the other.
type Manager struct {
	Command string
	Runner  Runner
	Editor  Editor
	// Timeout bounds each program run, zero means no limit.
	Timeout time.Duration
	Log     zerolog.Logger
	// OnVerdict, if set, is called after each test.
	OnVerdict func(Verdict)

	file       string
	chunks     []chunk
	persistent []FileDiff
	pending    []Checker
	results    []Verdict
}

func NewManager(command string, runner Runner, editor Editor) *Manager {
	return &Manager{
		Command: command,
		Runner:  runner,
		Editor:  editor,
		Log:     zerolog.Nop(),
	}
}

// Open reads the chunks of a specification file. Persistent diffs and
// pending sections of a previous file are dropped.
func (m *Manager) Open(file string, r io.Reader) error {
	chunks, err := readChunks(file, r)
	if err != nil {
		return fmt.Errorf("read specification %s: %w", file, err)
	}
	m.file = file
	m.chunks = chunks
	m.persistent = nil
	m.pending = nil
	m.Log.Debug().Str("file", file).Int("chunks", len(chunks)).Msg("opened specification")
	return nil
}

// Step interprets the next chunk of the open file. It returns false when
// all chunks are done. Test failures are recorded, errors are not about the
// tested program.
func (m *Manager) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(m.chunks) == 0 {
		return false, nil
	}
	c := m.chunks[0]
	m.chunks = m.chunks[1:]
	test, chk, err := parseChunk(m.file, c)
	if err != nil {
		return false, err
	}
	if chk != nil {
		m.Log.Debug().Str("file", m.file).Int("line", c.first).Msg("pending section")
		m.pending = append(m.pending, chk)
		return true, nil
	}
	return true, m.runTest(ctx, test)
}

// RunFile runs all chunks of a specification file.
func (m *Manager) RunFile(ctx context.Context, file string, r io.Reader) error {
	if err := m.Open(file, r); err != nil {
		return err
	}
	for {
		more, err := m.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if len(m.pending) > 0 {
		return specErrorf(SourcePosition{File: file}, nil,
			"%d matrix section(s) at end of file without test", len(m.pending))
	}
	return nil
}

func (m *Manager) Results() []Verdict { return m.results }

func (m *Manager) Failures() (res []Verdict) {
	for _, v := range m.results {
		if !v.Passed() {
			res = append(res, v)
		}
	}
	return res
}

func (m *Manager) runTest(ctx context.Context, t *TestChunk) error {
	log := m.Log.With().
		Str("file", t.File).
		Str("test", t.Name).
		Int("line", t.Pos.Line).
		Logger()
	log.Debug().Stringer("expect", t.Expect).Msg("start test")

	if err := m.Editor.Reset(); err != nil {
		return fmt.Errorf("%s: reset input files: %w", t.Pos, err)
	}
	for _, d := range m.persistent {
		if err := m.applyDiff(log, d); err != nil {
			return err
		}
	}
	for _, d := range t.Diffs {
		if err := m.applyDiff(log, d); err != nil {
			return err
		}
	}
	for _, d := range t.Diffs {
		if d.Persist {
			m.persistent = append(m.persistent, d)
		}
	}

	checkers := make([]Checker, 0, 1+len(m.pending)+len(t.Checkers))
	if t.Error != nil {
		checkers = append(checkers, t.Error)
	} else {
		checkers = append(checkers, SuccessChecker{})
	}
	checkers = append(checkers, m.pending...)
	checkers = append(checkers, t.Checkers...)
	m.pending = nil

	runCtx := ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	res, err := m.Runner.Run(runCtx, m.Command)
	if err != nil {
		return fmt.Errorf("%s: run '%s': %w", t.Pos, m.Command, err)
	}
	log.Debug().
		Int("exit", res.ExitCode).
		Dur("duration", res.Duration).
		Bool("timeout", res.TimedOut).
		Msg("program done")

	v := Verdict{File: t.File, Test: t.Name, Pos: t.Pos}
	if res.TimedOut {
		v.Err = &TestFailure{
			Msg:     fmt.Sprintf("program did not exit within %s", m.Timeout),
			Timeout: true,
		}
	} else {
		for _, chk := range checkers {
			if err := chk.Check(res); err != nil {
				var tf *TestFailure
				if !errors.As(err, &tf) {
					tf = &TestFailure{Msg: err.Error()}
				}
				v.Err = tf
				break
			}
		}
	}
	if v.Err != nil {
		log.Debug().Str("failure", v.Err.Msg).Msg("FAIL")
	} else {
		log.Debug().Msg("PASS")
	}
	m.results = append(m.results, v)
	if m.OnVerdict != nil {
		m.OnVerdict(v)
	}
	return nil
}

func (m *Manager) applyDiff(log zerolog.Logger, d FileDiff) error {
	log.Debug().
		Str("target", d.File).
		Bool("persist", d.Persist).
		Int("instructions", len(d.Instructions)).
		Msg("apply diff")
	if err := m.Editor.Apply(d.File, d.Instructions); err != nil {
		return fmt.Errorf("%s: diff (%s): %w", d.Pos, d.File, err)
	}
	return nil
}

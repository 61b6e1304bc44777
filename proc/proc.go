// Package proc runs the tested program through a shell and captures what it
// leaves behind.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/fractalqb/decxspec"
)

// DefaultShell interprets commands unless Runner.Shell is set.
const DefaultShell = "/bin/sh"

// Runner implements decxspec.Runner. Commands are run with Shell -c in Dir.
type Runner struct {
	Dir   string
	Shell string
	Env   map[string]string
	// WaitDelay bounds the wait for output pipes after the context expired.
	WaitDelay time.Duration
	Log       zerolog.Logger
}

var _ decxspec.Runner = (*Runner)(nil)

func (r *Runner) Run(ctx context.Context, command string) (*decxspec.ProcessResult, error) {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}
	// #nosec G204 -- the command comes from the harness configuration.
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = r.Dir
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = time.Second
	}
	if len(r.Env) != 0 {
		keys := make([]string, 0, len(r.Env))
		for k := range r.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		merged := cmd.Environ()
		for _, k := range keys {
			merged = append(merged, fmt.Sprintf("%s=%s", k, r.Env[k]))
		}
		cmd.Env = merged
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Log.Debug().Str("command", command).Str("dir", r.Dir).Msg("run")
	start := time.Now()
	err := cmd.Run()
	res := &decxspec.ProcessResult{
		Command:  command,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			res.TimedOut = true
			res.ExitCode = -1
			r.Log.Debug().Str("command", command).Dur("after", res.Duration).Msg("timeout")
			return res, nil
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %q: %w", command, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	r.Log.Debug().
		Str("command", command).
		Int("exit", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("done")
	return res, nil
}

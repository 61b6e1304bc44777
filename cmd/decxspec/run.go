package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fractalqb/decxspec"
	"github.com/fractalqb/decxspec/proc"
	"github.com/fractalqb/decxspec/sandbox"
)

func init() {
	runCmd.RunE = runSpecs
	f := runCmd.Flags()
	f.StringVarP(&runCmd.config, "config", "C", os.Getenv(ConfigEnv),
		"Read harness configuration from YAML or JSON file")
	f.StringP("command", "c", "", "Shell command that runs DECX in the staged dummy directory")
	f.StringP("dummy", "d", "", "Directory with the dummy input files")
	f.Duration("timeout", 0, "Fail tests that run longer, 0 waits forever")
	f.String("report", "", "Write a canonical JSON report to file")
	f.String("build", "", "Shell command run once before the first test")
	f.String("shell", proc.DefaultShell, "Shell used to run commands")
	f.Bool("keep", false, "Keep the staged directory for inspection")
	rootCmd.AddCommand(&runCmd.Command)
}

var runCmd = struct {
	cobra.Command
	config string
}{
	Command: cobra.Command{
		Use:   "run [flags] <spec file>...",
		Short: "Run specification files against DECX",
	},
}

func runSpecs(cmd *cobra.Command, files []string) error {
	var fc FileConfig
	if runCmd.config != "" {
		var err error
		if fc, err = LoadConfigFile(runCmd.config); err != nil {
			return fmt.Errorf("config %s: %w", runCmd.config, err)
		}
	}
	cfg, err := mergeConfig(fc, cmd.Flags())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		files = cfg.Specs
	}
	switch {
	case len(files) == 0:
		return errors.New("no specification files")
	case cfg.Command == "":
		return errors.New("no command to run DECX")
	case cfg.DummyDir == "":
		return errors.New("no dummy directory")
	}

	ctx := cmd.Context()
	if cfg.Build != "" {
		if err = build(ctx, cfg); err != nil {
			return err
		}
	}
	sb, err := sandbox.New(cfg.DummyDir, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cfg.KeepSandbox {
			log.Info().Str("dir", sb.Dir).Msg("keep staged files")
		} else if err := sb.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("cleanup")
		}
	}()

	runner := &proc.Runner{
		Dir:   sb.Dir,
		Shell: cfg.Shell,
		Env:   cfg.Env,
		Log:   log.Logger,
	}
	mgr := decxspec.NewManager(cfg.Command, runner, sb)
	mgr.Timeout = cfg.timeout
	mgr.Log = log.Logger
	out := summary{w: cmd.OutOrStdout()}
	mgr.OnVerdict = out.verdict

	var broken []error
	for _, file := range files {
		err := runFile(ctx, mgr, file)
		var perr *decxspec.ParseError
		switch {
		case err == nil:
		case errors.As(err, &perr):
			log.Error().Err(err).Str("file", file).Msg("skip rest of specification")
			broken = append(broken, err)
		default:
			return err
		}
	}

	out.final(mgr.Results(), broken)
	if cfg.Report != "" {
		if err = writeReport(cfg.Report, mgr.Results()); err != nil {
			return err
		}
	}
	if len(mgr.Failures()) > 0 || len(broken) > 0 {
		return errTestsFailed
	}
	return nil
}

func runFile(ctx context.Context, mgr *decxspec.Manager, file string) error {
	rd, err := os.Open(file)
	if err != nil {
		return err
	}
	defer rd.Close()
	log.Info().Str("file", file).Msg("run specification")
	return mgr.RunFile(ctx, file, rd)
}

func build(ctx context.Context, cfg runConfig) error {
	runner := &proc.Runner{Shell: cfg.Shell, Env: cfg.Env, Log: log.Logger}
	log.Info().Str("command", cfg.Build).Msg("build")
	res, err := runner.Run(ctx, cfg.Build)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("build '%s' failed with code %d:\n%s", cfg.Build, res.ExitCode, res.Stderr)
	}
	return nil
}

func writeReport(name string, verdicts []decxspec.Verdict) error {
	w, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = decxspec.NewReport(verdicts).WriteJSON(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

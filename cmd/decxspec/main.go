// A command line tool to test DECX against specification files
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = struct {
	cobra.Command
	verbose bool
}{
	Command: cobra.Command{
		Use:   "decxspec",
		Short: "Test DECX against specification files",
		Long: `decxspec runs DECX on staged copies of dummy input files and compares
its exit code, error messages and matrix displays with the expectations
written down in specification files.

A specification file holds test chunks separated by two blank lines:

   Success: <test name>
   diff (<file>): [PERSIST]
      <match>
      <replacement>
      COMMENT <match>
      UNCOMMENT <match>
      INDENT <match>
      INSERT ABOVE <anchor>
      <new line>

   Failure: <test name>
   diff (<file>):
      ...
   error (<code>):
      <message>

Chunks starting with 'adjacency:', 'rates:' or 'distribution:' describe the
matrices the next test must display.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootCmd.verbose, "verbose", "v", false,
		"Log debug messages")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		setupLog(rootCmd.verbose)
	}
}

// errTestsFailed makes the tool exit with code 2.
var errTestsFailed = errors.New("tests failed")

func setupLog(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, errTestsFailed):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

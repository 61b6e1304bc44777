package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fractalqb/decxspec"
	"github.com/fractalqb/decxspec/spectesting"
)

func init() {
	prepareCmd.RunE = prepareFiles
	prepareCmd.Flags().StringSliceVarP(
		&prepareCmd.kinds,
		"kind", "k",
		nil,
		"Sections to write: adjacency, rates, distribution (default: all displayed)")
	prepareCmd.Flags().StringSliceVarP(
		&prepareCmd.areas,
		"areas", "a",
		nil,
		"Area names of rates matrices")
	prepareCmd.Flags().StringVarP(
		&prepareCmd.suffix,
		"suffix", "s",
		prepareCmd.suffix,
		"Set file suffix for created section files")
	prepareCmd.Flags().BoolVarP(
		&prepareCmd.force,
		"force", "f",
		prepareCmd.force,
		"Force to overwrite existing section files")
	rootCmd.AddCommand(&prepareCmd.Command)
}

var prepareCmd = struct {
	cobra.Command
	kinds  []string
	areas  []string
	suffix string
	force  bool
}{
	Command: cobra.Command{
		Use:   "prepare [flags] <captured stdout>...",
		Short: "Draft matrix sections from captured DECX output",
	},
	suffix: spectesting.FileSuffix,
	force:  false,
}

func prepareFiles(cmd *cobra.Command, files []string) error {
	p := decxspec.Prepare{Areas: prepareCmd.areas}
	for _, k := range prepareCmd.kinds {
		kind, err := decxspec.ParseSectionKind(k)
		if err != nil {
			return err
		}
		p.Kinds = append(p.Kinds, kind)
	}
	if len(files) == 0 {
		return prepare(p, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	for _, f := range files {
		if err := prepareFile(p, f); err != nil {
			return err
		}
	}
	return nil
}

func prepare(p decxspec.Prepare, rd io.Reader, wr io.Writer) error {
	stdout, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	return p.Text(wr, stdout)
}

func prepareFile(p decxspec.Prepare, name string) (err error) {
	specfile := name + prepareCmd.suffix
	if _, err := os.Stat(specfile); !os.IsNotExist(err) && !prepareCmd.force {
		return fmt.Errorf("%s already exists", specfile)
	}
	rd, err := os.Open(name)
	if err != nil {
		return err
	}
	defer rd.Close()
	wr, err := os.Create(specfile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wr.Close(); err == nil {
			err = cerr
		}
	}()
	log.Info().Str("file", specfile).Msg("prepare sections")
	return prepare(p, rd, wr)
}

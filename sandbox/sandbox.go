// Package sandbox stages the dummy input files of the tested program in a
// temporary directory. Tests edit the staged copies, the originals stay
// untouched.
package sandbox

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fractalqb/decxspec"
	"github.com/fractalqb/decxspec/edit"
)

// Sandbox implements decxspec.Editor on a staged copy of a source directory.
type Sandbox struct {
	Src string
	Dir string
	Log zerolog.Logger
}

var _ decxspec.Editor = (*Sandbox)(nil)

// New creates a temporary directory and copies src into it.
func New(src string, log zerolog.Logger) (*Sandbox, error) {
	dir, err := os.MkdirTemp("", "decxspec-")
	if err != nil {
		return nil, err
	}
	sb := &Sandbox{Src: src, Dir: dir, Log: log}
	if err = copyTree(dir, src); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("stage %s: %w", src, err)
	}
	log.Debug().Str("src", src).Str("dir", dir).Msg("sandbox created")
	return sb, nil
}

// Reset replaces the staged files by fresh copies from Src.
func (sb *Sandbox) Reset() error {
	entries, err := os.ReadDir(sb.Dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err = os.RemoveAll(filepath.Join(sb.Dir, e.Name())); err != nil {
			return err
		}
	}
	sb.Log.Debug().Str("dir", sb.Dir).Msg("sandbox reset")
	return copyTree(sb.Dir, sb.Src)
}

// Apply edits a staged file. The file name is relative to Dir and must not
// leave it.
func (sb *Sandbox) Apply(file string, ins []decxspec.DiffInstruction) error {
	path, err := sb.Path(file)
	if err != nil {
		return err
	}
	sb.Log.Debug().Str("file", file).Int("instructions", len(ins)).Msg("edit staged file")
	return edit.File(path, ins)
}

// Path resolves a file name relative to Dir.
func (sb *Sandbox) Path(file string) (string, error) {
	if filepath.IsAbs(file) {
		return "", fmt.Errorf("absolute path '%s' in sandbox", file)
	}
	path := filepath.Join(sb.Dir, file)
	rel, err := filepath.Rel(sb.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path '%s' leaves sandbox", file)
	}
	return path, nil
}

// Cleanup removes the staged directory.
func (sb *Sandbox) Cleanup() error {
	sb.Log.Debug().Str("dir", sb.Dir).Msg("remove sandbox")
	return os.RemoveAll(sb.Dir)
}

func copyTree(dst, src string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode().IsRegular():
			return copyFile(target, path, info.Mode().Perm())
		}
		return nil
	})
}

func copyFile(dst, src string, mode fs.FileMode) (err error) {
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(w, r)
	return err
}

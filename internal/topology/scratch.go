// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/flock"
)

// scratchMode is world-writable: root and admin users both write the
// threshold cache through the platform helper.
const scratchMode os.FileMode = 0o666

// ErrScratchBusy is returned when a scratch file's lock is held by another
// process at removal time.
var ErrScratchBusy = errors.New("scratch file is locked")

type (
	// ScratchFiles manages the marker files handed to the platform helper
	// running in the service container.
	ScratchFiles struct {
		paths []string
		root  string
	}

	// ScratchError describes a failed scratch file operation.
	ScratchError struct {
		Path string
		Op   string
		Err  error
	}
)

// NewScratchFiles returns a manager for paths resolved under root.
func NewScratchFiles(paths []string, root string) *ScratchFiles {
	return &ScratchFiles{paths: paths, root: root}
}

// Error implements the error interface.
func (e *ScratchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScratchError) Unwrap() error { return e.Err }

// CreateSteps returns one step per file that creates it (if absent) and
// relaxes its permissions.
func (s *ScratchFiles) CreateSteps() []Step {
	steps := make([]Step, 0, len(s.paths))
	for _, path := range s.paths {
		steps = append(steps, scratchStep(
			fmt.Sprintf("touch %s && chmod 666 %s", path, path),
			func(context.Context) error { return s.create(path) },
		))
	}
	return steps
}

// RemoveSteps returns one step that removes every file while holding the
// lock file. With force, a held lock is ignored.
func (s *ScratchFiles) RemoveSteps(force bool) []Step {
	if len(s.paths) == 0 {
		return nil
	}
	return []Step{scratchStep(
		"rm -f "+strings.Join(s.paths, " "),
		func(context.Context) error { return s.Remove(force) },
	)}
}

func (s *ScratchFiles) create(path string) error {
	full := resolve(s.root, path)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_APPEND|os.O_WRONLY, scratchMode)
	if err != nil {
		return &ScratchError{Path: path, Op: "create", Err: err}
	}
	if err := f.Close(); err != nil {
		return &ScratchError{Path: path, Op: "create", Err: err}
	}
	// The umask strips the write bits on open.
	if err := os.Chmod(full, scratchMode); err != nil {
		return &ScratchError{Path: path, Op: "chmod", Err: err}
	}
	return nil
}

// Remove deletes every scratch file. When one of the files ends in
// ".lock" it is locked first so that a helper in the middle of a write is
// not pulled out from under. Missing files are not an error.
func (s *ScratchFiles) Remove(force bool) error {
	if lockPath := s.lockFile(); lockPath != "" {
		full := resolve(s.root, lockPath)
		if _, err := os.Stat(full); err == nil {
			fl := flock.New(full)
			locked, err := fl.TryLock()
			switch {
			case err != nil && !force:
				return &ScratchError{Path: lockPath, Op: "lock", Err: err}
			case err == nil && !locked && !force:
				return &ScratchError{Path: lockPath, Op: "lock", Err: ErrScratchBusy}
			case locked:
				defer func() { _ = fl.Unlock() }()
			}
		}
	}

	var errs []error
	for _, path := range s.paths {
		if err := os.Remove(resolve(s.root, path)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, &ScratchError{Path: path, Op: "remove", Err: err})
		}
	}
	return errors.Join(errs...)
}

func (s *ScratchFiles) lockFile() string {
	for _, path := range s.paths {
		if strings.HasSuffix(path, ".lock") {
			return path
		}
	}
	return ""
}

// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

type (
	// redirectErrors collects write failures from the redirections of one
	// Run. The interpreter drops both write and Close errors.
	redirectErrors struct {
		mu   sync.Mutex
		errs []error
	}

	// bufferedRedirect holds everything written to a redirection target and
	// hands it to the file in a single Write on Close. sysfs attributes such
	// as new_device parse each write(2) on its own.
	bufferedRedirect struct {
		file io.ReadWriteCloser
		path string
		buf  bytes.Buffer
		errs *redirectErrors
	}
)

func (e *redirectErrors) add(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Err returns the joined errors, or nil.
func (e *redirectErrors) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Join(e.errs...)
}

func newBufferedRedirect(file io.ReadWriteCloser, path string, errs *redirectErrors) *bufferedRedirect {
	return &bufferedRedirect{file: file, path: path, errs: errs}
}

// isWrite reports whether an open flag allows writing.
func isWrite(flag int) bool {
	return flag&(os.O_WRONLY|os.O_RDWR) != 0
}

func (b *bufferedRedirect) Read(p []byte) (int, error) { return b.file.Read(p) }

func (b *bufferedRedirect) Write(p []byte) (int, error) { return b.buf.Write(p) }

// Close flushes the buffered bytes and closes the file. Failures are
// recorded in the shared redirectErrors as well as returned.
func (b *bufferedRedirect) Close() error {
	var err error
	if b.buf.Len() > 0 {
		n, werr := b.file.Write(b.buf.Bytes())
		switch {
		case werr != nil:
			err = fmt.Errorf("write %s: %w", b.path, unwrapPathError(werr))
		case n < b.buf.Len():
			err = fmt.Errorf("write %s: %w", b.path, io.ErrShortWrite)
		}
		b.buf.Reset()
	}
	if cerr := b.file.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", b.path, unwrapPathError(cerr))
	}
	if err != nil {
		b.errs.add(err)
	}
	return err
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/accton/as9817util/pkg/types"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRunner executes directives using mvdan/sh.
type VirtualRunner struct {
	opts options
	open interp.OpenHandlerFunc
}

// NewVirtualRunner creates a new virtual runner.
func NewVirtualRunner(opts ...Option) *VirtualRunner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &VirtualRunner{opts: o, open: interp.DefaultOpenHandler()}
}

// Root returns the filesystem prefix used for redirections.
func (r *VirtualRunner) Root() string {
	return r.opts.root
}

// Run parses and interprets directive, capturing stdout and stderr together.
func (r *VirtualRunner) Run(ctx context.Context, directive string) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(directive), "directive")
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("failed to parse directive: %w", err)}
	}

	var (
		out  bytes.Buffer
		errs redirectErrors
	)
	runner, err := interp.New(
		interp.Dir(r.opts.root),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, &out, &out),
		interp.OpenHandler(r.openHandler(&errs)),
		interp.ExecHandlers(r.execMiddleware),
	)
	if err != nil {
		return &Result{ExitCode: 1, Error: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	result := &Result{}
	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			result.ExitCode = types.ExitCode(exitStatus)
		} else {
			result.ExitCode = 1
			result.Error = fmt.Errorf("directive execution failed: %w", err)
		}
	}
	if werr := errs.Err(); werr != nil {
		if result.ExitCode.IsSuccess() {
			result.ExitCode = 1
		}
		out.WriteString(werr.Error() + "\n")
	}
	result.Output = trimOutput(out.String())

	r.opts.logger.Debug("run", "cmd", directive, "status", result.ExitCode, "output", result.Output)
	return result
}

// openHandler re-roots absolute redirection targets under the configured
// root. /dev/null is never re-rooted. Writable targets are buffered so each
// redirection reaches the file as one write; failures land in errs.
func (r *VirtualRunner) openHandler(errs *redirectErrors) interp.OpenHandlerFunc {
	return func(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
		resolved := r.resolve(path)
		f, err := r.open(ctx, resolved, flag, perm)
		if err != nil || !isWrite(flag) {
			return f, err
		}
		return newBufferedRedirect(f, resolved, errs), nil
	}
}

func (r *VirtualRunner) resolve(path string) string {
	if r.opts.root == "/" || !filepath.IsAbs(path) || path == os.DevNull {
		return path
	}
	return filepath.Join(r.opts.root, path)
}

// execMiddleware routes external programs to the injected handler, if any.
func (r *VirtualRunner) execMiddleware(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		r.opts.logger.Debug("exec", "args", args)
		if r.opts.execHandler != nil {
			return r.opts.execHandler(ctx, args)
		}
		return next(ctx, args)
	}
}

// SPDX-License-Identifier: MPL-2.0

package thermal

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/accton/as9817util/internal/container"
	"github.com/accton/as9817util/pkg/types"
)

const (
	// DefaultContainer is the service container that hosts the platform API.
	DefaultContainer container.ContainerID = "pmon"
	// DefaultPython is the interpreter used inside the container.
	DefaultPython = "python3"
	// DefaultTimeout bounds every call.
	DefaultTimeout = 30 * time.Second
)

//go:embed dispatcher.py
var dispatcherSource string

type (
	// Transport carries one request to the platform API and returns its
	// reply. A Response is only returned with Status ok; every other
	// outcome is an error.
	Transport interface {
		Call(ctx context.Context, req Request) (*Response, error)
	}

	// ContainerTransport runs the dispatcher inside a container through a
	// container engine.
	ContainerTransport struct {
		engine    container.Engine
		container container.ContainerID
		python    string
		timeout   time.Duration
		logger    *log.Logger
	}

	// TransportOption configures a ContainerTransport.
	TransportOption func(*ContainerTransport)
)

// WithContainer sets the service container.
func WithContainer(id container.ContainerID) TransportOption {
	return func(t *ContainerTransport) {
		if id != "" {
			t.container = id
		}
	}
}

// WithPython sets the interpreter run inside the container.
func WithPython(python string) TransportOption {
	return func(t *ContainerTransport) {
		if python != "" {
			t.python = python
		}
	}
}

// WithTimeout bounds every call. Zero or negative keeps the default.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *ContainerTransport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithTransportLogger sets the logger for call records.
func WithTransportLogger(logger *log.Logger) TransportOption {
	return func(t *ContainerTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewContainerTransport returns a transport that execs into the service
// container through engine.
func NewContainerTransport(engine container.Engine, opts ...TransportOption) *ContainerTransport {
	t := &ContainerTransport{
		engine:    engine,
		container: DefaultContainer,
		python:    DefaultPython,
		timeout:   DefaultTimeout,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Command returns the argv executed inside the container for req.
func (t *ContainerTransport) Command(req Request) ([]string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return []string{t.python, "-c", dispatcherSource, string(payload)}, nil
}

// Call implements Transport.
func (t *ContainerTransport) Call(ctx context.Context, req Request) (*Response, error) {
	if err := req.Method.Validate(); err != nil {
		return nil, err
	}
	argv, err := t.Command(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	res, err := t.engine.Exec(ctx, t.container, argv, container.ExecOptions{Stdout: &stdout, Stderr: &stderr})
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return nil, &CallError{Request: req, ExitCode: 1, Err: ErrTimeout, Message: t.timeout.String()}
	}
	if err != nil {
		return nil, &CallError{Request: req, ExitCode: 1, Err: fmt.Errorf("%w: %w", ErrOperationFailed, err)}
	}

	t.logger.Debug("thermal call", "method", req.Method, "thermal", req.Thermal, "status", res.ExitCode)
	return decode(req, res.ExitCode, res.Error, stdout.String(), stderr.String())
}

// decode maps the dispatcher's exit status and output onto a Response or
// a CallError.
func decode(req Request, code types.ExitCode, execErr error, stdout, stderr string) (*Response, error) {
	resp, decodeErr := parseReply(stdout)
	output := strings.TrimSpace(stdout + stderr)

	if execErr != nil {
		return nil, &CallError{Request: req, ExitCode: code, Err: fmt.Errorf("%w: %w", ErrOperationFailed, execErr)}
	}
	if decodeErr != nil {
		switch {
		case code.IsEngineFailure():
			return nil, &CallError{Request: req, ExitCode: code, Message: output, Err: ErrEngineFailure}
		case code == 1:
			return nil, &CallError{Request: req, ExitCode: code, Message: output, Err: ErrUnavailable}
		case code.IsSuccess():
			return nil, &CallError{Request: req, ExitCode: code, Message: output, Err: ErrMalformedResponse}
		default:
			return nil, &CallError{Request: req, ExitCode: code, Message: output, Err: ErrOperationFailed}
		}
	}

	switch resp.Status {
	case StatusOK:
		if !code.IsSuccess() {
			return nil, &CallError{Request: req, ExitCode: code, Message: output, Err: ErrMalformedResponse}
		}
		return resp, nil
	case StatusNotFound:
		return nil, &CallError{Request: req, ExitCode: code, Message: resp.Message, Err: ErrThermalNotFound}
	case StatusNotImplemented:
		return nil, &CallError{Request: req, ExitCode: code, Message: resp.Message, Err: ErrNotImplemented}
	case StatusFailed:
		return nil, &CallError{Request: req, ExitCode: code, Message: resp.Message, Err: ErrOperationFailed}
	default:
		return nil, &CallError{Request: req, ExitCode: code, Message: output, Err: ErrMalformedResponse}
	}
}

// parseReply decodes the last non-empty stdout line. Platform drivers
// sometimes print to stdout before the reply.
func parseReply(stdout string) (*Response, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, ErrMalformedResponse
	}
	var resp Response
	if err := json.Unmarshal([]byte(last), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if resp.Status == "" {
		return nil, ErrMalformedResponse
	}
	return &resp, nil
}

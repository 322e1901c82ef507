// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/accton/as9817util/internal/config"
	"github.com/accton/as9817util/internal/container"
	"github.com/accton/as9817util/internal/shell"
	"github.com/accton/as9817util/internal/thermal"
	"github.com/accton/as9817util/pkg/types"
)

type (
	// staticConfig is a config.Provider returning a fixed result.
	staticConfig struct {
		cfg  *config.Config
		path string
		err  error
	}

	// fakeThermal is one thermal on the fake platform. A nil side is not
	// implemented by the platform API.
	fakeThermal struct {
		name     string
		high     *float64
		highCrit *float64
		readOnly bool
	}

	// platformEngine plays the service container: it decodes each
	// dispatcher request and answers from its thermals.
	platformEngine struct {
		mu       sync.Mutex
		thermals []*fakeThermal
		running  bool
		// hang makes ContainerRunning block until its context ends.
		hang  bool
		calls []thermal.Request
	}

	// scriptedRunner records directives and fails those with a listed
	// prefix.
	scriptedRunner struct {
		mu         sync.Mutex
		directives []string
		fail       map[string]types.ExitCode
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, string, error) {
	return s.cfg, s.path, s.err
}

func ptr(v float64) *float64 { return &v }

func (e *platformEngine) Name() string                            { return "fake" }
func (e *platformEngine) Available() bool                         { return true }
func (e *platformEngine) Version(context.Context) (string, error) { return "1.0", nil }
func (e *platformEngine) ContainerRunning(ctx context.Context, _ container.ContainerID) (bool, error) {
	if e.hang {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return e.running, nil
}

func (e *platformEngine) Exec(_ context.Context, id container.ContainerID, command []string, opts container.ExecOptions) (*container.ExecResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var req thermal.Request
	if err := json.Unmarshal([]byte(command[len(command)-1]), &req); err != nil {
		return nil, err
	}
	e.calls = append(e.calls, req)

	reply := func(code types.ExitCode, resp thermal.Response) (*container.ExecResult, error) {
		b, _ := json.Marshal(resp)
		fmt.Fprintln(opts.Stdout, string(b))
		return &container.ExecResult{ContainerID: id, ExitCode: code}, nil
	}

	if req.Method == thermal.MethodList {
		names := make([]string, len(e.thermals))
		for i, th := range e.thermals {
			names[i] = th.name
		}
		return reply(0, thermal.Response{Status: thermal.StatusOK, Names: names})
	}

	var th *fakeThermal
	for _, candidate := range e.thermals {
		if candidate.name == req.Thermal {
			th = candidate
		}
	}
	if th == nil {
		return reply(1, thermal.Response{Status: thermal.StatusNotFound})
	}

	side := &th.high
	if req.Method == thermal.MethodHighCriticalThreshold || req.Method == thermal.MethodSetHighCriticalThreshold {
		side = &th.highCrit
	}
	if req.Method.IsWrite() {
		if th.readOnly {
			return reply(1, thermal.Response{Status: thermal.StatusNotImplemented})
		}
		*side = req.Value
		return reply(0, thermal.Response{Status: thermal.StatusOK})
	}
	if *side == nil {
		return reply(1, thermal.Response{Status: thermal.StatusNotImplemented})
	}
	return reply(0, thermal.Response{Status: thermal.StatusOK, Value: *side})
}

func (e *platformEngine) writes() []thermal.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []thermal.Request
	for _, c := range e.calls {
		if c.Method.IsWrite() {
			out = append(out, c)
		}
	}
	return out
}

func (r *scriptedRunner) Run(_ context.Context, directive string) *shell.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directives = append(r.directives, directive)
	for prefix, code := range r.fail {
		if strings.HasPrefix(directive, prefix) {
			return &shell.Result{ExitCode: code, Output: "boom"}
		}
	}
	return &shell.Result{}
}

func noSleep(context.Context, time.Duration) error { return nil }

// testApp builds an App around cfg and the given fakes.
func testApp(t *testing.T, cfg *config.Config, engine container.Engine, runner shell.Runner) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{
		Config: staticConfig{cfg: cfg},
		Engine: func(config.ContainerEngine) (container.Engine, error) {
			if engine == nil {
				t.Fatal("container engine requested")
			}
			return engine, nil
		},
		Runner: runner,
		Sleep:  noSleep,
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return app, &stdout, &stderr
}

// run executes args against a fresh command tree.
func run(app *App, args ...string) error {
	root := NewRootCommand(app)
	root.SetArgs(normalizeLegacyArgs(args))
	return root.ExecuteContext(context.Background())
}

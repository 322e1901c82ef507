// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/accton/as9817util/internal/testutil"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestEngine_Integration execs into a throwaway container standing in for
// the service container.
func TestEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	engine, err := NewEngine(EngineTypeDocker)
	if err != nil {
		t.Skipf("skipping container integration tests: no container engine available: %v", err)
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration tests: testcontainers provider not available")
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "python:3.12-slim",
			Cmd:   []string{"sleep", "infinity"},
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping: could not start service container: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Terminate(context.Background()); err != nil {
			t.Logf("warning: terminate: %v", err)
		}
	})

	id := ContainerID(svc.GetContainerID())

	t.Run("ContainerRunning", func(t *testing.T) {
		running, err := engine.ContainerRunning(ctx, id)
		if err != nil || !running {
			t.Fatalf("ContainerRunning() = %v, %v", running, err)
		}
		running, err = engine.ContainerRunning(ctx, "as9817util-no-such-container")
		if err != nil || running {
			t.Fatalf("ContainerRunning(missing) = %v, %v", running, err)
		}
	})

	t.Run("Exec", func(t *testing.T) {
		var stdout bytes.Buffer
		res, err := engine.Exec(ctx, id, []string{"python3", "-c", "print(40 + 2)"}, ExecOptions{Stdout: &stdout})
		if err != nil || res.ExitCode != 0 {
			t.Fatalf("Exec() = %+v, %v", res, err)
		}
		if strings.TrimSpace(stdout.String()) != "42" {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("ExitCode", func(t *testing.T) {
		res, err := engine.Exec(ctx, id, []string{"python3", "-c", "raise SystemExit(1)"}, ExecOptions{})
		if err != nil {
			t.Fatalf("Exec() error = %v", err)
		}
		if res.ExitCode != 1 {
			t.Errorf("ExitCode = %d, want 1", res.ExitCode)
		}
	})
}

// SPDX-License-Identifier: MPL-2.0

// Package container runs commands inside an already-running service
// container through the Docker or Podman CLI.
//
// The Engine interface covers what the platform utility needs: engine
// discovery (Name, Available, Version), a liveness check for the service
// container (ContainerRunning) and Exec. DockerEngine and PodmanEngine
// both embed BaseCLIEngine, which builds the CLI arguments and owns the
// injectable exec.Cmd factory used by tests.
//
// Engine selection uses NewEngine(EngineType) with automatic fallback to
// the other engine when the preferred one is unavailable.
package container

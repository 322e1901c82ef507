// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/accton/as9817util/internal/config"
	"github.com/accton/as9817util/internal/container"
	"github.com/accton/as9817util/internal/issue"
	"github.com/accton/as9817util/internal/shell"
	"github.com/accton/as9817util/internal/thermal"
	"github.com/accton/as9817util/internal/topology"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and builds its domain objects through it.
	App struct {
		Config config.Provider
		Engine EngineFactory
		Runner shell.Runner
		Sleep  topology.SleepFunc
		stdout io.Writer
		stderr io.Writer

		flags globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		// Engine resolves the configured container engine.
		Engine EngineFactory
		// Runner replaces the directive runner chosen from configuration.
		Runner shell.Runner
		// Sleep replaces the mux settle wait.
		Sleep  topology.SleepFunc
		Stdout io.Writer
		Stderr io.Writer
	}

	// EngineFactory returns the container engine for the configured type.
	EngineFactory func(engine config.ContainerEngine) (container.Engine, error)

	globalFlags struct {
		debug      bool
		force      bool
		configPath string
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		Engine: deps.Engine,
		Runner: deps.Runner,
		Sleep:  deps.Sleep,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Engine == nil {
		app.Engine = func(engine config.ContainerEngine) (container.Engine, error) {
			return container.NewEngine(container.EngineType(engine))
		}
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

func (a *App) logger() *log.Logger {
	return newLogger(a.stderr, a.flags.debug)
}

func (a *App) loadConfig(ctx context.Context) (*config.Config, string, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
}

// orchestrator builds the topology orchestrator from the global flags and cfg.
func (a *App) orchestrator(cfg *config.Config, dryRun bool) (*topology.Orchestrator, error) {
	logger := a.logger()

	runner := a.Runner
	if runner == nil {
		r, err := shell.New(shell.Mode(cfg.Shell), cfg.SysfsRoot, shell.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		runner = r
	}

	opts := []topology.Option{
		topology.WithForce(a.flags.force),
		topology.WithLogger(logger),
		topology.WithOutput(a.stdout),
		topology.WithRoot(cfg.SysfsRoot),
		topology.WithRunner(runner),
		topology.WithDryRun(dryRun),
		topology.WithWheel(cfg.Wheel.Package, cfg.Wheel.Path),
		topology.WithSettleDelay(cfg.SettleDelay),
	}
	if a.Sleep != nil {
		opts = append(opts, topology.WithSleep(a.Sleep))
	}

	return topology.New(topology.AS9817(), opts...), nil
}

// thermalClient resolves the container engine, checks that the service
// container runs and returns a client talking to it.
func (a *App) thermalClient(ctx context.Context, cfg *config.Config) (*thermal.Client, error) {
	logger := a.logger()

	engine, err := a.Engine(cfg.ContainerEngine)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("find container engine").
			WithResource(cfg.ContainerEngine.String()).
			WithSuggestion("Install docker or podman, or set container_engine in the config file").
			WithIssue(issue.ContainerEngineNotFoundId).
			Wrap(err).
			BuildError()
	}

	checkCtx, cancel := context.WithTimeout(ctx, cfg.Service.Timeout)
	defer cancel()
	if a.flags.debug {
		if v, verr := engine.Version(checkCtx); verr == nil {
			logger.Debug("container engine", "name", engine.Name(), "version", v)
		}
	}

	id := container.ContainerID(cfg.Service.Container)
	running, err := engine.ContainerRunning(checkCtx, id)
	if err != nil || !running {
		ec := issue.NewErrorContext().
			WithOperation("reach service container").
			WithResource(id.String()).
			WithSuggestion("Start the platform service container and retry").
			WithIssue(issue.ServiceContainerNotRunningId)
		if err != nil {
			ec = ec.Wrap(err)
		} else {
			ec = ec.Wrap(errServiceNotRunning)
		}
		return nil, ec.BuildError()
	}

	transport := thermal.NewContainerTransport(engine,
		thermal.WithContainer(id),
		thermal.WithPython(cfg.Service.Python),
		thermal.WithTimeout(cfg.Service.Timeout),
		thermal.WithTransportLogger(logger),
	)
	return thermal.NewClient(transport, thermal.WithLogger(logger)), nil
}

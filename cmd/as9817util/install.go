// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/accton/as9817util/internal/issue"
	"github.com/accton/as9817util/internal/topology"
)

type sequence func(o *topology.Orchestrator, ctx context.Context) error

func newInstallCommand(app *App) *cobra.Command {
	var dryRun bool
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "install drivers and generate related sysfs nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSequence(cmd.Context(), app, dryRun, (*topology.Orchestrator).Install)
		},
	}
	installCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the directives instead of running them")
	return installCmd
}

func newCleanCommand(app *App) *cobra.Command {
	var dryRun bool
	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "uninstall drivers and remove related sysfs nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSequence(cmd.Context(), app, dryRun, (*topology.Orchestrator).Uninstall)
		},
	}
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the directives instead of running them")
	return cleanCmd
}

func runSequence(ctx context.Context, app *App, dryRun bool, run sequence) error {
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	o, err := app.orchestrator(cfg, dryRun)
	if err != nil {
		return err
	}

	runErr := run(o, ctx)
	if dryRun {
		renderPlan(app.stdout, o.Plan())
	}
	if runErr != nil {
		return &ExitError{Code: topology.ExitCode(runErr), Err: explainStepError(runErr)}
	}
	return nil
}

// renderPlan prints the directives a dry run recorded.
func renderPlan(w io.Writer, plan []string) {
	fmt.Fprintln(w, TitleStyle.Render("Dry Run"))
	if len(plan) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  nothing to do"))
		return
	}
	width := len(fmt.Sprint(len(plan)))
	for i, directive := range plan {
		fmt.Fprintf(w, "  %*d. %s\n", width, i+1, CmdStyle.Render(directive))
	}
}

// explainStepError attaches remediation context to a failed step.
func explainStepError(err error) error {
	var se *topology.StepError
	if !errors.As(err, &se) {
		return err
	}

	ec := issue.NewErrorContext().
		WithOperation("run " + string(se.Step.Kind)).
		WithResource(se.Step.Command).
		WithSuggestion("Rerun with --debug to see every directive").
		Wrap(err)

	switch {
	case strings.Contains(strings.ToLower(se.Output), "permission denied") ||
		strings.Contains(strings.ToLower(se.Output), "operation not permitted"):
		ec.WithIssue(issue.PermissionDeniedId)
	case se.Step.Kind == topology.KindModuleLoad || se.Step.Kind == topology.KindModuleRemove:
		ec.WithIssue(issue.DriverLoadFailedId)
	case se.Step.Kind == topology.KindPackage:
		ec.WithIssue(issue.WheelInstallFailedId)
	case se.Step.Kind == topology.KindDeviceCreate, se.Step.Kind == topology.KindRegisterWrite,
		se.Step.Kind == topology.KindDeviceDelete:
		ec.WithIssue(issue.DeviceCreateFailedId)
	}
	return ec.BuildError()
}

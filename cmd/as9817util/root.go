// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/accton/as9817util/internal/config"
	"github.com/accton/as9817util/internal/issue"
)

// ExitUsage is the exit status for invalid arguments.
const ExitUsage = 2

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "AS9817-64O-NB platform utility",
		Long: TitleStyle.Render(config.AppName) + SubtitleStyle.Render(" - AS9817-64O-NB platform utility") + `

Loads the platform kernel modules, creates the I2C device tree and installs
the platform API package; removes all of it again; and reads or changes
thermal thresholds through the platform service container.

` + SubtitleStyle.Render("Examples:") + `
  as9817util install                       Install drivers and sysfs nodes
  as9817util -f clean                      Remove everything, ignoring errors
  as9817util threshold -l                  List thermal names
  as9817util threshold -t "CPU Temp" -ht 70`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.debug, "debug", "d", false, "run with debug mode")
	rootCmd.PersistentFlags().BoolVarP(&app.flags.force, "force", "f", false, "ignore error during installation or clean")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is /etc/as9817util/config.cue, then $XDG_CONFIG_HOME/as9817util/config.cue)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newInstallCommand(app))
	rootCmd.AddCommand(newCleanCommand(app))
	rootCmd.AddCommand(newThresholdCommand(app))
	rootCmd.AddCommand(newStatusCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// Execute runs the CLI and exits the process with the command's status.
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)
	rootCmd.SetArgs(normalizeLegacyArgs(os.Args[1:]))

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			reportError(w, err, app.flags.debug)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// newLogger returns the process logger. It writes to w and is at debug
// level when debug is set.
func newLogger(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: debug,
	})
}

// reportError prints err for the user. Errors that were already reported
// (an ExitError without a cause) print nothing. An ActionableError linked to
// a catalog issue also prints the rendered issue.
func reportError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	ae := issue.Find(err)
	if ae == nil || ae.Issue() == nil {
		return
	}
	rendered, renderErr := ae.Issue().Render("auto")
	if renderErr != nil {
		return
	}
	fmt.Fprint(w, rendered)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	if ae := issue.Find(err); ae != nil {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// normalizeLegacyArgs rewrites the historical single-dash long options
// -ht and -hct to --ht and --hct. pflag only accepts single-letter
// shorthands.
func normalizeLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if arg == "--" {
			copy(out[i+1:], args[i+1:])
			break
		}
		for _, name := range []string{"ht", "hct"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				out[i] = "-" + arg
			}
		}
	}
	return out
}

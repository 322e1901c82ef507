// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/accton/as9817util/internal/issue"
	"github.com/accton/as9817util/internal/thermal"
)

const msgThermalRequired = "The following arguments are required: -t"

type (
	thresholdOptions struct {
		list     bool
		thermal  string
		high     thresholdValue
		highCrit thresholdValue
	}

	// thresholdValue is a pflag.Value that only accepts numbers inside the
	// threshold range, so bad values fail during flag parsing.
	thresholdValue struct {
		rng   thermal.Range
		value *float64
	}
)

func newThresholdCommand(app *App) *cobra.Command {
	opts := &thresholdOptions{
		high:     thresholdValue{rng: thermal.DefaultRange},
		highCrit: thresholdValue{rng: thermal.DefaultRange},
	}

	thresholdCmd := &cobra.Command{
		Use:   "threshold",
		Short: "modify thermal threshold",
		Long: `List thermals, show or change the high and high-critical thresholds of one.

The high threshold must stay below the high-critical threshold. When only one
side is changed the other side is read from the platform first.`,
		Example: `  as9817util threshold -l
  as9817util threshold -t "CPU Temp"
  as9817util threshold -t "CPU Temp" -ht 70 -hct 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runThreshold(cmd.Context(), app, opts)
		},
	}

	rng := thermal.DefaultRange
	flags := thresholdCmd.Flags()
	flags.BoolVarP(&opts.list, "list", "l", false, "list available thermals")
	flags.StringVarP(&opts.thermal, "thermal", "t", "", "thermal name, ex: -t 'Temp sensor 1'")
	flags.Var(&opts.high, "ht", fmt.Sprintf("high threshold: %.1f ~ %.1f (also -ht)", rng.Low, rng.High))
	flags.Var(&opts.highCrit, "hct", fmt.Sprintf("high critical threshold: %.1f ~ %.1f (also -hct)", rng.Low, rng.High))

	return thresholdCmd
}

func runThreshold(ctx context.Context, app *App, opts *thresholdOptions) error {
	if !opts.list && opts.thermal == "" {
		fmt.Fprintln(app.stdout, msgThermalRequired)
		return &ExitError{Code: ExitUsage}
	}

	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	client, err := app.thermalClient(ctx, cfg)
	if err != nil {
		return err
	}

	if opts.list {
		names, err := client.List(ctx)
		if err != nil {
			return thresholdFailure(app, err)
		}
		fmt.Fprintln(app.stdout, "Thermals: "+formatNames(names))
		return nil
	}

	if opts.high.value == nil && opts.highCrit.value == nil {
		return showThresholds(ctx, app, client, opts.thermal)
	}

	applied, err := client.SetThresholds(ctx, opts.thermal, opts.high.value, opts.highCrit.value)
	for _, msg := range applied {
		fmt.Fprintln(app.stdout, msg)
	}
	if err != nil {
		return thresholdFailure(app, err)
	}
	return nil
}

// showThresholds prints both thresholds of name. A side the platform does
// not implement is shown as N/A.
func showThresholds(ctx context.Context, app *App, client *thermal.Client, name string) error {
	high, err := client.HighThreshold(ctx, name)
	if err != nil && !errors.Is(err, thermal.ErrNotImplemented) {
		return thresholdFailure(app, err)
	}
	highText := formatThreshold(high, err)

	highCrit, err := client.HighCriticalThreshold(ctx, name)
	if err != nil && !errors.Is(err, thermal.ErrNotImplemented) {
		return thresholdFailure(app, err)
	}
	highCritText := formatThreshold(highCrit, err)

	fmt.Fprintln(app.stdout, TitleStyle.Render(name))
	fmt.Fprintln(app.stdout, labelStyle.Render("high")+highText)
	fmt.Fprintln(app.stdout, labelStyle.Render("high critical")+highCritText)
	return nil
}

// thresholdFailure prints the platform's message on stdout, a hint on
// stderr when one applies, and exits 1.
func thresholdFailure(app *App, err error) error {
	fmt.Fprintln(app.stdout, err.Error())

	var id issue.Id
	switch {
	case errors.Is(err, thermal.ErrThermalNotFound):
		id = issue.ThermalNotFoundId
	case errors.Is(err, thermal.ErrNotImplemented):
		id = issue.MethodNotImplementedId
	case errors.Is(err, thermal.ErrThresholdOrder), errors.Is(err, thermal.ErrOutOfRange):
		id = issue.ThresholdRejectedId
	case errors.Is(err, thermal.ErrEngineFailure):
		id = issue.ServiceContainerNotRunningId
	}
	if id != 0 && app.flags.debug {
		if rendered, renderErr := issue.Get(id).Render("auto"); renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
	}
	return &ExitError{Code: 1}
}

func formatNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}

func formatThreshold(v float64, err error) string {
	if err != nil {
		return WarningStyle.Render("N/A")
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

var _ pflag.Value = (*thresholdValue)(nil)

// String implements pflag.Value.
func (v *thresholdValue) String() string {
	if v.value == nil {
		return ""
	}
	return strconv.FormatFloat(*v.value, 'f', -1, 64)
}

// Set implements pflag.Value.
func (v *thresholdValue) Set(s string) error {
	f, err := v.rng.ParseThreshold(s)
	if err != nil {
		return err
	}
	v.value = &f
	return nil
}

// Type implements pflag.Value.
func (v *thresholdValue) Type() string {
	return "THRESHOLD_VALUE"
}

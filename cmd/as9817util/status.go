// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show driver, device and scratch file presence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			o, err := app.orchestrator(cfg, false)
			if err != nil {
				return err
			}
			d := o.Detector()
			w := app.stdout

			fmt.Fprintln(w, TitleStyle.Render(o.Platform().DisplayName()))
			fmt.Fprintln(w, labelStyle.Render("drivers")+presence(d.DriverPresent()))
			fmt.Fprintln(w, labelStyle.Render("devices")+presence(d.DeviceExist()))

			ready := ErrorStyle.Render("no")
			if d.SystemReady() {
				ready = SuccessStyle.Render("yes")
			}
			fmt.Fprintln(w, labelStyle.Render("ready")+ready)

			kernel, err := d.KernelRelease()
			if err != nil {
				kernel = WarningStyle.Render("unknown")
			}
			fmt.Fprintln(w, labelStyle.Render("kernel")+kernel)

			scratch := d.ScratchPresent()
			for _, path := range slices.Sorted(maps.Keys(scratch)) {
				fmt.Fprintln(w, labelStyle.Render("scratch")+presence(scratch[path])+" "+SubtitleStyle.Render(path))
			}
			return nil
		},
	}
}

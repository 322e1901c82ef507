// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accton/as9817util/internal/config"
)

// newConfigCommand creates the `as9817util config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Show as9817util configuration",
		Long: `Show as9817util configuration.

Configuration is read from the --config file, otherwise from the first of:
  - ` + config.SystemConfigDir + `/config.cue
  - $XDG_CONFIG_HOME/` + config.AppName + `/config.cue`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(app.stdout, "// source: %s\n", path)
			} else {
				fmt.Fprintln(app.stdout, "// source: built-in defaults")
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, path, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("(none, using defaults)"))
				return nil
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	return cfgCmd
}

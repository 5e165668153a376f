// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ansible-docker/ansible-docker/internal/config"
)

func newSettingsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the effective settings",
		Long: `Print the settings ansible-docker would use, after applying the settings
file and ANSIBLE_DOCKER_* environment variables, in settings file format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			cfg, path, err := config.Load(cmd.Context(), config.LoadOptions{SettingsPath: opts.settings})
			if err != nil {
				return renderFailure(cmd.ErrOrStderr(), err, opts.verbose)
			}

			out := cmd.OutOrStdout()
			if path == "" {
				path = "(none, defaults)"
			}
			fmt.Fprintf(out, "// source: %s\n", path)
			fmt.Fprint(out, config.GenerateCUE(cfg))
			return nil
		},
	}
}

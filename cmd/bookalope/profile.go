package main

import (
	"github.com/spf13/cobra"
)

func newProfileCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the authenticated user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts)
			if err != nil {
				return err
			}

			cli := buildClient(token, opts)
			profile, err := cli.Profile(cmd.Context())
			if err != nil {
				return err
			}

			return printOut(cmd, "%s %s (%s)", profile.Firstname, profile.Lastname, cli.Host())
		},
	}
}

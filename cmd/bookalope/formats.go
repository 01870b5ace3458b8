package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newFormatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported import and export file formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts)
			if err != nil {
				return err
			}

			cli := buildClient(token, opts)
			ctx := cmd.Context()

			importFormats, err := cli.ImportFormats(ctx)
			if err != nil {
				return err
			}
			exportFormats, err := cli.ExportFormats(ctx)
			if err != nil {
				return err
			}

			if err := printOut(cmd, "Import formats:"); err != nil {
				return err
			}
			for _, format := range importFormats {
				if err := printOut(cmd, "  %s (%s): %s", format.Name, format.MIME, strings.Join(format.FileExts, ", ")); err != nil {
					return err
				}
			}

			if err := printOut(cmd, "Export formats:"); err != nil {
				return err
			}
			for _, format := range exportFormats {
				if err := printOut(cmd, "  %s (%s): %s", format.Name, format.MIME, strings.Join(format.FileExts, ", ")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newStylesCmd(opts *cliOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List the design styles available for an export format",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts)
			if err != nil {
				return err
			}

			cli := buildClient(token, opts)
			styles, err := cli.Styles(cmd.Context(), format)
			if err != nil {
				return err
			}

			for _, style := range styles {
				if err := printOut(cmd, "%s: %s (%s)", style.ShortName, style.Name, style.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "icml", "Export format to list styles for")

	return cmd
}

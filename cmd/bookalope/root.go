package main

import (
	"time"

	"github.com/spf13/cobra"

	bookalope "github.com/bookalope/bookalope-go"
)

type cliOptions struct {
	token       string
	beta        bool
	baseURL     string
	timeout     time.Duration
	interval    time.Duration
	maxPoll     time.Duration
	configPath  string
	failLogPath string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "bookalope",
		Short:         "Bookalope document conversion CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "Bookalope API token (or set BOOKALOPE_TOKEN / BOOKALOPE_APIKEY)")
	cmd.PersistentFlags().BoolVar(&opts.beta, "beta", false, "Use the Bookalope beta host")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Override the Bookalope server URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", bookalope.DefaultTimeout, "HTTP timeout for API requests")
	cmd.PersistentFlags().DurationVar(&opts.interval, "interval", bookalope.DefaultPollInterval, "Polling interval for analysis and conversion status")
	cmd.PersistentFlags().DurationVar(&opts.maxPoll, "max-poll", bookalope.DefaultMaxPollDuration, "Maximum time to poll a long running operation")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the config file")
	cmd.PersistentFlags().StringVar(&opts.failLogPath, "fail-log", "fail.log", "Path to write failed operation logs")

	cmd.AddCommand(newConvertCmd(opts))
	cmd.AddCommand(newBooksCmd(opts))
	cmd.AddCommand(newStylesCmd(opts))
	cmd.AddCommand(newFormatsCmd(opts))
	cmd.AddCommand(newProfileCmd(opts))
	cmd.AddCommand(newCompletionCmd())

	return cmd
}

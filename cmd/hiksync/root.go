package main

import (
	"github.com/spf13/cobra"

	"hiksync/internal/config"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "hiksync",
		Short:         "Sync Hikvision NAS recordings into a per-camera archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			ctx.bind(cmd)
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.envFile, "env-file", "", "Load environment variables from this .env file (default ./.env when present)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (console, json)")
	ctx.addOverride(func(cmd *cobra.Command) bool { return cmd.Flags().Changed("log-level") }, func(c *config.Config) {
		c.Logging.Level = flags.logLevel
	})
	ctx.addOverride(func(cmd *cobra.Command) bool { return cmd.Flags().Changed("log-format") }, func(c *config.Config) {
		c.Logging.Format = flags.logFormat
	})

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newDiscoverCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

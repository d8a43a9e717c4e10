package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shopconsole",
		Short:         "Admin console backend for the Telegram shop bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		NewServeCommand(),
		NewExportCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}

func addConfigFlag(cmd *cobra.Command, configFile *string) {
	cmd.Flags().StringVarP(configFile, "conf", "c", "", "config file path")
}

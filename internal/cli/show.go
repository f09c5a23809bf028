package cli

import (
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/appconfig"
)

// showCmd represents the 'show' command group for displaying resources.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for displaying resources",
}

// showConfigCmd prints the merged configuration (flags > env > file > defaults).
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the config file is loaded properly and overridden by flags and GYAN_* environment variables accordingly.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return appconfig.ShowConfig(cmd.OutOrStdout(), configFileUsed(), GetConfig(), appconfig.Default())
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}

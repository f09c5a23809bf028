package cli

import (
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/mcp"
)

// mcpCmd serves the ask, search and list_subjects tools over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve retrieval as MCP tools over stdio",
	Long:  `Runs an MCP server on stdin/stdout. Log output goes to stderr and the log file so stdout stays reserved for the protocol.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		eng, err := bootstrap(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		srv, err := mcp.NewServer(eng.service, version)
		if err != nil {
			return err
		}
		return srv.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

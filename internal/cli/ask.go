package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/logging"
)

var askSubject string

// askCmd answers one question and exits.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question from the corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("query is required")
		}
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		eng, err := bootstrap(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := logging.WithRequestID(cmd.Context(), uuid.NewString())
		reply := eng.service.Ask(ctx, query, askSubject)
		logging.LogDump("reply", reply)
		fmt.Fprintln(cmd.OutOrStdout(), reply.Answer)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askSubject, "subject", "s", "", "subject label, e.g. Science")
	rootCmd.AddCommand(askCmd)
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/providers"
	"github.com/mwiater/gyan/internal/tui"
)

var chatSubject string

// startChat runs the TUI. Tests swap it out.
var startChat = tui.Run

// chatCmd opens the interactive chat screen.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question answering in the terminal",
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

		return startChat(cmd.Context(), eng.service, tui.Options{
			Host:      providers.HostIdentifier(cfg.Generator.Host, "unknown"),
			Model:     cfg.Generator.Model,
			Subject:   chatSubject,
			Generator: eng.service.Ready(),
			Entries:   eng.store.Len(),
			Debug:     cfg.Debug,
		})
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSubject, "subject", "s", "", "initial subject label")
	rootCmd.AddCommand(chatCmd)
}

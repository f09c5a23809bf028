package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/models"
)

var newModelHost = models.NewHost

// modelsCmd lists the models the configured generator host offers.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the generator host",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		host, err := newModelHost(cfg.Generator, healthCheckTimeout)
		if err != nil {
			return err
		}
		available, err := host.ListModels(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Host: %s (%s)\n", host.GetName(), host.GetType())
		if len(available) == 0 {
			fmt.Fprintln(out, "No models reported.")
			return nil
		}
		fmt.Fprintln(out, strings.Join(models.Format(available, cfg.Generator.Model), "\n"))
		if cfg.Generator.Model != "" && !models.Contains(available, cfg.Generator.Model) {
			fmt.Fprintf(out, "Configured model %s is not listed.\n", cfg.Generator.Model)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

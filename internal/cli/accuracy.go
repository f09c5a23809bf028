package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/accuracy"
)

var (
	accuracySuitePath  string
	accuracyResultsDir string
	accuracyTimeout    int
)

// accuracyCmd replays a question suite through retrieval and reports how often
// the expected passage wins.
var accuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Score retrieval against a suite of known questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		suite, err := accuracy.LoadSuite(accuracySuitePath)
		if err != nil {
			return err
		}
		eng, err := bootstrap(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		out := cmd.OutOrStdout()
		summary, err := accuracy.Run(cmd.Context(), eng.service.Retriever(), suite, accuracy.Options{
			ResultsDir: accuracyResultsDir,
			Timeout:    time.Duration(accuracyTimeout) * time.Second,
			Out:        out,
		})
		if err != nil {
			return err
		}
		printAccuracySummary(out, summary)
		return nil
	},
}

func printAccuracySummary(out io.Writer, s accuracy.Summary) {
	label := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(out, "%s %d of %d correct (%.1f%%), %d found, %d errors\n",
		label("Accuracy:"), s.Correct, s.Total, s.Accuracy()*100, s.Found, s.Errors)

	names := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := s.Categories[name]
		if name == "" {
			name = "uncategorized"
		}
		fmt.Fprintf(out, "  %-14s %d/%d\n", name, c.Correct, c.Total)
	}
}

func init() {
	accuracyCmd.Flags().StringVar(&accuracySuitePath, "suite", accuracy.DefaultSuitePath, "question suite JSON file")
	accuracyCmd.Flags().StringVar(&accuracyResultsDir, "results", accuracy.DefaultResultsDir, "directory for JSONL results; empty disables them")
	accuracyCmd.Flags().IntVar(&accuracyTimeout, "timeout", 30, "per-query timeout in seconds; 0 disables it")
	rootCmd.AddCommand(accuracyCmd)
}

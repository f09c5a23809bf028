package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/corpus"
	"github.com/mwiater/gyan/internal/logging"
)

var (
	importFrom string
	importTo   string
)

// corpusCmd groups corpus maintenance commands.
var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Corpus utilities",
}

// corpusImportCmd copies the valid entries of a JSON corpus into SQLite.
var corpusImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSON corpus into the SQLite store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		from := firstNonEmpty(importFrom, cfg.Assets.CorpusPath)
		to := firstNonEmpty(importTo, cfg.Corpus.SQLitePath)

		store, report, err := corpus.LoadJSON(from, cfg.Corpus.Dimension)
		if err != nil {
			return err
		}
		written, err := corpus.WriteSQLite(cmd.Context(), to, store.Entries())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printReport(out, report)
		fmt.Fprintf(out, "Wrote %d entries to %s\n", written, to)
		return nil
	},
}

// corpusStatsCmd loads the configured corpus and reports what it holds.
var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load the configured corpus and summarize it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		store, report, err := loadStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		logging.LogDump("load report", report)

		out := cmd.OutOrStdout()
		printReport(out, report)
		printSubjects(out, store.Subjects())
		return nil
	},
}

func printReport(out io.Writer, report corpus.LoadReport) {
	fmt.Fprintf(out, "Source:  %s\n", report.Source)
	fmt.Fprintf(out, "Total:   %d\n", report.Total)
	fmt.Fprintf(out, "Loaded:  %d\n", report.Loaded)
	fmt.Fprintf(out, "Invalid: %d\n", report.Invalid)
}

func printSubjects(out io.Writer, counts map[string]int) {
	subjects := make([]string, 0, len(counts))
	for s := range counts {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	fmt.Fprintln(out, "Subjects:")
	for _, s := range subjects {
		name := s
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(out, "  %-12s %d\n", name, counts[s])
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	corpusImportCmd.Flags().StringVar(&importFrom, "from", "", "JSON corpus to import (defaults to assets.corpusPath)")
	corpusImportCmd.Flags().StringVar(&importTo, "to", "", "SQLite database to write (defaults to corpus.sqlitePath)")
	corpusCmd.AddCommand(corpusImportCmd, corpusStatsCmd)
	rootCmd.AddCommand(corpusCmd)
}

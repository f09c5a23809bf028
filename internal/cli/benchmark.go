package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/benchmark"
)

var (
	benchmarkIterations  int
	benchmarkConcurrency int
	benchmarkSubject     string
	benchmarkResultsDir  string
)

// benchmarkCmd times repeated requests through the full pipeline.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark <query>",
	Short: "Time repeated answers to one query",
	Args:  cobra.MinimumNArgs(1),
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

		result, err := benchmark.Run(cmd.Context(), eng.service, benchmark.Options{
			Query:       strings.TrimSpace(strings.Join(args, " ")),
			Subject:     benchmarkSubject,
			Iterations:  benchmarkIterations,
			Concurrency: benchmarkConcurrency,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printBenchmarkResult(out, result)
		if benchmarkResultsDir != "" {
			path, err := benchmark.WriteResults(benchmarkResultsDir, result)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Results written to %s\n", path)
		}
		return nil
	},
}

func printBenchmarkResult(out io.Writer, r *benchmark.BenchmarkResult) {
	label := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(out, "%s %d iterations, %d workers, %s wall\n", label("Benchmark:"), len(r.Iterations), r.Concurrency, r.WallTime)

	outcomes := make([]string, 0, len(r.Outcomes))
	for name := range r.Outcomes {
		outcomes = append(outcomes, name)
	}
	sort.Strings(outcomes)
	for _, name := range outcomes {
		fmt.Fprintf(out, "%s %s=%d\n", label("Outcome:"), name, r.Outcomes[name])
	}

	rows := []struct {
		name  string
		stats benchmark.IterationStats
	}{
		{"avg", r.AverageStats},
		{"min", r.MinStats},
		{"max", r.MaxStats},
	}
	for _, row := range rows {
		s := row.stats
		fmt.Fprintf(out, "  %s total=%s tokenize=%s embed=%s rank=%s generate=%s\n",
			row.name, s.TotalExecutionTime, s.TokenizeTime, s.EmbedTime, s.RankTime, s.GenerateTime)
	}
}

func init() {
	benchmarkCmd.Flags().IntVarP(&benchmarkIterations, "iterations", "n", 10, "number of requests to send")
	benchmarkCmd.Flags().IntVar(&benchmarkConcurrency, "concurrency", 1, "number of concurrent workers")
	benchmarkCmd.Flags().StringVarP(&benchmarkSubject, "subject", "s", "", "subject label, e.g. Science")
	benchmarkCmd.Flags().StringVar(&benchmarkResultsDir, "results", benchmark.DefaultResultsDir, "directory for the JSON report; empty disables it")
	rootCmd.AddCommand(benchmarkCmd)
}

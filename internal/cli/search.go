package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/util"
)

var searchSubject string

// searchCmd runs retrieval only and prints the best passage with its scores.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the best matching passage without generating an answer",
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
		res, err := eng.service.Retriever().Retrieve(ctx, query, searchSubject)
		if err != nil && !errors.Is(err, rag.ErrNoMatch) {
			return err
		}
		logging.LogDump("result", res)
		printSearchResult(cmd.OutOrStdout(), res, err == nil)
		return nil
	},
}

func printSearchResult(out io.Writer, res rag.Result, found bool) {
	label := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(out, "%s %s\n", label("Query:"), res.Query)
	if !found {
		fmt.Fprintln(out, color.New(color.FgYellow).Sprint(rag.AnswerNoMatch))
		return
	}

	m := res.Match
	fmt.Fprintf(out, "%s %.4f (cosine %.4f + boost %.2f)\n", label("Best Match Score:"), m.Score, m.Cosine, m.Boost)
	fmt.Fprintf(out, "%s %d of %d candidates\n", label("Entry:"), m.Index, res.Candidates)
	fmt.Fprintf(out, "%s %s\n", label("Text:"), util.Preview(m.Entry.Text, 200))

	keys := make([]string, 0, len(m.Entry.Metadata))
	for k := range m.Entry.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s %s=%s\n", label("Metadata:"), k, m.Entry.Metadata[k])
	}
	fmt.Fprintf(out, "%s tokenize=%s embed=%s rank=%s\n", label("Timings:"), res.Timings.Tokenize, res.Timings.Embed, res.Timings.Rank)
}

func init() {
	searchCmd.Flags().StringVarP(&searchSubject, "subject", "s", "", "subject label, e.g. Science")
	rootCmd.AddCommand(searchCmd)
}

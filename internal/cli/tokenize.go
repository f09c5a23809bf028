package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/tokenizer"
)

var tokenizeJSON bool

// tokenizeCmd prints the fixed-length ID sequence the model would receive.
var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <text>",
	Short: "Print the 128 token IDs for a piece of text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		dict, err := tokenizer.LoadDictionary(cfg.Assets.DictionaryPath)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		ids := tokenizer.New(dict).Tokenize(text)
		out := cmd.OutOrStdout()

		if tokenizeJSON {
			data, err := json.Marshal(ids)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		words := tokenizer.CleanWords(text)
		fmt.Fprintf(out, "Words:   %s\n", strings.Join(words, " "))
		if missing := dict.Missing(words); len(missing) > 0 {
			fmt.Fprintf(out, "Unknown: %s\n", strings.Join(missing, " "))
		}
		fmt.Fprintf(out, "Active:  %d of %d\n", activeTokens(ids), len(ids))
		fmt.Fprintf(out, "IDs:     %s\n", joinIDs(ids))
		return nil
	},
}

func activeTokens(ids []int32) int {
	n := 0
	for _, id := range ids {
		if id != tokenizer.PadID {
			n++
		}
	}
	return n
}

func joinIDs(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " ")
}

func init() {
	tokenizeCmd.Flags().BoolVar(&tokenizeJSON, "json", false, "print the IDs as a JSON array")
	rootCmd.AddCommand(tokenizeCmd)
}

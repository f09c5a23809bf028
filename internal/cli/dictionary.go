package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/tokenizer"
)

// dictionaryCmd groups dictionary maintenance commands.
var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "Dictionary utilities",
}

// dictionaryAuditCmd lists words from text files that the dictionary cannot encode.
var dictionaryAuditCmd = &cobra.Command{
	Use:   "audit [text files...]",
	Short: "List words the dictionary does not cover",
	Long:  `Cleans each file with the tokenizer's rules and lists the distinct words missing from the dictionary. With no files, audits the common query words.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		dict, err := tokenizer.LoadDictionary(cfg.Assets.DictionaryPath)
		if err != nil {
			return err
		}
		return runDictionaryAudit(cmd.OutOrStdout(), dict, args)
	},
}

func runDictionaryAudit(out io.Writer, dict *tokenizer.Dictionary, files []string) error {
	words := tokenizer.CommonQueryWords
	source := "common query words"
	if len(files) > 0 {
		words = nil
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			words = append(words, tokenizer.CleanWords(string(data))...)
		}
		source = strings.Join(files, ", ")
	}

	missing := dict.Missing(words)
	fmt.Fprintf(out, "Dictionary: %d words\n", dict.Len())
	fmt.Fprintf(out, "Audited:    %s (%d words)\n", source, len(words))
	if len(missing) == 0 {
		fmt.Fprintln(out, color.New(color.FgGreen).Sprint("All words covered."))
		return nil
	}
	fmt.Fprintln(out, color.New(color.FgYellow).Sprintf("Missing %d words:", len(missing)))
	for _, w := range missing {
		fmt.Fprintf(out, "  %s\n", w)
	}
	return nil
}

func init() {
	dictionaryCmd.AddCommand(dictionaryAuditCmd)
	rootCmd.AddCommand(dictionaryCmd)
}

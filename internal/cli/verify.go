package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/models"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/tokenizer"
	"github.com/mwiater/gyan/internal/util"
)

const healthCheckTimeout = 5 * time.Second

var (
	passMark = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
)

// verifyCmd checks that every asset the engine loads is present and sane.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the dictionary, corpus, model and generator before going offline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		if !runVerify(cmd.Context(), cmd.OutOrStdout(), cfg) {
			return fmt.Errorf("data integrity check failed")
		}
		return nil
	},
}

// runVerify prints one line per check and reports whether all required checks passed.
func runVerify(ctx context.Context, out io.Writer, cfg appconfig.Config) bool {
	ok := true

	fmt.Fprintln(out, "Checking files...")
	corpusFile := cfg.Assets.CorpusPath
	if cfg.Corpus.Source == "sqlite" {
		corpusFile = cfg.Corpus.SQLitePath
	}
	for _, path := range []string{cfg.Assets.DictionaryPath, corpusFile, cfg.Assets.ModelPath} {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(out, "%s Missing: %s\n", failMark("FAIL"), path)
			ok = false
			continue
		}
		fmt.Fprintf(out, "%s Found: %s (%.2f MB)\n", passMark("OK"), path, float64(info.Size())/(1024*1024))
	}

	fmt.Fprintln(out, "\nVerifying dictionary...")
	dict, err := tokenizer.LoadDictionary(cfg.Assets.DictionaryPath)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", failMark("FAIL"), err)
		ok = false
	} else {
		fmt.Fprintf(out, "%s Dictionary loaded. Total words: %d\n", passMark("OK"), dict.Len())
		if missing := dict.Missing(tokenizer.CommonQueryWords); len(missing) > 0 {
			fmt.Fprintf(out, "%s Common query words missing: %s\n", warnMark("WARN"), strings.Join(missing, ", "))
		} else {
			fmt.Fprintf(out, "%s All common query words covered.\n", passMark("OK"))
		}
	}

	fmt.Fprintln(out, "\nVerifying corpus...")
	store, report, err := loadStore(ctx, cfg)
	switch {
	case err != nil:
		fmt.Fprintf(out, "%s %v\n", failMark("FAIL"), err)
		ok = false
	case report.Loaded == 0:
		fmt.Fprintf(out, "%s Corpus is empty (%d entries, %d invalid).\n", failMark("FAIL"), report.Total, report.Invalid)
		ok = false
	default:
		fmt.Fprintf(out, "%s Corpus loaded. %d of %d entries, dimension %d.\n", passMark("OK"), report.Loaded, report.Total, store.Dimension())
		if report.Invalid > 0 {
			fmt.Fprintf(out, "%s %d entries skipped (wrong dimension or non-finite values).\n", warnMark("WARN"), report.Invalid)
		}
		fmt.Fprintln(out, "\n--- Content Preview ---")
		for i, e := range store.Entries() {
			if i == 3 {
				break
			}
			source := e.Metadata["source"]
			if source == "" {
				source = "Unknown"
			}
			fmt.Fprintf(out, "[%d] %s: %s\n", i+1, source, util.Preview(e.Text, 100))
		}
	}

	fmt.Fprintln(out, "\nChecking generator...")
	gen, err := newGenerator(&cfg, nil)
	switch {
	case err != nil:
		fmt.Fprintf(out, "%s %v\n", failMark("FAIL"), err)
		ok = false
	case gen == nil:
		fmt.Fprintf(out, "%s No generator configured; answers will be %q.\n", warnMark("WARN"), rag.AnswerModelNotLoaded)
	default:
		hctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		if err := gen.Health(hctx); err != nil {
			fmt.Fprintf(out, "%s Generator unreachable at %s: %v\n", warnMark("WARN"), cfg.Generator.Host.URL, err)
		} else {
			fmt.Fprintf(out, "%s Generator reachable at %s\n", passMark("OK"), cfg.Generator.Host.URL)
			checkConfiguredModel(hctx, out, cfg)
		}
		cancel()
		_ = gen.Close()
	}

	if ok {
		fmt.Fprintln(out, "\n"+passMark("Data integrity check passed. The engine can run offline."))
	} else {
		fmt.Fprintln(out, "\n"+failMark("Data integrity check failed."))
	}
	return ok
}

// checkConfiguredModel warns when the host does not list the configured model.
func checkConfiguredModel(ctx context.Context, out io.Writer, cfg appconfig.Config) {
	if strings.TrimSpace(cfg.Generator.Model) == "" {
		return
	}
	host, err := newModelHost(cfg.Generator, healthCheckTimeout)
	if err != nil {
		return
	}
	available, err := host.ListModels(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(out, "%s Could not list models on %s: %v\n", warnMark("WARN"), host.GetName(), err)
	case models.Contains(available, cfg.Generator.Model):
		fmt.Fprintf(out, "%s Model %s available on %s\n", passMark("OK"), cfg.Generator.Model, host.GetName())
	default:
		fmt.Fprintf(out, "%s Model %s not listed on %s\n", warnMark("WARN"), cfg.Generator.Model, host.GetName())
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

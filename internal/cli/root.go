// internal/cli/root.go
// Package cli implements the gyan command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/gyan/internal/appconfig"
	"github.com/mwiater/gyan/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config

	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "gyan",
	Short:         "gyan: offline semantic question answering over a precomputed corpus",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1) Load config (file or defaults), flags win over file values.
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// 2) Keep the debug flag and the merged config in agreement.
		if !cmd.Flags().Changed("debug") {
			_ = cmd.Flags().Set("debug", strconv.FormatBool(cfg.Debug))
		}
		currentConfig = &cfg

		// 3) Logging. Commands that own stdout route the console copy elsewhere.
		return logging.InitTo(consoleFor(cmd), cfg.LogFilePath(), cfg.Debug)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// SetVersionInfo records build metadata shown by `gyan --version`.
func SetVersionInfo(v, c, d string) {
	version, commit, buildDate = v, c, d
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json or config/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("corpus", "", "corpus file (overrides assets.corpusPath)")
	rootCmd.PersistentFlags().String("generator-url", "", "generation host URL (overrides generator.host.url)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("assets.corpusPath", rootCmd.PersistentFlags().Lookup("corpus"))
	_ = viper.BindPFlag("generator.host.url", rootCmd.PersistentFlags().Lookup("generator-url"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.SetEnvPrefix(appconfig.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the config file into viper and decodes the merged result.
// A missing default config file falls back to defaults; a missing file named
// with --config is an error.
func loadConfig(cmd *cobra.Command) (appconfig.Config, error) {
	used := viper.ConfigFileUsed()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return appconfig.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("config") {
			return appconfig.Config{}, fmt.Errorf("no configuration file found at %q", cfgFile)
		}
		used = ""
	}
	return appconfig.Decode(viper.GetViper(), used)
}

// consoleFor picks where console log lines go: stdio MCP owns stdout, and the
// chat TUI owns the terminal.
func consoleFor(cmd *cobra.Command) io.Writer {
	switch cmd.Name() {
	case mcpCmd.Name():
		return os.Stderr
	case chatCmd.Name():
		return nil
	default:
		return cmd.ErrOrStderr()
	}
}

// GetConfig returns the merged configuration of the running command.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// configFileUsed reports the config file path, or "" when running on defaults.
func configFileUsed() string {
	if currentConfig == nil {
		return ""
	}
	return currentConfig.ConfigPath
}

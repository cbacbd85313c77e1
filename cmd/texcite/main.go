// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the texcite CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/texcite/internal/texparser"
	"github.com/pdiddy/texcite/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is the diagnostics sink shared by all subcommands.
var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "texcite"})

// rootCmd is the base command for the texcite CLI.
var rootCmd = &cobra.Command{
	Use:   "texcite",
	Short: "Find citation keys in LaTeX sources",
	Long: `texcite scans LaTeX files for citation commands (\cite, \citep,
\parencite, \footcite and friends), follows \input and \include directives,
and reports where every citation key is used.

Results can be printed, cross-checked against a bibliography, or stored in a
local SQLite index for later queries.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(viper.GetString("log_level"))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", viper.GetString("log_level"), err)
		}
		logger.SetLevel(level)

		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			color.NoColor = true
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./texcite.yaml or ~/.config/texcite/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "diagnostics level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSlice("cite-command", nil, "extra citation command pattern (repeatable), e.g. \"[cC]itefield\"")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable coloured output")

	viper.SetDefault("log_level", "warn")
	viper.SetDefault("index_dir", ".texcite")
	viper.SetDefault("max_results", 50)

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("cite_commands", rootCmd.PersistentFlags().Lookup("cite-command"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("texcite")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "texcite"))
		}
	}

	viper.SetEnvPrefix("TEXCITE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the typed configuration from viper.
func loadConfig() types.Config {
	return types.Config{
		Parser: types.ParserConfig{
			CiteCommands: viper.GetStringSlice("cite_commands"),
			LogLevel:     viper.GetString("log_level"),
		},
		Index: types.IndexConfig{
			IndexDir:   viper.GetString("index_dir"),
			MaxResults: viper.GetInt("max_results"),
		},
		Report: types.ReportConfig{
			Bibliography: viper.GetString("bibliography"),
			CheckYears:   viper.GetBool("check_years"),
		},
	}
}

// newParser builds a parser from the configured citation commands.
func newParser(cfg types.ParserConfig) (*texparser.Parser, error) {
	matcher, err := texparser.WithExtraCommands(cfg.CiteCommands...)
	if err != nil {
		return nil, err
	}
	return texparser.New(
		texparser.WithCitationMatcher(matcher),
		texparser.WithLogger(logger),
	), nil
}

// parseFiles runs the parser and turns cancellation into a CLI error.
func parseFiles(ctx context.Context, cfg types.ParserConfig, files []string) (*types.ParseResult, error) {
	p, err := newParser(cfg)
	if err != nil {
		return nil, err
	}
	result, err := p.Parse(ctx, files)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.New("parsing has been interrupted")
		}
		return nil, err
	}
	return result, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// Package cli provides the command-line interface for ratingprep.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/ratingprep/internal/config"
	"github.com/JonMunkholm/ratingprep/internal/core"
	_ "github.com/JonMunkholm/ratingprep/internal/core/catalogs" // Register built-in catalogs
	"github.com/JonMunkholm/ratingprep/internal/logging"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var Version = "0.1.0"

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates the root command. Flags override values from cfg.
func NewRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ratingprep",
		Short: "Convert and clean motor insurance rating exports",
		Long: `ratingprep converts a pipe-delimited rating export into a comma-separated
cache file and normalizes its columns into typed values: dates, floats,
nullable integers, 0/1 flags and categoricals.

Configuration comes from the environment (and a .env file); flags win.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx, _ = logging.WithRunID(ctx)
			logging.FromContext(ctx).Debug("run started", "command", cmd.Name(), "config", cfg.String())
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("input", "i", cfg.Convert.InputPath, "Raw delimited source file")
	flags.StringP("output", "o", cfg.Convert.OutputPath, "Comma-separated cache file")
	flags.StringP("delimiter", "d", cfg.Convert.SourceDelimiter, "Source delimiter (char or pipe|comma|tab|semicolon)")
	flags.StringP("encoding", "e", cfg.Convert.SourceEncoding, "Source encoding (utf-8|utf-8-lossy|latin1|windows-1252)")
	flags.StringP("catalog", "c", cfg.Normalize.Catalog, "Rule catalog to apply")

	_ = rootCmd.RegisterFlagCompletionFunc("encoding", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{core.EncodingUTF8, core.EncodingUTF8Lossy, core.EncodingLatin1, core.EncodingWindows1252}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("catalog", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return core.CatalogNames(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newCatalogsCommand())

	return rootCmd
}

// Execute runs the root command with args from os.Args.
func Execute(ctx context.Context, cfg *config.Config) error {
	rootCmd := NewRootCmd(cfg)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		return err
	}
	return nil
}

// printError writes the technical error and, when it maps to a code, the
// user message with its action.
func printError(w io.Writer, err error) {
	ue := core.NewUserError(err)
	fmt.Fprintf(w, "Error: %v\n", ue.Technical)
	if core.IsUserFacing(err) {
		fmt.Fprintf(w, "%s\n", core.FormatUserError(err))
	}
}

// applyFlags copies explicitly set persistent flags into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	targets := map[string]*string{
		"input":     &cfg.Convert.InputPath,
		"output":    &cfg.Convert.OutputPath,
		"delimiter": &cfg.Convert.SourceDelimiter,
		"encoding":  &cfg.Convert.SourceEncoding,
		"catalog":   &cfg.Normalize.Catalog,
	}
	flags := cmd.Flags()
	for name, dst := range targets {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// getConfig retrieves the config stored by PersistentPreRunE.
func getConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{}
}

// converterOptions builds converter options from the effective config.
func converterOptions(cfg *config.Config) (core.Options, error) {
	delim, err := core.ParseDelimiter(cfg.Convert.SourceDelimiter)
	if err != nil {
		return core.Options{}, err
	}
	return core.Options{
		InputPath:       cfg.Convert.InputPath,
		OutputPath:      cfg.Convert.OutputPath,
		SourceDelimiter: delim,
		Encoding:        cfg.Convert.SourceEncoding,
	}, nil
}

// loadTable runs Converter.Load with the effective config.
func loadTable(ctx context.Context, cfg *config.Config) (*core.Table, error) {
	opts, err := converterOptions(cfg)
	if err != nil {
		return nil, err
	}
	conv, err := core.NewConverter(opts)
	if err != nil {
		return nil, err
	}
	return conv.Load(ctx)
}

// cleanTable loads the cache and applies the configured catalog.
func cleanTable(ctx context.Context, cfg *config.Config) (*core.Table, core.Report, error) {
	cat, err := core.GetCatalog(cfg.Normalize.Catalog)
	if err != nil {
		return nil, core.Report{}, err
	}
	t, err := loadTable(ctx, cfg)
	if err != nil {
		return nil, core.Report{}, err
	}
	n := core.NewNormalizer(cat, core.WithCategoryThreshold(cfg.Normalize.CategoryThreshold))
	return n.Clean(ctx, t)
}

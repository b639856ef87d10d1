package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/ratingprep/internal/core"
	"github.com/JonMunkholm/ratingprep/internal/logging"
	"github.com/JonMunkholm/ratingprep/internal/store"
	"github.com/JonMunkholm/ratingprep/internal/web"
	"github.com/spf13/cobra"
)

func newConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert",
		Short: "Convert the delimited source into the comma-separated cache",
		Example: `  # Convert with settings from the environment
  ratingprep convert

  # Convert a semicolon-delimited Latin-1 export
  ratingprep convert -i export.txt -o export.csv -d semicolon -e latin1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			opts, err := converterOptions(cfg)
			if err != nil {
				return err
			}
			conv, err := core.NewConverter(opts)
			if err != nil {
				return err
			}
			out, err := conv.Convert(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newLoadCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the cache (converting first if missing) and summarize its columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := loadTable(cmd.Context(), getConfig(cmd.Context()))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), core.Summarize(t))
			}
			renderSummary(cmd.OutOrStdout(), t.Len(), core.Summarize(t))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func newCleanCommand() *cobra.Command {
	var (
		writePath string
		threshold float64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Load the cache and normalize column types with a catalog",
		Example: `  # Clean and print the column summary
  ratingprep clean

  # Clean and keep the typed table
  ratingprep clean --write data/cleaned.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			if cmd.Flags().Changed("threshold") {
				cfg.Normalize.CategoryThreshold = threshold
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			t, report, err := cleanTable(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if writePath != "" {
				if err := core.WriteTableFile(writePath, t); err != nil {
					return err
				}
				logging.FromContext(cmd.Context()).Info("cleaned table written", "path", writePath, "rows", t.Len())
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"columns": core.Summarize(t),
					"report":  report,
				})
			}
			renderSummary(cmd.OutOrStdout(), t.Len(), core.Summarize(t))
			renderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&writePath, "write", "w", "", "Write the cleaned table as CSV to this path")
	cmd.Flags().Float64Var(&threshold, "threshold", core.DefaultCategoryThreshold, "Categorical promotion ratio (0, 1]")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print summary and report as JSON")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		table   string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Clean the cache and copy it into a Postgres table",
		Example: `  # Replace the configured export table
  DATABASE_URL=postgres://localhost/rating ratingprep export --replace`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := getConfig(ctx)
			if table == "" {
				table = cfg.Database.ExportTable
			}

			pool, err := store.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			t, _, err := cleanTable(ctx, cfg)
			if err != nil {
				return err
			}

			n, err := store.NewExporter(pool).Export(ctx, table, t, replace)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", n, table)
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "Destination table (default EXPORT_TABLE)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop the table before exporting")
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())
			server := web.NewServer(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger := logging.FromContext(cmd.Context())
			logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", "error", err)
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}
}

func newCatalogsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalogs",
		Short: "List registered rule catalogs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats := core.Catalogs()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), cats)
			}
			renderCatalogs(cmd.OutOrStdout(), cats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print catalogs with their rules as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

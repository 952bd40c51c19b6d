package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"foodgram/internal/catalog"
	"foodgram/internal/config"
	"foodgram/internal/db"
	applog "foodgram/internal/log"
)

const defaultDataPath = "data/ingredients.json"

var loadConfigFunc = config.Load

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	format      string
	databaseURL string
	logLevel    string
}

func newRootCommand() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "import_ingredients [file]",
		Short: "Load ingredients and measurement units into the catalog",
		Long: "Reads ingredient rows (name and measurement_unit) from a JSON array or a CSV file\n" +
			"with a header and adds the ones the catalog does not have yet.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultDataPath
			if len(args) == 1 {
				path = args[0]
			}
			return runImport(cmd, path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "input format: json or csv (default: guessed from the file extension)")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "database to import into (default: DATABASE_URL from the environment)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	return cmd
}

func runImport(cmd *cobra.Command, path string, opts options) error {
	ctx := cmd.Context()
	if err := applog.SetLevel(opts.logLevel); err != nil {
		return err
	}

	format := strings.TrimSpace(opts.format)
	if format == "" {
		format = catalog.FormatFromPath(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	rows, err := catalog.ReadRows(file, format)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	dbCfg, err := databaseConfig(opts.databaseURL)
	if err != nil {
		return err
	}
	database, err := db.Initialize(dbCfg)
	if err != nil {
		return err
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	applog.Info(ctx, "importing ingredients", "path", path, "format", format, "rows", len(rows))
	summary, err := catalog.NewImporter(db.NewTxRunner(database)).Import(ctx, rows)
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	return err
}

func databaseConfig(url string) (config.DatabaseConfig, error) {
	if url = strings.TrimSpace(url); url != "" {
		return config.DatabaseConfig{URL: url}, nil
	}
	cfg, err := loadConfigFunc()
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg.Database, nil
}

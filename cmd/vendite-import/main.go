// Command vendite-import loads a sales CSV into the SQLite row store so the
// server can be run with DATA_SOURCE=sqlite.
package main

import (
	"context"
	"flag"
	"os"

	"vendite/internal/cli"
	"vendite/internal/dataset"
	"vendite/internal/source/csvfile"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	csvPath := flag.String("csv", cfg.CSVPath, "path to the sales CSV file")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "path to the SQLite database")
	clear := flag.Bool("clear", false, "clear existing rows before importing")
	flag.Parse()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	rows, err := csvfile.New(*csvPath).Rows(ctx)
	if err != nil {
		logger.Error("Failed to read CSV", "error", err, "path", *csvPath)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, *dbPath)
	defer repo.Close()

	if *clear {
		if err := repo.Clear(ctx); err != nil {
			logger.Error("Failed to clear existing rows", "error", err)
			os.Exit(1)
		}
	}

	if err := repo.ImportRows(ctx, rows); err != nil {
		logger.Error("Failed to import rows", "error", err)
		os.Exit(1)
	}

	// Parse what was imported so operators see up front how many rows the
	// server will drop at load time.
	store, rejected := dataset.Load(rows)
	total, err := repo.CountRows(ctx)
	if err != nil {
		logger.Error("Failed to count rows", "error", err)
		os.Exit(1)
	}

	logger.Info("Import complete",
		"imported", len(rows),
		"total", total,
		"valid", store.Len(),
		"rejected", rejected,
		"db", *dbPath)
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"vendite/internal/aggregate"
	"vendite/internal/amqp"
	"vendite/internal/cli"
	"vendite/internal/config"
	"vendite/internal/core"
	"vendite/internal/dashboard"
	"vendite/internal/dataset"
	apphttp "vendite/internal/http"
	applog "vendite/internal/log"
	"vendite/internal/source"
	"vendite/internal/source/csvfile"
	"vendite/internal/source/google"
	"vendite/internal/source/sqlitesrc"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// Pick the ingestion backend and load the full dataset before the
	// coordinator or the server exist. Malformed rows are dropped and
	// counted, never fatal.
	src := newRowSource(ctx, cfg, logger)
	rows, err := src.Rows(ctx)
	if err != nil {
		logger.Error("Failed to load rows", "error", err, "source", cfg.DataSource)
		os.Exit(1)
	}
	store, rejected := dataset.Load(rows)
	logger.Info("Dataset loaded",
		"source", cfg.DataSource,
		"records", store.Len(),
		"rejected", rejected,
		"categories", len(store.Categories()),
		"regions", len(store.Regions()))

	opts := []dashboard.Option{dashboard.WithLogger(logger)}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Selection changes still apply locally without the bridge.
			logger.Error("Failed to initialize AMQP client, continuing without publisher", "error", err)
		} else {
			defer amqpClient.Close()
			opts = append(opts, dashboard.WithPublisher(amqpClient))
			logger.Info("AMQP selection bridge enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	coord := dashboard.New(store, opts...)
	views, err := registerViews(coord, cfg)
	if err != nil {
		logger.Error("Failed to register views", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, coord, views, apphttp.Options{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Logger:    applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting vendite server", "port", cfg.Port, "views", len(views))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func newRowSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) source.RowSource {
	switch cfg.DataSource {
	case "sheets":
		src, err := google.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets source", "error", err)
			os.Exit(1)
		}
		logger.Info("Initialized Google Sheets source", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return src
	case "sqlite":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		logger.Info("Initialized SQLite source", "path", cfg.SQLiteDBPath)
		return sqlitesrc.New(repo)
	default:
		logger.Info("Initialized CSV source", "path", cfg.CSVPath)
		return csvfile.New(cfg.CSVPath)
	}
}

// registerViews wires the standard dashboard views: category and monthly
// totals, the region map (optionally truncated to the largest N regions),
// and the region transaction counts.
func registerViews(coord *dashboard.Coordinator, cfg *config.Config) ([]apphttp.NamedView, error) {
	specs := []struct {
		name string
		spec aggregate.Spec
	}{
		{"category-totals", aggregate.Spec{Dimension: core.DimensionCategory, Measure: core.MeasureAmount}},
		{"monthly-trend", aggregate.Spec{Dimension: core.DimensionMonth, Measure: core.MeasureAmount}},
		{"region-totals", aggregate.Spec{Dimension: core.DimensionRegion, Measure: core.MeasureAmount, TopN: cfg.RegionTopN, FillRegions: cfg.RegionTopN == 0}},
		{"region-counts", aggregate.Spec{Dimension: core.DimensionRegion, Measure: core.MeasureCount}},
	}

	views := make([]apphttp.NamedView, 0, len(specs))
	for _, s := range specs {
		h, err := coord.RegisterView(s.spec)
		if err != nil {
			return nil, err
		}
		views = append(views, apphttp.NamedView{Name: s.name, Handle: h})
	}
	return views, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	fsAdapter "github.com/bft-labs/rowship/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/rowship/internal/adapters/http"
	logAdapter "github.com/bft-labs/rowship/internal/adapters/log"
	sqlAdapter "github.com/bft-labs/rowship/internal/adapters/sql"
	"github.com/bft-labs/rowship/internal/app"
	"github.com/bft-labs/rowship/internal/catalog"
	"github.com/bft-labs/rowship/internal/cliconfig"
	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/metrics"
	"github.com/bft-labs/rowship/internal/ports"
	"github.com/bft-labs/rowship/internal/transcode"
)

// pushTimeout bounds the metrics push after a pass.
const pushTimeout = 10 * time.Second

func runSync(ctx context.Context, cfg cliconfig.Config, logger zerolog.Logger) error {
	log := logAdapter.NewZerologAdapterWithLogger(logger).With(ports.String("component", "sync"))

	driver, dsn := cfg.DataSource()
	src, err := sqlAdapter.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer src.Close()

	client := httpAdapter.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.ServiceURL, cfg.UserID, log)
	repo := fsAdapter.NewStateFileRepository(cfg.StateDir)
	recorder := metrics.NewRecorder()

	engine := app.NewEngine(app.EngineConfig{
		FullResync: cfg.FullResync,
		AllowEdit:  cfg.Edit,
		Checkpoint: app.CheckpointMode(cfg.Checkpoint),
		Username:   cfg.Username,
		Password:   cfg.Password,
	}, src, client, transcode.Default(), repo, log, recorder)

	tables := func() ([]domain.TableMapping, error) {
		return catalog.Load(cfg.CatalogPath)
	}
	afterPass := func(_ context.Context, _ app.Report, _ error) {
		pushMetrics(recorder, cfg.PushgatewayURL, log)
	}

	if !cfg.Watch {
		mappings, err := tables()
		if err != nil {
			return err
		}
		report, err := engine.Run(ctx, mappings)
		afterPass(ctx, report, err)
		return err
	}

	watcher := fsAdapter.NewCatalogWatcher(cfg.CatalogPath, fsAdapter.DefaultDebounceDelay, log)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			log.Warn("catalog changes will not trigger passes", ports.Err(err))
		}
	}()

	loop := app.NewLoop(app.LoopConfig{PollInterval: cfg.PollInterval}, engine, tables, watcher.C(), log)
	loop.AfterPass = afterPass

	log.Info("watching", ports.Duration("poll", cfg.PollInterval), ports.String("catalog", cfg.CatalogPath))
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}
	log.Info("stopped")
	return nil
}

// pushMetrics runs on its own context so metrics of an interrupted pass
// still reach the gateway.
func pushMetrics(recorder *metrics.Recorder, url string, log ports.Logger) {
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := recorder.Push(ctx, url, "rowship"); err != nil {
		log.Warn("metrics push failed", ports.Err(err))
	}
}

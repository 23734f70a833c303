package main

import (
	"context"
	"fmt"
	"os"

	"github.com/asaidimu/go-cdibase/config"
	"github.com/asaidimu/go-cdibase/core/persistence"
	"github.com/asaidimu/go-cdibase/core/report"
	"github.com/asaidimu/go-cdibase/formats"
	"github.com/asaidimu/go-cdibase/sqlstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	logger   *zap.Logger
	store    *sqlstore.Store
	formats  *formats.Manager
	registry *prometheus.Registry
	metrics  *persistence.Metrics
	events   *persistence.EventBus
}

func (a *app) open(ctx context.Context, configFile string) error {
	cfg, err := config.Load(a.v, configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger, err = config.NewLogger(cfg.Log); err != nil {
		return err
	}
	if a.events, err = persistence.NewEventBus(); err != nil {
		return err
	}
	a.registry = prometheus.NewRegistry()
	a.metrics = persistence.NewMetrics(a.registry)

	a.store, err = sqlstore.Open(ctx, sqlstore.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Table:  cfg.Database.Table,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}

	files, err := formats.NewFileStore(cfg.Uploads.Dir, a.logger)
	if err != nil {
		return err
	}
	a.formats = formats.NewManager(files, a.store, a.logger)
	return nil
}

func (a *app) close() error {
	var firstErr error
	if a.cfg != nil && a.cfg.Metrics.Output != "" && a.registry != nil {
		if err := a.dumpMetrics(a.cfg.Metrics.Output); err != nil {
			firstErr = err
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return firstErr
}

func (a *app) dumpMetrics(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics output: %w", err)
	}
	defer f.Close()
	return persistence.WriteMetrics(f, a.registry)
}

func (a *app) executor(strict bool) *persistence.Executor {
	return persistence.NewExecutor(a.store, persistence.ExecutorOptions{
		Collection: a.store.Table(),
		Strict:     strict,
		Logger:     a.logger,
		Events:     a.events,
		Metrics:    a.metrics,
	})
}

func (a *app) generator() *report.Generator {
	return report.NewGenerator(a.store, a.formats, report.GeneratorOptions{
		DefaultCDIFormat: a.cfg.Report.DefaultCDIFormat,
		Logger:           a.logger,
		Events:           a.events,
		Metrics:          a.metrics,
	})
}

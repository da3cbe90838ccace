package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"Checkout/internal/catalog"
	"Checkout/internal/config"
	"Checkout/migrations"
	"Checkout/pkg/kit"
)

func main() {
	service := "catalog"

	cfg, err := config.Load()
	if err != nil {
		log := kit.NewLogger(service, "info")
		log.Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	store := catalog.NewStore()
	if cfg.DatabaseURL != "" {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			log.Fatal("apply migrations failed", zap.Error(err))
		}

		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open database failed", zap.Error(err))
		}
		defer db.Close()
		store = catalog.NewPostgresStore(db)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	snap, err := catalog.LoadSnapshot(ctx, store)
	cancel()
	if err != nil {
		log.Fatal("load catalog failed", zap.Error(err))
	}

	h := catalog.NewHandler(&catalog.Server{Catalog: snap, Store: store}, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(cfg.HTTPAddr(), h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

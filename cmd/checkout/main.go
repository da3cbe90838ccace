package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Checkout/internal/auth"
	"Checkout/internal/basket"
	"Checkout/internal/catalog"
	"Checkout/internal/checkout"
	"Checkout/internal/config"
	"Checkout/internal/pricing"
	"Checkout/migrations"
	"Checkout/pkg/kit"
)

const snapshotTimeout = 5 * time.Second

func main() {
	service := "checkout"

	cfg, err := config.Load()
	if err != nil {
		log := kit.NewLogger(service, "info")
		log.Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	var (
		catalogStore  catalog.Store  = catalog.NewStore()
		receiptsStore checkout.Store = checkout.NewStore()
	)

	if cfg.DatabaseURL != "" {
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			log.Fatal("apply migrations failed", zap.Error(err))
		}

		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open database failed", zap.Error(err))
		}
		defer db.Close()

		catalogStore = catalog.NewPostgresStore(db)
		receiptsStore = checkout.NewPostgresStore(db)
		log.Info("using postgres stores")
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	snap, err := catalog.LoadSnapshot(ctx, catalogStore)
	cancel()
	if err != nil {
		log.Fatal("load catalog failed", zap.Error(err))
	}
	log.Info("catalog loaded", zap.Int("products", snap.Len()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &checkout.Server{
		Calculator: basket.NewCalculator(snap, snap, pricing.DefaultSet()),
		Store:      receiptsStore,
		Log:        log,
		Metrics:    checkout.NewMetrics(reg),
	}

	h := checkout.NewHandler(s, checkout.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		Tokens:         auth.NewTokenMaker(cfg.JWTSecret),
		RateLimit:      cfg.RateLimit,
		Catalog:        &catalog.Server{Catalog: snap, Store: catalogStore},
	})

	if err := kit.RunHTTPServer(cfg.HTTPAddr(), h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

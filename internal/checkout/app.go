package checkout

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Checkout/internal/auth"
	"Checkout/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	Tokens    *auth.TokenMaker
	RateLimit int

	// Catalog is mounted under /products when set.
	Catalog CatalogAPI
}

type CatalogAPI interface {
	Routes() http.Handler
	Ping(ctx context.Context) error
}

const (
	readyTimeout = 2 * time.Second
	limitWindow  = 60 * time.Second
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

		if deps.MetricsEnabled {
			r.With(kit.MetricsAuth(deps.MetricsToken)).
				Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", readyz(s, deps))

	if deps.Catalog != nil {
		r.Mount("/products", deps.Catalog.Routes())
	}

	limiter := kit.NewIPRateLimiter(rateLimit(deps), int(limitWindow.Seconds()))
	r.With(limiter.Middleware).Post("/checkout/total", s.QuoteHandler())

	if deps.Tokens != nil {
		r.Group(func(pr chi.Router) {
			pr.Use(auth.RequireShopper(deps.Tokens))
			pr.With(limiter.Middleware).Post("/receipts", s.CreateReceiptHandler())
			pr.Get("/receipts/{id}", s.GetReceiptHandler())
		})
	} else if deps.Log != nil {
		deps.Log.Warn("no token maker configured, receipts disabled")
	}

	return r
}

func rateLimit(deps HTTPDeps) int {
	if deps.RateLimit > 0 {
		return deps.RateLimit
	}
	return 120
}

func readyz(s *Server, deps HTTPDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if deps.Catalog != nil {
			if err := deps.Catalog.Ping(ctx); err != nil {
				if deps.Log != nil {
					deps.Log.Warn("readyz failed: catalog", zap.Error(err))
				}
				kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
				return
			}
		}

		if err := s.Store.Ping(ctx); err != nil {
			if deps.Log != nil {
				deps.Log.Warn("readyz failed: receipts", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusServiceUnavailable, "receipts not ready", nil)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

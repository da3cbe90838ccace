package catalog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Checkout/pkg/kit"
)

type Server struct {
	Catalog *Snapshot
	Store   Store
}

// Routes serves the product list at "/" and one product at "/{name}". Mount it
// under /products.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.list)
	r.Get("/{name}", s.get)

	return r
}

// Ping reports whether the backing store is reachable. The snapshot itself
// never changes after startup.
func (s *Server) Ping(ctx context.Context) error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Ping(ctx)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Catalog.List())
}

// get reads the product from the store when one is configured so the response
// reflects the current row, and from the startup snapshot otherwise.
func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var (
		p   Product
		ok  bool
		err error
	)
	if s.Store != nil {
		p, ok, err = s.Store.Get(r.Context(), name)
	} else {
		p, ok = s.Catalog.Get(name)
	}

	if err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"name": name})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

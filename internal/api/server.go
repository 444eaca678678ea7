package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/tagcat/internal/config"
	"github.com/dgallion1/tagcat/internal/stats"
	"github.com/dgallion1/tagcat/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for tagcat.
type Server struct {
	router chi.Router
	store  *store.Store
	stats  *stats.ParseStats
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(st *store.Store, ps *stats.ParseStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store: st,
		stats: ps,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.TagcatAPIKey, s.log))

		r.Post("/api/parse", s.handleParse)

		r.Post("/api/catalogs", s.handleUploadCatalog)
		r.Get("/api/catalogs", s.handleListCatalogs)
		r.Get("/api/catalogs/{catalogID}", s.handleGetCatalog)
		r.Delete("/api/catalogs/{catalogID}", s.handleDeleteCatalog)

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leca/tiered-images/internal/api"
	"github.com/leca/tiered-images/internal/auth"
	"github.com/leca/tiered-images/internal/config"
	"github.com/leca/tiered-images/internal/database"
	"github.com/leca/tiered-images/internal/entitlement"
	"github.com/leca/tiered-images/internal/handler"
	"github.com/leca/tiered-images/internal/pipeline"
	"github.com/leca/tiered-images/internal/signer"
	"github.com/leca/tiered-images/internal/storage"
	"github.com/leca/tiered-images/internal/tier"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	DB       database.Database
	Store    storage.Storage
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Router   chi.Router
}

// New creates a new Server with a fully configured chi router.
func New(db database.Database, store storage.Storage, cfg *config.Config) *Server {
	tiers := tier.NewRegistry(db)
	links := signer.New(cfg.LinkSecret)
	p := pipeline.New(db, tiers, store, links, pipeline.Options{
		Workers:     cfg.Workers,
		StepTimeout: cfg.StepTimeout,
		MaxPixels:   cfg.MaxPixels,
	})
	s := &Server{DB: db, Store: store, Config: cfg, Pipeline: p}

	h := &handler.Handler{
		DB:       db,
		Store:    store,
		Pipeline: p,
		Gate:     entitlement.NewGate(store),
		Tiers:    tiers,
		Signer:   links,
		Config:   cfg,
	}
	authn := auth.NewAuthenticator(cfg.JWTSecret)

	r := chi.NewRouter()

	// CORS must run before other middleware to answer preflight OPTIONS.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.TrustProxyHeaders {
		r.Use(api.ForwardedProto)
	}

	// Health check (no auth required).
	r.Get("/health", s.Health)

	// Stored objects; signed links are checked by the handler.
	r.Get("/media/*", h.ServeMedia)

	r.Group(func(r chi.Router) {
		r.Use(api.AuthMiddleware(authn, db))

		r.Get("/account_tiers", h.ListTiers)
		r.Get("/account_tiers/{tier_id}", h.GetTier)

		r.Post("/images", h.UploadImage)
		r.Get("/images", h.ListImages)
		r.Get("/images/{image_id}", h.GetImage)

		r.Get("/user_images", h.ListImages)
		r.Get("/user_images/{image_id}/{artifact}", h.GetImageArtifact)
	})

	s.Router = r
	return s
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

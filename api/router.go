package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	store       MenuStore
	pinger      Pinger
	logger      *zap.Logger
	corsOrigins []string
}

func NewRouter(store MenuStore, pinger Pinger, logger *zap.Logger, corsOrigins []string) *Router {
	return &Router{
		store:       store,
		pinger:      pinger,
		logger:      logger,
		corsOrigins: corsOrigins,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	menus := NewMenuHandler(rt.store, rt.logger)
	router.Route("/menus", func(r chi.Router) {
		r.Get("/", menus.ListMenus)
		r.Post("/", menus.CreateMenu)
		r.Get("/{id}", menus.GetMenu)
		r.Get("/{id}/specific", menus.GetMenuDetail)
		r.Put("/{id}", menus.UpdateMenu)
		r.Delete("/{id}", menus.DeleteMenu)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, rt.logger, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck pings the store with a short deadline.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := rt.pinger.Ping(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		respondJSON(w, rt.logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, rt.logger, http.StatusOK, map[string]string{"status": "ready"})
}

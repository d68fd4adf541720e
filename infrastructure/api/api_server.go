package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/finsight-ai/finsight"
	apimiddleware "github.com/finsight-ai/finsight/infrastructure/api/middleware"
	v1 "github.com/finsight-ai/finsight/infrastructure/api/v1"
)

// APIServer provides an HTTP API backed by a finsight Client.
type APIServer struct {
	client       *finsight.Client
	apiKeys      []string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given finsight
// Client. apiKeys configures write-protection: mutating endpoints on
// /api/v1/companies require a valid key. Chat and read-only endpoints
// remain open.
func NewAPIServer(client *finsight.Client, apiKeys []string) *APIServer {
	return &APIServer{
		client:  client,
		apiKeys: apiKeys,
		logger:  client.Logger(),
	}
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call
// MountRoutes(). If not called, ListenAndServe creates a default router
// with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all v1 API routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

// mountRoutes wires up all v1 API routes on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	chatRouter := v1.NewChatRouter(a.client)
	companiesRouter := v1.NewCompaniesRouter(a.client)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", apimiddleware.APIKeyHeader},
			MaxAge:         300,
		}))
		r.Use(apimiddleware.Logging(a.logger))
		r.Use(chimiddleware.Timeout(120 * time.Second))

		// Chat is a read-only POST and stays open.
		r.Mount("/chat", chatRouter.Routes())

		// Write-protected routes — mutating methods require a valid API key.
		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.WriteProtectAuth(a.apiKeys))
			r.Mount("/companies", companiesRouter.Routes())
		})
	})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server

	if a.routerCalled && a.router != nil {
		server.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(server.Router())
	}

	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom
// servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}

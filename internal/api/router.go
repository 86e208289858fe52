package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/audit"
	"github.com/starford/gebo/internal/graphstore"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// aud may be nil when auditing is disabled.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(mgr *graphstore.Manager, aud *audit.Log, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(mgr, aud)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace.
	r.Get("/graphs", h.ListGraphs)
	r.Get("/audit", h.Audit)

	// Queries.
	r.Get("/search", h.Search)
	r.Get("/nodes/{id}", h.GetNode)
	r.Get("/nodes/{id}/neighbors", h.Neighbors)
	r.Get("/path", h.FindPath)
	r.Get("/types", h.NodeTypes)
	r.Get("/layers/{name}", h.Layer)

	// Mutations.
	r.Post("/nodes", h.AddNode)
	r.Delete("/nodes/{id}", h.RemoveNode)
	r.Post("/edges", h.AddEdge)
	r.Delete("/edges", h.RemoveEdge)
	r.Post("/layers/{name}/nodes", h.AddToLayer)

	// Integrity and persistence.
	r.Get("/verify", h.Verify)
	r.Post("/save", h.Save)
	r.Post("/discard", h.Discard)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

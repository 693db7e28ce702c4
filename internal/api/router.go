package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/productos/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *service.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace.
	r.Get("/workspace", h.WorkspaceStatus)
	r.Post("/workspace/init", h.InitWorkspace)
	r.Post("/workspace/sync", h.SyncWorkspace)
	r.Post("/workspace/migrate", h.MigrateWorkspace)

	// Products.
	r.Get("/products", h.ListProducts)
	r.Post("/products", h.CreateProduct)
	r.Get("/products/{productID}", h.GetProduct)
	r.Put("/products/{productID}", h.UpdateProduct)
	r.Delete("/products/{productID}", h.DeleteProduct)
	r.Get("/products/{productID}/entities", h.ListEntities)
	r.Post("/products/{productID}/entities", h.CreateEntity)

	// Entities.
	r.Get("/entities/{entityID}", h.GetEntity)
	r.Put("/entities/{entityID}", h.UpdateEntity)
	r.Delete("/entities/{entityID}", h.DeleteEntity)
	r.Get("/entities/{entityID}/markdown", h.EntityMarkdown)
	r.Post("/entities/{entityID}/promote", h.PromoteCapture)
	r.Get("/entities/{entityID}/relationships", h.EntityRelationships)

	// Relationships.
	r.Post("/relationships", h.CreateRelationship)
	r.Delete("/relationships/{relationshipID}", h.DeleteRelationship)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

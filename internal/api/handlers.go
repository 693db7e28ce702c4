package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/productos/internal/models"
	"github.com/starford/productos/internal/service"
)

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// WorkspaceStatus handles GET /api/workspace.
//
//	@Summary		Current workspace location
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	WorkspaceInfo
//	@Security		BearerAuth
//	@Router			/workspace [get]
func (h *Handler) WorkspaceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Info(r.Context()))
}

// InitWorkspace handles POST /api/workspace/init.
//
//	@Summary		Make a folder the workspace and fill it from the database
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WorkspacePathRequest	true	"Workspace folder"
//	@Success		200		{object}	workspace.SyncReport
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/init [post]
func (h *Handler) InitWorkspace(w http.ResponseWriter, r *http.Request) {
	var req WorkspacePathRequest
	if !decode(w, r, &req) {
		return
	}
	report, err := h.svc.InitializeWorkspace(r.Context(), req.Path)
	if err != nil {
		writeError(w, "init workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SyncWorkspace handles POST /api/workspace/sync.
//
//	@Summary		Regenerate missing product folders and entity files
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	workspace.SyncReport
//	@Failure		412	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/sync [post]
func (h *Handler) SyncWorkspace(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Sync(r.Context())
	if err != nil {
		writeError(w, "sync workspace", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MigrateWorkspace handles POST /api/workspace/migrate. A failed migration
// answers 422 with the result body; the old workspace stays current.
//
//	@Summary		Move the workspace to a new folder
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WorkspacePathRequest	true	"New workspace folder"
//	@Success		200		{object}	workspace.MigrationResult
//	@Failure		422		{object}	workspace.MigrationResult
//	@Security		BearerAuth
//	@Router			/workspace/migrate [post]
func (h *Handler) MigrateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req WorkspacePathRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.svc.Migrate(r.Context(), req.Path)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// ListProducts handles GET /api/products.
//
//	@Summary		List products, most recently active first
//	@Tags			products
//	@Produce		json
//	@Success		200	{array}	models.Product
//	@Security		BearerAuth
//	@Router			/products [get]
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeError(w, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// CreateProduct handles POST /api/products.
//
//	@Summary		Create a product and its workspace folder
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProductRequest	true	"Product to create"
//	@Success		201		{object}	models.Product
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/products [post]
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetProduct handles GET /api/products/{productID}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProduct handles PUT /api/products/{productID}. A new name renames
// the product folder.
//
//	@Summary		Update a product
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		string					true	"Product id"
//	@Param			body		body		UpdateProductRequest	true	"Fields to change"
//	@Success		200			{object}	models.Product
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/products/{productID} [put]
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), chi.URLParam(r, "productID"), req.update())
	if err != nil {
		writeError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/products/{productID}. The product
// folder is left on disk.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProduct(r.Context(), chi.URLParam(r, "productID")); err != nil {
		writeError(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEntities handles GET /api/products/{productID}/entities.
//
//	@Summary		List the entities of a product
//	@Tags			entities
//	@Produce		json
//	@Param			productID	path		string	true	"Product id"
//	@Param			type		query		string	false	"Entity type"
//	@Param			status		query		string	false	"Status"
//	@Param			search		query		string	false	"Title or body substring"
//	@Success		200			{object}	EntityListResponse
//	@Security		BearerAuth
//	@Router			/products/{productID}/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.EntityFilters{
		Type:   models.EntityType(q.Get("type")),
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	if f.Type != "" && !f.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown entity type"))
		return
	}
	entities, err := h.svc.ListEntities(r.Context(), chi.URLParam(r, "productID"), f)
	if err != nil {
		writeError(w, "list entities", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: entities, Total: len(entities)})
}

// CreateEntity handles POST /api/products/{productID}/entities.
//
//	@Summary		Create an entity and write its Markdown file
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		string				true	"Product id"
//	@Param			body		body		CreateEntityRequest	true	"Entity to create"
//	@Success		201			{object}	models.Entity
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/products/{productID}/entities [post]
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.CreateEntity(r.Context(), req.create(chi.URLParam(r, "productID")))
	if err != nil {
		writeError(w, "create entity", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// GetEntity handles GET /api/entities/{entityID}.
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntity(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateEntity handles PUT /api/entities/{entityID}.
//
//	@Summary		Update an entity and rewrite its Markdown file
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			entityID	path		string				true	"Entity id"
//	@Param			body		body		UpdateEntityRequest	true	"Fields to change"
//	@Success		200			{object}	models.Entity
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{entityID} [put]
func (h *Handler) UpdateEntity(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntityRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.UpdateEntity(r.Context(), chi.URLParam(r, "entityID"), req.update())
	if err != nil {
		writeError(w, "update entity", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteEntity handles DELETE /api/entities/{entityID}.
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEntity(r.Context(), chi.URLParam(r, "entityID")); err != nil {
		writeError(w, "delete entity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EntityMarkdown handles GET /api/entities/{entityID}/markdown.
//
//	@Summary		Markdown file of an entity
//	@Tags			entities
//	@Produce		json
//	@Param			entityID	path		string	true	"Entity id"
//	@Success		200			{object}	EntityDocument
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{entityID}/markdown [get]
func (h *Handler) EntityMarkdown(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.EntityMarkdown(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, "entity markdown", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// PromoteCapture handles POST /api/entities/{entityID}/promote.
//
//	@Summary		Promote a capture to another entity type
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			entityID	path		string			true	"Capture id"
//	@Param			body		body		PromoteRequest	true	"Target type"
//	@Success		201			{object}	models.Entity
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{entityID}/promote [post]
func (h *Handler) PromoteCapture(w http.ResponseWriter, r *http.Request) {
	var req PromoteRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := h.svc.PromoteCapture(r.Context(), chi.URLParam(r, "entityID"), req.TargetType)
	if err != nil {
		writeError(w, "promote capture", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// EntityRelationships handles GET /api/entities/{entityID}/relationships.
func (h *Handler) EntityRelationships(w http.ResponseWriter, r *http.Request) {
	rels, err := h.svc.Relationships(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, "list relationships", err)
		return
	}
	writeJSON(w, http.StatusOK, rels)
}

// CreateRelationship handles POST /api/relationships.
//
//	@Summary		Link two entities of the same product
//	@Tags			relationships
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRelationshipRequest	true	"Link to create"
//	@Success		201		{object}	models.Relationship
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/relationships [post]
func (h *Handler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationshipRequest
	if !decode(w, r, &req) {
		return
	}
	rel, err := h.svc.CreateRelationship(r.Context(), req.create())
	if err != nil {
		writeError(w, "create relationship", err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

// DeleteRelationship handles DELETE /api/relationships/{relationshipID}.
func (h *Handler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRelationship(r.Context(), chi.URLParam(r, "relationshipID")); err != nil {
		writeError(w, "delete relationship", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

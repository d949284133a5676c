package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/schoolms/backend/internal/infrastructure/persistence/resource"
	"github.com/schoolms/backend/internal/interfaces/http/dto"
)

// ResourceHandler serves the full CRUD surface of one registered resource.
// One instance per model type; the routes it registers follow from the
// resource's capabilities (soft-deletable resources additionally get the
// deleted listing and restore).
type ResourceHandler[M any] struct {
	BaseHandler
	engine   *resource.Engine[M]
	readOnly bool
}

// NewResourceHandler creates the handler for one engine.
func NewResourceHandler[M any](engine *resource.Engine[M]) *ResourceHandler[M] {
	return &ResourceHandler[M]{engine: engine}
}

// NewReadOnlyResourceHandler creates a handler exposing only the read
// operations, used for append-only resources such as the audit trail.
func NewReadOnlyResourceHandler[M any](engine *resource.Engine[M]) *ResourceHandler[M] {
	return &ResourceHandler[M]{engine: engine, readOnly: true}
}

// RegisterRoutes implements router.RouteRegistrar.
func (h *ResourceHandler[M]) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/" + h.engine.Name())

	g.GET("", h.ListRecords)
	if h.engine.SoftDelete() {
		g.GET("/deleted", h.ListDeleted)
	}
	g.GET("/:id", h.Get)

	if h.readOnly {
		return
	}

	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Update)
	g.PUT("", h.UpdateMany)
	g.DELETE("/:id", h.Delete)
	g.DELETE("", h.DeleteMany)
	if h.engine.SoftDelete() {
		g.POST("/:id/restore", h.Restore)
	}
}

// ListRecords handles both the paged listing and the by-ids lookup: a
// request carrying ids returns exactly the existing subset without
// pagination metadata.
func (h *ResourceHandler[M]) ListRecords(c *gin.Context) {
	params := dto.ParseListParams(c)

	if len(params.IDs) > 0 {
		recs, err := h.engine.GetMany(c.Request.Context(), params.IDs)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.OK(c, recs)
		return
	}

	recs, total, err := h.engine.List(c.Request.Context(), params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.List(c, recs, total)
}

// ListDeleted returns the soft-deleted rows, paginated like the main
// listing.
func (h *ResourceHandler[M]) ListDeleted(c *gin.Context) {
	recs, total, err := h.engine.GetDeleted(c.Request.Context(), dto.ParseListParams(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.List(c, recs, total)
}

// Get returns one record by id.
func (h *ResourceHandler[M]) Get(c *gin.Context) {
	rec, err := h.engine.GetOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, rec)
}

// Create inserts one record from the request body.
func (h *ResourceHandler[M]) Create(c *gin.Context) {
	var rec M
	if err := c.ShouldBindJSON(&rec); err != nil {
		h.HandleBindError(c, err)
		return
	}
	created, err := h.engine.Create(c.Request.Context(), &rec)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}

// Update applies a partial patch to one record.
func (h *ResourceHandler[M]) Update(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.HandleBindError(c, err)
		return
	}
	updated, err := h.engine.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, updated)
}

// UpdateMany applies the same patch to a set of ids.
func (h *ResourceHandler[M]) UpdateMany(c *gin.Context) {
	var req struct {
		IDs  []string       `json:"ids" binding:"required,min=1"`
		Data map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}
	ids, err := h.engine.UpdateMany(c.Request.Context(), req.IDs, req.Data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, ids)
}

// Delete removes one record and returns its pre-delete state.
func (h *ResourceHandler[M]) Delete(c *gin.Context) {
	rec, err := h.engine.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, rec)
}

// DeleteMany removes a set of ids given either as an ids query parameter or
// a JSON body.
func (h *ResourceHandler[M]) DeleteMany(c *gin.Context) {
	params := dto.ParseListParams(c)
	ids := params.IDs
	if len(ids) == 0 {
		var req dto.BulkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.HandleBindError(c, err)
			return
		}
		ids = req.IDs
	}
	deleted, err := h.engine.DeleteMany(c.Request.Context(), ids)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, deleted)
}

// Restore transitions one soft-deleted record back to the active state.
func (h *ResourceHandler[M]) Restore(c *gin.Context) {
	rec, err := h.engine.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.OK(c, rec)
}

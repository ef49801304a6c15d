package crud

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/pkg"
)

// BulkDeleteRequest is the input for the bulk-delete operation.
type BulkDeleteRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// Handler binds the service operations of one managed resource to REST
// endpoints. Each method parses inputs, calls exactly one service method, and
// maps the outcome to a transport response; no business logic lives here.
type Handler[T any, P domain.Model[T]] struct {
	svc      *Service[T, P]
	resource string
	bounds   pkg.PageBounds
}

// NewHandler creates a Handler for the given resource name (the path segment
// routes are registered under).
func NewHandler[T any, P domain.Model[T]](svc *Service[T, P], resource string, bounds pkg.PageBounds) *Handler[T, P] {
	if svc == nil {
		panic("crud.NewHandler: service must not be nil")
	}
	if resource == "" {
		panic("crud.NewHandler: resource must not be empty")
	}
	return &Handler[T, P]{svc: svc, resource: resource, bounds: bounds.Normalize()}
}

// Register registers the resource's routes on the given router group.
func (h *Handler[T, P]) Register(rg *gin.RouterGroup) {
	g := rg.Group("/" + h.resource)

	g.GET("", h.GetPage)
	g.GET("/all", h.GetAll)
	g.GET("/count", h.Count)
	g.GET("/search", h.Search)
	g.GET("/logs", h.GetLogs)
	g.GET("/:id", h.GetByID)
	g.GET("/:id/exists", h.Exists)
	g.POST("", h.Create)
	g.POST("/bulk", h.BulkCreate)
	g.POST("/bulk-delete", h.BulkDelete)
	g.POST("/:id/restore", h.Restore)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.SoftDelete)
	g.DELETE("/:id/force", h.ForceDelete)
}

// GetPage handles GET /{resource}.
func (h *Handler[T, P]) GetPage(c *gin.Context) {
	req := pkg.ParsePageRequest(c, h.bounds)

	result, err := h.svc.GetPage(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAll handles GET /{resource}/all.
func (h *Handler[T, P]) GetAll(c *gin.Context) {
	env, err := h.svc.GetAll(c.Request.Context(), pkg.ParseQuery(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// GetByID handles GET /{resource}/:id.
func (h *Handler[T, P]) GetByID(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	env, err := h.svc.GetByID(c.Request.Context(), id, includeDeleted(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// Search handles GET /{resource}/search.
func (h *Handler[T, P]) Search(c *gin.Context) {
	result, err := h.svc.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetLogs handles GET /{resource}/logs.
func (h *Handler[T, P]) GetLogs(c *gin.Context) {
	req := pkg.ParsePageRequest(c, h.bounds)

	result, err := h.svc.GetLogs(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Create handles POST /{resource}.
func (h *Handler[T, P]) Create(c *gin.Context) {
	var entity T
	if !pkg.BindAndValidate(c, &entity) {
		return
	}
	// Identity is store-assigned and records are born live, whatever the
	// payload claimed.
	p := P(&entity)
	p.SetID(0)
	p.SetDeleted(false)

	env, err := h.svc.Create(c.Request.Context(), p)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, env)
}

// Update handles PUT /{resource}/:id.
func (h *Handler[T, P]) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	var entity T
	if !pkg.BindAndValidate(c, &entity) {
		return
	}

	env, err := h.svc.Update(c.Request.Context(), id, P(&entity))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// SoftDelete handles DELETE /{resource}/:id.
func (h *Handler[T, P]) SoftDelete(c *gin.Context) {
	h.idOperation(c, h.svc.SoftDelete)
}

// Restore handles POST /{resource}/:id/restore.
func (h *Handler[T, P]) Restore(c *gin.Context) {
	h.idOperation(c, h.svc.Restore)
}

// ForceDelete handles DELETE /{resource}/:id/force.
func (h *Handler[T, P]) ForceDelete(c *gin.Context) {
	h.idOperation(c, h.svc.ForceDelete)
}

// Exists handles GET /{resource}/:id/exists.
func (h *Handler[T, P]) Exists(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	env, err := h.svc.Exists(c.Request.Context(), id, includeDeleted(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// Count handles GET /{resource}/count.
func (h *Handler[T, P]) Count(c *gin.Context) {
	env, err := h.svc.Count(c.Request.Context(), pkg.ParseQuery(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// BulkCreate handles POST /{resource}/bulk.
func (h *Handler[T, P]) BulkCreate(c *gin.Context) {
	var entities []T
	if !pkg.BindAndValidate(c, &entities) {
		return
	}
	for i := range entities {
		p := P(&entities[i])
		p.SetID(0)
		p.SetDeleted(false)
	}

	env, err := h.svc.BulkCreate(c.Request.Context(), entities)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// BulkDelete handles POST /{resource}/bulk-delete.
func (h *Handler[T, P]) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	env, err := h.svc.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// idOperation runs one of the id-only service operations (soft-delete,
// restore, force-delete) with shared parsing and error mapping.
func (h *Handler[T, P]) idOperation(c *gin.Context, op func(ctx context.Context, id uint) (*pkg.Envelope, error)) {
	id, err := parseID(c)
	if err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return
	}

	env, err := op(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.OK(c, env)
}

// parseID extracts and validates the :id path parameter.
func parseID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

// includeDeleted reads the include_deleted query flag, defaulting to false.
func includeDeleted(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.DefaultQuery("include_deleted", "false"))
	return v
}

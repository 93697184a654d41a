package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/vgp/service"
)

// CatalogHandler 控制类型/设备/检查模板
type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ListControlTypes GET /control-types?active_only=true
func (h *CatalogHandler) ListControlTypes(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"
	items, err := h.svc.ListControlTypes(c.Request.Context(), activeOnly)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// CreateControlType POST /control-types
func (h *CatalogHandler) CreateControlType(c *gin.Context) {
	var req service.CreateControlTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ct, err := h.svc.CreateControlType(c.Request.Context(), GetCaller(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, ct)
}

// UpdateControlType PUT /control-types/:id
func (h *CatalogHandler) UpdateControlType(c *gin.Context) {
	var req service.UpdateControlTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	ct, err := h.svc.UpdateControlType(c.Request.Context(), GetCaller(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ct)
}

// DeactivateControlType POST /control-types/:id/deactivate
func (h *CatalogHandler) DeactivateControlType(c *gin.Context) {
	ct, err := h.svc.DeactivateControlType(c.Request.Context(), GetCaller(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ct)
}

// ListAssets GET /assets?site=
func (h *CatalogHandler) ListAssets(c *gin.Context) {
	items, err := h.svc.ListAssets(c.Request.Context(), c.Query("site"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// CreateAsset POST /assets
func (h *CatalogHandler) CreateAsset(c *gin.Context) {
	var req service.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	asset, err := h.svc.CreateAsset(c.Request.Context(), GetCaller(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, asset)
}

// GetAsset GET /assets/:id
func (h *CatalogHandler) GetAsset(c *gin.Context) {
	asset, err := h.svc.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, asset)
}

// DeleteAsset DELETE /assets/:id
func (h *CatalogHandler) DeleteAsset(c *gin.Context) {
	if err := h.svc.DeleteAsset(c.Request.Context(), GetCaller(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// CreateTemplate POST /templates
func (h *CatalogHandler) CreateTemplate(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	tpl, err := h.svc.CreateTemplate(c.Request.Context(), GetCaller(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, tpl)
}

// ListTemplates GET /templates?control_type_id=
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	items, err := h.svc.ListTemplates(c.Request.Context(), c.Query("control_type_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// GetTemplate GET /templates/:id
func (h *CatalogHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.svc.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, tpl)
}

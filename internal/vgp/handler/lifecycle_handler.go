package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/vgp/service"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// LifecycleHandler 不符合项与纠正措施
type LifecycleHandler struct {
	svc *service.LifecycleService
}

func NewLifecycleHandler(svc *service.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{svc: svc}
}

// TransitionRequest 状态流转请求
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListNonConformities GET /non-conformities?status=&run_id=&origin=
func (h *LifecycleHandler) ListNonConformities(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{}
	for _, key := range []string{"status", "run_id", "asset_id", "origin"} {
		if v := c.Query(key); v != "" {
			filters[key] = v
		}
	}
	items, total, err := h.svc.ListNonConformities(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: newPagination(page, pageSize, total)})
}

// GetNonConformity GET /non-conformities/:id
func (h *LifecycleHandler) GetNonConformity(c *gin.Context) {
	nc, err := h.svc.GetNonConformity(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nc)
}

// GetCorrectiveAction GET /corrective-actions/:id
func (h *LifecycleHandler) GetCorrectiveAction(c *gin.Context) {
	ca, err := h.svc.GetCorrectiveAction(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ca)
}

// Transition POST /non-conformities/:id/transition, POST /corrective-actions/:id/transition
func (h *LifecycleHandler) Transition(kind workflow.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		updated, err := h.svc.TransitionStatus(c.Request.Context(), GetCaller(c), kind, c.Param("id"), req.Status)
		if err != nil {
			HandleError(c, err)
			return
		}
		Success(c, updated)
	}
}

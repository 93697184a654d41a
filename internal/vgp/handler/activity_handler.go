package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/vgp/service"
)

// ActivityHandler 操作日志
type ActivityHandler struct {
	svc *service.ActivityService
}

func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// List GET /activities?entity_type=&entity_id=
func (h *ActivityHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), c.Query("entity_type"), c.Query("entity_id"), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items, Pagination: newPagination(page, pageSize, total)})
}

package handler

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/vgp/service"
)

// ScheduleHandler 检查计划
type ScheduleHandler struct {
	svc *service.ScheduleService
}

func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// Seed POST /assets/:id/schedules
func (h *ScheduleHandler) Seed(c *gin.Context) {
	var req service.SeedScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	sched, err := h.svc.SeedSchedule(c.Request.Context(), GetCaller(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, sched)
}

// ListByAsset GET /assets/:id/schedules
func (h *ScheduleHandler) ListByAsset(c *gin.Context) {
	items, err := h.svc.ListByAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// Due GET /schedules/due?window_days=30
func (h *ScheduleHandler) Due(c *gin.Context) {
	window, ok := queryInt(c, "window_days")
	if !ok {
		return
	}
	items, err := h.svc.GetOverdueAndDueSoon(c.Request.Context(), window)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, ListResponse{Items: items})
}

// ExportDue GET /schedules/due/export?window_days=30
func (h *ScheduleHandler) ExportDue(c *gin.Context) {
	window, ok := queryInt(c, "window_days")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportDue(c.Request.Context(), window, &buf); err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("echeances_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

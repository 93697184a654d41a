package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/vgp/service"
)

// MissionHandler 任务
type MissionHandler struct {
	svc *service.MissionService
}

func NewMissionHandler(svc *service.MissionService) *MissionHandler {
	return &MissionHandler{svc: svc}
}

// Create POST /missions
func (h *MissionHandler) Create(c *gin.Context) {
	var req service.CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	m, err := h.svc.CreateMission(c.Request.Context(), GetCaller(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, m)
}

// Get GET /missions/:id
func (h *MissionHandler) Get(c *gin.Context) {
	m, err := h.svc.GetMission(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, m)
}

// Transition POST /missions/:id/transition
func (h *MissionHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	m, err := h.svc.TransitionMission(c.Request.Context(), GetCaller(c), c.Param("id"), req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, m)
}

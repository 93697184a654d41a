package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/vgp/service"
)

// RunHandler 检查执行
type RunHandler struct {
	svc *service.InspectionService
}

func NewRunHandler(svc *service.InspectionService) *RunHandler {
	return &RunHandler{svc: svc}
}

// Start POST /runs
func (h *RunHandler) Start(c *gin.Context) {
	var req service.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	run, err := h.svc.StartRun(c.Request.Context(), GetCaller(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, run)
}

// Get GET /runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, run)
}

// RecordResultsRequest 保存草稿答案
type RecordResultsRequest struct {
	Results []service.ResultInput `json:"results" binding:"required,dive"`
}

// RecordResults PUT /runs/:id/results
func (h *RunHandler) RecordResults(c *gin.Context) {
	var req RecordResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	run, err := h.svc.RecordResults(c.Request.Context(), GetCaller(c), c.Param("id"), req.Results)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, run)
}

// AmendCommentRequest 修改备注
type AmendCommentRequest struct {
	Comment string `json:"comment"`
}

// AmendComment PATCH /runs/:id/items/:itemId/comment
func (h *RunHandler) AmendComment(c *gin.Context) {
	var req AmendCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	run, err := h.svc.AmendComment(c.Request.Context(), GetCaller(c), c.Param("id"), c.Param("itemId"), req.Comment)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, run)
}

// AddObservation POST /runs/:id/observations
func (h *RunHandler) AddObservation(c *gin.Context) {
	var req service.AddObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	nc, err := h.svc.AddObservation(c.Request.Context(), GetCaller(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, nc)
}

// Submit POST /runs/:id/submit
func (h *RunHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	res, err := h.svc.SubmitInspection(c.Request.Context(), GetCaller(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, res)
}

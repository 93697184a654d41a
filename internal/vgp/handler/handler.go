package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/metrics"
	"github.com/bitfantasy/vgp/internal/middleware"
	"github.com/bitfantasy/vgp/internal/vgp/repository"
	"github.com/bitfantasy/vgp/internal/vgp/service"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// Handlers 处理器集合
type Handlers struct {
	Catalog   *CatalogHandler
	Schedule  *ScheduleHandler
	Run       *RunHandler
	Lifecycle *LifecycleHandler
	Mission   *MissionHandler
	Activity  *ActivityHandler
	Health    *HealthHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, repos *repository.Repositories, m *metrics.Metrics) *Handlers {
	return &Handlers{
		Catalog:   NewCatalogHandler(svc.Catalog),
		Schedule:  NewScheduleHandler(svc.Schedule),
		Run:       NewRunHandler(svc.Inspection),
		Lifecycle: NewLifecycleHandler(svc.Lifecycle),
		Mission:   NewMissionHandler(svc.Mission),
		Activity:  NewActivityHandler(svc.Activity),
		Health:    NewHealthHandler(repos, m),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, pageSize int, total int64) *Pagination {
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return &Pagination{Page: page, PageSize: pageSize, Total: int(total), TotalPages: pages}
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// business code per engine error category
var errorCodes = map[workflow.Code]int{
	workflow.CodeValidation:        40000,
	workflow.CodeForbidden:         40300,
	workflow.CodeNotFound:          40400,
	workflow.CodeConflict:          40900,
	workflow.CodeInvalidTransition: 40901,
}

// HandleError 将服务层错误映射为响应
func HandleError(c *gin.Context, err error) {
	code, ok := errorCodes[workflow.CodeOf(err)]
	if !ok {
		c.Error(err)
		InternalError(c, "internal error: "+err.Error())
		return
	}

	resp := Response{Code: code, Message: err.Error()}
	var e *workflow.Error
	if errors.As(err, &e) && len(e.Details) > 0 {
		resp.Data = gin.H{"details": e.Details}
	}
	c.JSON(code/100, resp)
}

// GetCaller 从上下文获取调用者
func GetCaller(c *gin.Context) workflow.Caller {
	return workflow.Caller{
		UserID: c.GetString(middleware.KeyUserID),
		Name:   c.GetString(middleware.KeyUserName),
		Role:   workflow.Role(c.GetString(middleware.KeyRole)),
	}
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		BadRequest(c, key+" must be an integer")
		return 0, false
	}
	return v, true
}

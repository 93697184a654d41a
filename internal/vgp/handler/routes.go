package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/vgp/internal/middleware"
	"github.com/bitfantasy/vgp/internal/vgp/workflow"
)

// RegisterRoutes mounts the health endpoints and the /api/v1/vgp API.
func RegisterRoutes(r *gin.Engine, h *Handlers, jwtSecret string) {
	// 健康检查
	r.GET("/health/live", h.Health.Live)
	r.GET("/health/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Metrics)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	api := r.Group("/api/v1/vgp")
	api.Use(middleware.JWTAuth(jwtSecret), middleware.ReadOnlyGuard())
	RegisterAPI(api, h)
}

// RegisterAPI mounts the VGP resources on an authenticated group.
func RegisterAPI(api *gin.RouterGroup, h *Handlers) {
	controlTypes := api.Group("/control-types")
	{
		controlTypes.GET("", h.Catalog.ListControlTypes)
		controlTypes.POST("", h.Catalog.CreateControlType)
		controlTypes.PUT("/:id", h.Catalog.UpdateControlType)
		controlTypes.POST("/:id/deactivate", h.Catalog.DeactivateControlType)
	}

	assets := api.Group("/assets")
	{
		assets.GET("", h.Catalog.ListAssets)
		assets.POST("", h.Catalog.CreateAsset)
		assets.GET("/:id", h.Catalog.GetAsset)
		assets.DELETE("/:id", h.Catalog.DeleteAsset)
		assets.GET("/:id/schedules", h.Schedule.ListByAsset)
		assets.POST("/:id/schedules", h.Schedule.Seed)
	}

	schedules := api.Group("/schedules")
	{
		schedules.GET("/due", h.Schedule.Due)
		schedules.GET("/due/export", h.Schedule.ExportDue)
	}

	templates := api.Group("/templates")
	{
		templates.GET("", h.Catalog.ListTemplates)
		templates.POST("", h.Catalog.CreateTemplate)
		templates.GET("/:id", h.Catalog.GetTemplate)
	}

	missions := api.Group("/missions")
	{
		missions.POST("", h.Mission.Create)
		missions.GET("/:id", h.Mission.Get)
		missions.POST("/:id/transition", h.Mission.Transition)
	}

	runs := api.Group("/runs")
	{
		runs.POST("", h.Run.Start)
		runs.GET("/:id", h.Run.Get)
		runs.PUT("/:id/results", h.Run.RecordResults)
		runs.PATCH("/:id/items/:itemId/comment", h.Run.AmendComment)
		runs.POST("/:id/observations", h.Run.AddObservation)
		runs.POST("/:id/submit", h.Run.Submit)
	}

	ncs := api.Group("/non-conformities")
	{
		ncs.GET("", h.Lifecycle.ListNonConformities)
		ncs.GET("/:id", h.Lifecycle.GetNonConformity)
		ncs.POST("/:id/transition", h.Lifecycle.Transition(workflow.KindNonConformity))
	}

	actions := api.Group("/corrective-actions")
	{
		actions.GET("/:id", h.Lifecycle.GetCorrectiveAction)
		actions.POST("/:id/transition", h.Lifecycle.Transition(workflow.KindCorrectiveAction))
	}

	api.GET("/activities", h.Activity.List)
}

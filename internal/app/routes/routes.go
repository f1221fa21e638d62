package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/unisync/internal/app/controllers"
)

// SetupRouter configures the status API routes
func SetupRouter(router *gin.Engine, runController *controllers.RunController, metricsHandler http.Handler) {
	router.GET("/health", runController.Health)
	router.GET("/metrics", gin.WrapH(metricsHandler))

	runs := router.Group("/runs")
	{
		runs.GET("", runController.ListRuns)
		runs.GET("/latest", runController.GetLatestRun)
		runs.GET("/:id", runController.GetRunByID)
	}
}

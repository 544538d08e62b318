// Package routes registers the Coordinator's HTTP surface, grounded on the
// teacher's internal/api/routes.RegisterRoutes idiom.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"saga-engine/internal/coordinator/api/handlers"
	"saga-engine/internal/platform/httpmw"
)

func Register(router *gin.Engine, deps handlers.Dependencies) {
	router.Use(httpmw.RequestID())
	router.Use(httpmw.AccessLog())
	router.Use(httpmw.Prometheus())

	router.POST("/transfers", handlers.MakeCreateTransferHandler(deps))
	router.GET("/transfers/:id", handlers.MakeGetTransferHandler(deps))

	router.GET("/healthz", handlers.Health)
	router.GET("/readyz", handlers.Ready)
	router.GET("/prometheus", gin.WrapH(promhttp.Handler()))
}

// Package routes registers the Ledger's HTTP surface, grounded on the
// teacher's internal/api/routes.RegisterRoutes idiom.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"saga-engine/internal/ledger/api/handlers"
	"saga-engine/internal/platform/httpmw"
)

func Register(router *gin.Engine, deps handlers.Dependencies, adminAuthSecret string) {
	router.Use(httpmw.RequestID())
	router.Use(httpmw.AccessLog())
	router.Use(httpmw.Prometheus())

	router.POST("/wallets", handlers.MakeCreateWalletHandler(deps))
	router.GET("/wallets/:id", handlers.MakeGetWalletHandler(deps))

	admin := router.Group("/admin/dlq")
	admin.Use(httpmw.AdminAuth(adminAuthSecret))
	admin.GET("", handlers.MakeListDeadLettersHandler(deps))
	admin.GET("/:id", handlers.MakeGetDeadLetterHandler(deps))
	admin.POST("/:id/replay", handlers.MakeReplayDeadLetterHandler(deps))

	router.GET("/healthz", handlers.Health)
	router.GET("/readyz", handlers.Ready)
	router.GET("/prometheus", gin.WrapH(promhttp.Handler()))
}

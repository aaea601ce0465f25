package api

import (
	"net/http"

	acqdelivery "cfdivault-backend/internal/acquisition/delivery"
	docdelivery "cfdivault-backend/internal/document/delivery"
	"cfdivault-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, acqHandler *acqdelivery.AcquisitionHandler, docHandler *docdelivery.DocumentHandler, cfg *config.Config) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Taxpayer + sync routes (protected)
		taxpayers := api.Group("/taxpayers")
		taxpayers.Use(TokenMiddleware(cfg.APIToken))
		{
			taxpayers.POST("", acqHandler.RegisterTaxpayer)
			taxpayers.GET("", acqHandler.ListTaxpayers)
			taxpayers.POST("/:rfc/sync", acqHandler.TriggerSync)
			taxpayers.POST("/:rfc/reset-sync", acqHandler.ResetSync)
			taxpayers.GET("/:rfc/requests", acqHandler.ListRequests)
			taxpayers.POST("/:rfc/verify", docHandler.TriggerSweep)
		}

		// Request routes (protected)
		requests := api.Group("/requests")
		requests.Use(TokenMiddleware(cfg.APIToken))
		{
			requests.POST("/:id/requeue", acqHandler.RequeueRequest)
		}

		// Runner routes (protected) - manual/cron tick invocation
		runner := api.Group("/runner")
		runner.Use(TokenMiddleware(cfg.APIToken))
		{
			runner.POST("/tick", acqHandler.RunTick)
		}

		// Document routes (protected)
		documents := api.Group("/documents")
		documents.Use(TokenMiddleware(cfg.APIToken))
		{
			documents.GET("", docHandler.SearchDocuments)
			documents.GET("/:uuid", docHandler.GetDocument)
		}
	}
}

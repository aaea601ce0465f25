package api

import (
	acqdelivery "cfdivault-backend/internal/acquisition/delivery"
	docdelivery "cfdivault-backend/internal/document/delivery"
	"cfdivault-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	acqHandler *acqdelivery.AcquisitionHandler
	docHandler *docdelivery.DocumentHandler
	config     *config.Config
}

func NewHandler(acqHandler *acqdelivery.AcquisitionHandler, docHandler *docdelivery.DocumentHandler, cfg *config.Config) *Handler {
	return &Handler{
		acqHandler: acqHandler,
		docHandler: docHandler,
		config:     cfg,
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.acqHandler, h.docHandler, h.config)

	return r.Run(addr)
}

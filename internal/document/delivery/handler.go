package delivery

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	docdomain "cfdivault-backend/internal/document/domain"
	docdto "cfdivault-backend/internal/document/dto"
	"cfdivault-backend/internal/document/repository"
	"cfdivault-backend/internal/document/usecase"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	sweeper *usecase.Sweeper
	docRepo repository.DocumentRepository
}

func NewDocumentHandler(sweeper *usecase.Sweeper, docRepo repository.DocumentRepository) *DocumentHandler {
	return &DocumentHandler{
		sweeper: sweeper,
		docRepo: docRepo,
	}
}

func (h *DocumentHandler) TriggerSweep(c *gin.Context) {
	rfc := strings.ToUpper(c.Param("rfc"))

	var req docdto.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filters := repository.StaleFilters{
		Year:      req.Year,
		Month:     req.Month,
		Direction: docdomain.Classification(req.Direction),
	}

	result, err := h.sweeper.Sweep(c.Request.Context(), rfc, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *DocumentHandler) SearchDocuments(c *gin.Context) {
	params := repository.SearchParams{
		TaxpayerRFC:    strings.ToUpper(c.Query("rfc")),
		Classification: docdomain.Classification(c.Query("direction")),
		Limit:          20,
	}

	if params.TaxpayerRFC == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rfc query parameter is required"})
		return
	}

	if from := c.Query("from"); from != "" {
		if parsed, err := time.Parse("2006-01-02", from); err == nil {
			params.From = parsed
		}
	}
	if to := c.Query("to"); to != "" {
		if parsed, err := time.Parse("2006-01-02", to); err == nil {
			params.To = parsed
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			params.Limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			params.Offset = parsed
		}
	}

	docs, total, err := h.docRepo.Search(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, docdto.DocumentsResponse{
		Documents: docs,
		Limit:     params.Limit,
		Offset:    params.Offset,
		Total:     total,
	})
}

func (h *DocumentHandler) GetDocument(c *gin.Context) {
	uuid := strings.ToUpper(c.Param("uuid"))

	doc, err := h.docRepo.FindByUUID(uuid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

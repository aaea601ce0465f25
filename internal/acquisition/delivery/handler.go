package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	acqdomain "cfdivault-backend/internal/acquisition/domain"
	acqdto "cfdivault-backend/internal/acquisition/dto"
	"cfdivault-backend/internal/acquisition/repository"
	"cfdivault-backend/internal/acquisition/usecase"

	"github.com/gin-gonic/gin"
)

type AcquisitionHandler struct {
	planner   *usecase.SyncPlanner
	runner    *usecase.Runner
	taxpayers repository.TaxpayerRepository
	requests  repository.RequestRepository
}

func NewAcquisitionHandler(
	planner *usecase.SyncPlanner,
	runner *usecase.Runner,
	taxpayers repository.TaxpayerRepository,
	requests repository.RequestRepository,
) *AcquisitionHandler {
	return &AcquisitionHandler{
		planner:   planner,
		runner:    runner,
		taxpayers: taxpayers,
		requests:  requests,
	}
}

func (h *AcquisitionHandler) RegisterTaxpayer(c *gin.Context) {
	var req acqdto.RegisterTaxpayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tp := &acqdomain.Taxpayer{
		RFC:  strings.ToUpper(strings.TrimSpace(req.RFC)),
		Name: req.Name,
	}
	if err := h.taxpayers.Create(tp); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, tp)
}

func (h *AcquisitionHandler) ListTaxpayers(c *gin.Context) {
	tps, err := h.taxpayers.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, acqdto.TaxpayersResponse{Taxpayers: tps})
}

func (h *AcquisitionHandler) TriggerSync(c *gin.Context) {
	rfc := strings.ToUpper(c.Param("rfc"))
	force := c.Query("force") == "true"

	result, err := h.planner.SyncIfNeeded(c.Request.Context(), rfc, force)
	if err != nil {
		if errors.Is(err, usecase.ErrTaxpayerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "taxpayer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AcquisitionHandler) ResetSync(c *gin.Context) {
	rfc := strings.ToUpper(c.Param("rfc"))
	if err := h.taxpayers.ResetSyncing(rfc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "syncing flag cleared"})
}

func (h *AcquisitionHandler) ListRequests(c *gin.Context) {
	rfc := strings.ToUpper(c.Param("rfc"))

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	reqs, err := h.requests.FindByTaxpayer(rfc, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, acqdto.RequestsResponse{Requests: reqs})
}

func (h *AcquisitionHandler) RequeueRequest(c *gin.Context) {
	id := c.Param("id")

	req, err := h.runner.Requeue(id)
	if err != nil {
		if errors.Is(err, usecase.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, req)
}

func (h *AcquisitionHandler) RunTick(c *gin.Context) {
	processed := h.runner.Tick(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	"github.com/noah-isme/cohort-admin-api/internal/service"
	"github.com/noah-isme/cohort-admin-api/pkg/response"
)

type saleService interface {
	List(ctx context.Context, filter models.SaleFilter) ([]models.Sale, error)
	Create(ctx context.Context, req service.CreateSaleRequest) (*models.Sale, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateSaleStatusRequest) (*models.Sale, error)
}

// SaleHandler exposes sale endpoints.
type SaleHandler struct {
	sales saleService
}

// NewSaleHandler constructs a SaleHandler.
func NewSaleHandler(sales saleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// List godoc
// @Summary List sales
// @Tags Sales
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param status query string false "completed, pending or cancelled"
// @Success 200 {object} response.Envelope
// @Router /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	studentID, ok := queryUUID(c, "student_id")
	if !ok {
		return
	}
	sales, err := h.sales.List(c.Request.Context(), models.SaleFilter{
		StudentID: studentID,
		Status:    models.SaleStatus(c.Query("status")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sales)
}

// Create godoc
// @Summary Record a sale
// @Tags Sales
// @Accept json
// @Produce json
// @Param payload body service.CreateSaleRequest true "Sale payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
	var req service.CreateSaleRequest
	if !bindJSON(c, &req, "invalid sale payload") {
		return
	}
	sale, err := h.sales.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sale)
}

// UpdateStatus godoc
// @Summary Change a sale's status
// @Description Entering or leaving completed schedules a teacher earnings recompute.
// @Tags Sales
// @Accept json
// @Produce json
// @Param id path string true "Sale ID"
// @Param payload body service.UpdateSaleStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sales/{id}/status [patch]
func (h *SaleHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "sale")
	if !ok {
		return
	}
	var req service.UpdateSaleStatusRequest
	if !bindJSON(c, &req, "invalid sale status payload") {
		return
	}
	sale, err := h.sales.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sale)
}

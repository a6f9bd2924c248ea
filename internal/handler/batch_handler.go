package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	"github.com/noah-isme/cohort-admin-api/internal/service"
	"github.com/noah-isme/cohort-admin-api/pkg/response"
)

type batchService interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.BatchView, error)
	Get(ctx context.Context, id string) (*models.BatchView, error)
	Create(ctx context.Context, req service.BatchRequest) (*models.BatchView, error)
	Update(ctx context.Context, id string, req service.BatchRequest) (*models.BatchView, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, filter models.BatchFilter, format string) (*service.BatchExport, error)
}

// BatchHandler wires batch services to HTTP routes.
type BatchHandler struct {
	batches batchService
}

// NewBatchHandler constructs a BatchHandler.
func NewBatchHandler(batches batchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// List godoc
// @Summary List batches
// @Description Each batch carries its derived status and revenue shares.
// @Tags Batches
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param status query string false "upcoming, ongoing or completed"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	filter, ok := batchFilterFromQuery(c)
	if !ok {
		return
	}
	batches, err := h.batches.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches)
}

// Get godoc
// @Summary Get batch detail
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "batch")
	if !ok {
		return
	}
	batch, err := h.batches.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch)
}

// Create godoc
// @Summary Create batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body service.BatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req service.BatchRequest
	if !bindJSON(c, &req, "invalid batch payload") {
		return
	}
	batch, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Update godoc
// @Summary Update batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body service.BatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id} [put]
func (h *BatchHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "batch")
	if !ok {
		return
	}
	var req service.BatchRequest
	if !bindJSON(c, &req, "invalid batch payload") {
		return
	}
	batch, err := h.batches.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch)
}

// Delete godoc
// @Summary Delete batch
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /batches/{id} [delete]
func (h *BatchHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "batch")
	if !ok {
		return
	}
	if err := h.batches.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "batch deleted")
}

// Export godoc
// @Summary Export batches
// @Tags Batches
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param teacher_id query string false "Filter by teacher"
// @Param status query string false "upcoming, ongoing or completed"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /batches/export [get]
func (h *BatchHandler) Export(c *gin.Context) {
	filter, ok := batchFilterFromQuery(c)
	if !ok {
		return
	}
	file, err := h.batches.Export(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func batchFilterFromQuery(c *gin.Context) (models.BatchFilter, bool) {
	teacherID, ok := queryUUID(c, "teacher_id")
	if !ok {
		return models.BatchFilter{}, false
	}
	return models.BatchFilter{
		TeacherID: teacherID,
		Status:    models.BatchStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
	}, true
}

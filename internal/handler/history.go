package handler

import (
	"net/http"

	"github.com/boswellbenjamin/migrainauts/internal/service"
	"github.com/boswellbenjamin/migrainauts/pkg/api"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HistoryHandler implements migraine and tracking history endpoints
type HistoryHandler struct {
	service *service.HistoryService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(service *service.HistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger,
	}
}

// GetApiV1History returns every migraine and the day records built from tracking
func (h *HistoryHandler) GetApiV1History(c *gin.Context) {
	history, err := h.service.GetHistory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to load history")
		return
	}

	h.logger.Info("history retrieved",
		zap.Int("migraines", len(history.Migraines)),
		zap.Int("days", len(history.Days)),
	)

	c.JSON(http.StatusOK, history)
}

// DeleteApiV1History clears all migraines and tracking entries
func (h *HistoryHandler) DeleteApiV1History(c *gin.Context) {
	if err := h.service.ClearHistory(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "Failed to clear history")
		return
	}

	c.Status(http.StatusNoContent)
}

// PostApiV1Migraines records a migraine
func (h *HistoryHandler) PostApiV1Migraines(c *gin.Context) {
	var req api.MigraineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		badRequest(c, "Invalid request body", err)
		return
	}

	migraine := &model.MigraineEvent{
		Date:            req.Date.Time,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Severity:        model.MigraineSeverity(req.Severity),
		Symptoms:        derefStrings(req.Symptoms),
		Triggers:        derefStrings(req.Triggers),
		Notes:           req.Notes,
		Location:        req.Location,
		DurationMinutes: req.DurationMinutes,
	}
	if req.MedicationTaken != nil {
		migraine.MedicationTaken = *req.MedicationTaken
	}

	if err := h.service.RecordMigraine(c.Request.Context(), migraine); err != nil {
		respondError(c, h.logger, err, "Failed to record migraine")
		return
	}

	c.JSON(http.StatusCreated, migraine)
}

// PostApiV1Tracking records one tracking entry. The body carries a "type"
// discriminator naming the category.
func (h *HistoryHandler) PostApiV1Tracking(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	entry, err := model.UnmarshalTrackingEntry(body)
	if err != nil {
		h.logger.Error("invalid tracking entry", zap.Error(err))
		badRequest(c, "Invalid tracking entry", err)
		return
	}

	if err := h.service.RecordTrackingEntry(c.Request.Context(), entry); err != nil {
		respondError(c, h.logger, err, "Failed to record tracking entry")
		return
	}

	data, err := model.MarshalTrackingEntry(entry)
	if err != nil {
		respondError(c, h.logger, err, "Failed to encode tracking entry")
		return
	}

	c.Data(http.StatusCreated, "application/json; charset=utf-8", data)
}

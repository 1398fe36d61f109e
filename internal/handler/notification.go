package handler

import (
	"fmt"
	"net/http"

	"github.com/boswellbenjamin/migrainauts/internal/service"
	"github.com/boswellbenjamin/migrainauts/pkg/api"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationHandler implements the notification center and settings endpoints
type NotificationHandler struct {
	service *service.NotificationService
	logger  *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

// GetApiV1Notifications lists every notification, newest first
func (h *NotificationHandler) GetApiV1Notifications(c *gin.Context) {
	records, err := h.service.GetAllNotifications(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to load notifications")
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetApiV1NotificationsUnreadCount returns the number of unread notifications
func (h *NotificationHandler) GetApiV1NotificationsUnreadCount(c *gin.Context) {
	count, err := h.service.GetUnreadCount(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to count unread notifications")
		return
	}

	c.JSON(http.StatusOK, api.UnreadCountResponse{Count: count})
}

// GetApiV1NotificationsId returns one notification
func (h *NotificationHandler) GetApiV1NotificationsId(c *gin.Context, id string) {
	record, err := h.service.GetNotification(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load notification")
		return
	}

	c.JSON(http.StatusOK, record)
}

// PostApiV1NotificationsIdRead marks one notification as read
func (h *NotificationHandler) PostApiV1NotificationsIdRead(c *gin.Context, id string) {
	if err := h.service.MarkAsRead(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to mark notification as read")
		return
	}

	c.Status(http.StatusNoContent)
}

// PostApiV1NotificationsReadAll marks every notification as read
func (h *NotificationHandler) PostApiV1NotificationsReadAll(c *gin.Context) {
	if err := h.service.MarkAllAsRead(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "Failed to mark notifications as read")
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteApiV1NotificationsId removes one notification and cancels its delivery
func (h *NotificationHandler) DeleteApiV1NotificationsId(c *gin.Context, id string) {
	if err := h.service.DeleteNotification(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to delete notification")
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteApiV1Notifications removes every notification
func (h *NotificationHandler) DeleteApiV1Notifications(c *gin.Context) {
	if err := h.service.ClearAll(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "Failed to clear notifications")
		return
	}

	c.Status(http.StatusNoContent)
}

// PostApiV1NotificationsDelivered records a scheduled notification the host has shown
func (h *NotificationHandler) PostApiV1NotificationsDelivered(c *gin.Context) {
	var req api.DeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		badRequest(c, "Invalid request body", err)
		return
	}

	nType := model.NotificationType(req.Type)
	if !nType.Valid() {
		badRequest(c, "Invalid notification type", fmt.Errorf("unknown notification type %q", req.Type))
		return
	}

	n := model.NotificationRecord{
		Type:          nType,
		Priority:      model.NotificationPriority(req.Priority),
		Title:         req.Title,
		Body:          req.Body,
		ScheduledTime: req.ScheduledTime,
		SentTime:      req.SentTime,
		Details:       req.Details,
		PatternData:   req.PatternData,
	}
	if req.Id != nil {
		n.ID = *req.Id
	}

	record, err := h.service.RecordDelivered(c.Request.Context(), n)
	if err != nil {
		respondError(c, h.logger, err, "Failed to record delivered notification")
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetApiV1SettingsNotifications returns the current notification settings
func (h *NotificationHandler) GetApiV1SettingsNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetSettings())
}

// PutApiV1SettingsNotifications replaces the notification settings
func (h *NotificationHandler) PutApiV1SettingsNotifications(c *gin.Context) {
	var settings model.NotificationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		badRequest(c, "Invalid request body", err)
		return
	}

	if err := h.service.SaveSettings(c.Request.Context(), settings); err != nil {
		respondError(c, h.logger, err, "Failed to save notification settings")
		return
	}

	c.JSON(http.StatusOK, h.service.GetSettings())
}

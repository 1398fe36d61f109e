package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(c *gin.Context)
	// (GET /api/v1/patterns)
	GetApiV1Patterns(c *gin.Context)
	// (POST /api/v1/patterns/check)
	PostApiV1PatternsCheck(c *gin.Context)
	// (GET /api/v1/history)
	GetApiV1History(c *gin.Context)
	// (DELETE /api/v1/history)
	DeleteApiV1History(c *gin.Context)
	// (POST /api/v1/migraines)
	PostApiV1Migraines(c *gin.Context)
	// (POST /api/v1/tracking)
	PostApiV1Tracking(c *gin.Context)
	// (GET /api/v1/notifications)
	GetApiV1Notifications(c *gin.Context)
	// (DELETE /api/v1/notifications)
	DeleteApiV1Notifications(c *gin.Context)
	// (GET /api/v1/notifications/unread-count)
	GetApiV1NotificationsUnreadCount(c *gin.Context)
	// (POST /api/v1/notifications/read-all)
	PostApiV1NotificationsReadAll(c *gin.Context)
	// (POST /api/v1/notifications/delivered)
	PostApiV1NotificationsDelivered(c *gin.Context)
	// (GET /api/v1/notifications/{id})
	GetApiV1NotificationsId(c *gin.Context, id string)
	// (DELETE /api/v1/notifications/{id})
	DeleteApiV1NotificationsId(c *gin.Context, id string)
	// (POST /api/v1/notifications/{id}/read)
	PostApiV1NotificationsIdRead(c *gin.Context, id string)
	// (GET /api/v1/settings/notifications)
	GetApiV1SettingsNotifications(c *gin.Context)
	// (PUT /api/v1/settings/notifications)
	PutApiV1SettingsNotifications(c *gin.Context)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler      ServerInterface
	ErrorHandler func(*gin.Context, error, int)
}

func (w *ServerInterfaceWrapper) pathID(c *gin.Context) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		w.ErrorHandler(c, fmt.Errorf("invalid format for parameter id: %w", err), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (w *ServerInterfaceWrapper) GetApiV1NotificationsId(c *gin.Context) {
	if id, ok := w.pathID(c); ok {
		w.Handler.GetApiV1NotificationsId(c, id)
	}
}

func (w *ServerInterfaceWrapper) DeleteApiV1NotificationsId(c *gin.Context) {
	if id, ok := w.pathID(c); ok {
		w.Handler.DeleteApiV1NotificationsId(c, id)
	}
}

func (w *ServerInterfaceWrapper) PostApiV1NotificationsIdRead(c *gin.Context) {
	if id, ok := w.pathID(c); ok {
		w.Handler.PostApiV1NotificationsIdRead(c, id)
	}
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			details := err.Error()
			c.JSON(statusCode, ErrorResponse{
				Code:    CodeValidationError,
				Message: "Invalid request parameters",
				Details: &details,
			})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:      si,
		ErrorHandler: errorHandler,
	}

	base := options.BaseURL
	router.GET(base+"/health", si.GetHealth)
	router.GET(base+"/api/v1/patterns", si.GetApiV1Patterns)
	router.POST(base+"/api/v1/patterns/check", si.PostApiV1PatternsCheck)
	router.GET(base+"/api/v1/history", si.GetApiV1History)
	router.DELETE(base+"/api/v1/history", si.DeleteApiV1History)
	router.POST(base+"/api/v1/migraines", si.PostApiV1Migraines)
	router.POST(base+"/api/v1/tracking", si.PostApiV1Tracking)
	router.GET(base+"/api/v1/notifications", si.GetApiV1Notifications)
	router.DELETE(base+"/api/v1/notifications", si.DeleteApiV1Notifications)
	router.GET(base+"/api/v1/notifications/unread-count", si.GetApiV1NotificationsUnreadCount)
	router.POST(base+"/api/v1/notifications/read-all", si.PostApiV1NotificationsReadAll)
	router.POST(base+"/api/v1/notifications/delivered", si.PostApiV1NotificationsDelivered)
	router.GET(base+"/api/v1/notifications/:id", wrapper.GetApiV1NotificationsId)
	router.DELETE(base+"/api/v1/notifications/:id", wrapper.DeleteApiV1NotificationsId)
	router.POST(base+"/api/v1/notifications/:id/read", wrapper.PostApiV1NotificationsIdRead)
	router.GET(base+"/api/v1/settings/notifications", si.GetApiV1SettingsNotifications)
	router.PUT(base+"/api/v1/settings/notifications", si.PutApiV1SettingsNotifications)
}

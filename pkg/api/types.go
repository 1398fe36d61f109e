package api

import (
	"time"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
	Service string `json:"service,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MigraineRequest defines model for MigraineRequest.
type MigraineRequest struct {
	Date            openapi_types.Date `json:"date"`
	StartTime       string             `json:"start_time" binding:"required"`
	EndTime         *string            `json:"end_time,omitempty"`
	Severity        string             `json:"severity" binding:"required"`
	Symptoms        *[]string          `json:"symptoms,omitempty"`
	Triggers        *[]string          `json:"triggers,omitempty"`
	MedicationTaken *[]string          `json:"medication_taken,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Location        *string            `json:"location,omitempty"`
	DurationMinutes *float64           `json:"duration_minutes,omitempty"`
}

// DeliveredRequest reports a scheduled notification the host has shown
type DeliveredRequest struct {
	Id            *string                    `json:"id,omitempty"`
	Type          string                     `json:"type" binding:"required"`
	Priority      string                     `json:"priority" binding:"required"`
	Title         string                     `json:"title" binding:"required"`
	Body          string                     `json:"body"`
	ScheduledTime *time.Time                 `json:"scheduled_time,omitempty"`
	SentTime      *time.Time                 `json:"sent_time,omitempty"`
	Details       *model.NotificationDetails `json:"details,omitempty"`
	PatternData   *model.PatternData         `json:"pattern_data,omitempty"`
}

// UnreadCountResponse defines model for UnreadCountResponse.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// PatternsResponse defines model for PatternsResponse.
type PatternsResponse struct {
	Patterns []model.Pattern `json:"patterns"`
	Count    int             `json:"count"`
}

package delivery

import (
	"context"
	"time"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"go.uber.org/zap"
)

// Presentation channels understood by the push gateway
const (
	ChannelHighPriority = "high-priority"
	ChannelDefault      = "default"
	ChannelLowPriority  = "low-priority"
)

// Request is one notification handed to a sink
type Request struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Body        string                     `json:"body"`
	Data        map[string]any             `json:"data,omitempty"`
	Priority    model.NotificationPriority `json:"priority"`
	Channel     string                     `json:"channel"`
	Sound       bool                       `json:"sound"`
	ScheduledAt *time.Time                 `json:"scheduled_at,omitempty"`
}

// ChannelFor maps a priority to its presentation channel and whether it plays a sound
func ChannelFor(priority model.NotificationPriority) (string, bool) {
	switch priority {
	case model.PriorityCritical, model.PriorityHigh:
		return ChannelHighPriority, true
	case model.PriorityLow:
		return ChannelLowPriority, false
	default:
		return ChannelDefault, false
	}
}

// LogSink only logs notifications. It is used when no push gateway is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver logs the request and returns its id as the delivery id
func (s *LogSink) Deliver(_ context.Context, req Request) (string, error) {
	fields := []zap.Field{
		zap.String("notification_id", req.ID),
		zap.String("title", req.Title),
		zap.String("priority", string(req.Priority)),
		zap.String("channel", req.Channel),
	}
	if req.ScheduledAt != nil {
		fields = append(fields, zap.Time("scheduled_at", *req.ScheduledAt))
	}
	s.logger.Info("notification delivered to log sink", fields...)
	return req.ID, nil
}

// Cancel logs the cancellation
func (s *LogSink) Cancel(_ context.Context, id string) error {
	s.logger.Info("scheduled notification cancelled", zap.String("notification_id", id))
	return nil
}

// CancelAll logs the cancellation
func (s *LogSink) CancelAll(_ context.Context) error {
	s.logger.Info("all scheduled notifications cancelled")
	return nil
}

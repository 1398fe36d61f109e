package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

// ResourceType represents the type of resource being changed
type ResourceType string

const (
	ResourceNotification         ResourceType = "notification"
	ResourceNotificationSettings ResourceType = "notification_settings"
	ResourceMigraineEvent        ResourceType = "migraine_event"
	ResourceTrackingEntry        ResourceType = "tracking_entry"
	ResourceHistory              ResourceType = "history"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	IPAddress      string
	UserAgent      string
	AdditionalData map[string]interface{}
}

// Logger records user-initiated mutations. Entries always go to the
// structured log; with a database they are also stored in audit_logs.
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger. db may be nil.
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Log creates an audit log entry
func (l *Logger) Log(ctx context.Context, entry AuditLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Info("audit log entry",
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
		zap.String("user_agent", entry.UserAgent),
	)

	if l.db == nil {
		return nil
	}

	query := `
		INSERT INTO audit_logs (
			operation_type, resource_type, resource_id,
			timestamp, ip_address, user_agent, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := l.db.Exec(ctx, query,
		entry.OperationType,
		entry.ResourceType,
		entry.ResourceID,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
	)

	if err != nil {
		l.logger.Error("failed to write audit log to database",
			zap.Error(err),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

// LogCreate logs a CREATE operation
func (l *Logger) LogCreate(ctx context.Context, resourceType ResourceType, resourceID string) error {
	return l.Log(ctx, withClient(ctx, AuditLog{
		OperationType: OperationCreate,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
	}))
}

// LogUpdate logs an UPDATE operation
func (l *Logger) LogUpdate(ctx context.Context, resourceType ResourceType, resourceID string) error {
	return l.Log(ctx, withClient(ctx, AuditLog{
		OperationType: OperationUpdate,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
	}))
}

// LogDelete logs a DELETE operation
func (l *Logger) LogDelete(ctx context.Context, resourceType ResourceType, resourceID string) error {
	return l.Log(ctx, withClient(ctx, AuditLog{
		OperationType: OperationDelete,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
	}))
}

// GetAuditLogs retrieves the most recent audit logs
func (l *Logger) GetAuditLogs(ctx context.Context, limit int) ([]AuditLog, error) {
	if l.db == nil {
		return nil, nil
	}

	query := `
		SELECT operation_type, resource_type, resource_id,
		       timestamp, COALESCE(ip_address, ''), COALESCE(user_agent, '')
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := l.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		err := rows.Scan(
			&log.OperationType,
			&log.ResourceType,
			&log.ResourceID,
			&log.Timestamp,
			&log.IPAddress,
			&log.UserAgent,
		)
		if err != nil {
			l.logger.Error("failed to scan audit log", zap.Error(err))
			continue
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

type clientKey struct{}

// Client identifies the caller behind an audited mutation
type Client struct {
	IPAddress string
	UserAgent string
}

// WithClient attaches caller details to ctx for later audit entries
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

func withClient(ctx context.Context, entry AuditLog) AuditLog {
	if c, ok := ctx.Value(clientKey{}).(Client); ok {
		entry.IPAddress = c.IPAddress
		entry.UserAgent = c.UserAgent
	}
	return entry
}

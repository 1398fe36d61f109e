package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/audit"
	"github.com/boswellbenjamin/migrainauts/internal/delivery"
	"github.com/boswellbenjamin/migrainauts/internal/metrics"
	"github.com/boswellbenjamin/migrainauts/internal/repository"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidSettings is returned when notification settings fail validation
	ErrInvalidSettings = errors.New("invalid notification settings")
	// ErrNotificationNotFound is returned for an unknown notification id
	ErrNotificationNotFound = errors.New("notification not found")
)

// Gates that can suppress a notification, in evaluation order
const (
	GateDisabled     = "disabled"
	GateQuietHours   = "quiet_hours"
	GateTypeDisabled = "type_disabled"
	GateDailyCap     = "daily_cap"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// NotificationStoreInterface persists the notification collection, newest first
type NotificationStoreInterface interface {
	LoadAll(ctx context.Context) ([]model.NotificationRecord, error)
	SaveAll(ctx context.Context, records []model.NotificationRecord) error
}

// SettingsStoreInterface persists NotificationSettings
type SettingsStoreInterface interface {
	Load(ctx context.Context) (*model.NotificationSettings, error)
	Save(ctx context.Context, settings model.NotificationSettings) error
}

// DeliverySink hands notifications to the platform for presentation
type DeliverySink interface {
	Deliver(ctx context.Context, req delivery.Request) (string, error)
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
}

// Auditor records user-initiated mutations
type Auditor interface {
	LogCreate(ctx context.Context, resourceType audit.ResourceType, resourceID string) error
	LogUpdate(ctx context.Context, resourceType audit.ResourceType, resourceID string) error
	LogDelete(ctx context.Context, resourceType audit.ResourceType, resourceID string) error
}

// NotificationService gates, records and dispatches notifications and owns
// the notification center. Every change to the store is a load-modify-save
// cycle under one mutex, so a failed save leaves the stored collection as it was.
type NotificationService struct {
	store    NotificationStoreInterface
	settings SettingsStoreInterface
	sink     DeliverySink
	auditor  Auditor
	metrics  *metrics.Metrics
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger

	mu sync.Mutex

	settingsMu sync.RWMutex
	current    model.NotificationSettings
}

// NewNotificationService creates a new NotificationService with default settings.
// Call LoadSettings to pick up persisted settings.
func NewNotificationService(
	store NotificationStoreInterface,
	settings SettingsStoreInterface,
	sink DeliverySink,
	auditor Auditor,
	m *metrics.Metrics,
	loc *time.Location,
	logger *zap.Logger,
) *NotificationService {
	if loc == nil {
		loc = time.Local
	}
	return &NotificationService{
		store:    store,
		settings: settings,
		sink:     sink,
		auditor:  auditor,
		metrics:  m,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
		current:  model.DefaultNotificationSettings(),
	}
}

// LoadSettings reads persisted settings. Missing settings keep the defaults;
// a failed read keeps the defaults and returns the error.
func (s *NotificationService) LoadSettings(ctx context.Context) error {
	loaded, err := s.settings.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("no stored notification settings, using defaults")
			return nil
		}
		s.logger.Error("failed to load notification settings", zap.Error(err))
		return fmt.Errorf("failed to load notification settings: %w", err)
	}

	s.settingsMu.Lock()
	s.current = *loaded
	s.settingsMu.Unlock()

	s.logger.Info("notification settings loaded", zap.Bool("enabled", loaded.Enabled))
	return nil
}

// GetSettings returns the current settings
func (s *NotificationService) GetSettings() model.NotificationSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.current
}

// SaveSettings validates and applies settings, then persists them. When the
// save fails the new settings stay active in memory and the error is returned.
func (s *NotificationService) SaveSettings(ctx context.Context, settings model.NotificationSettings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}

	s.settingsMu.Lock()
	s.current = settings
	s.settingsMu.Unlock()

	if err := s.settings.Save(ctx, settings); err != nil {
		s.logger.Error("failed to persist notification settings, keeping them in memory", zap.Error(err))
		return fmt.Errorf("failed to save notification settings: %w", err)
	}

	s.audit(ctx, audit.OperationUpdate, audit.ResourceNotificationSettings, "notification_settings")
	s.logger.Info("notification settings updated",
		zap.Bool("enabled", settings.Enabled),
		zap.Bool("quiet_hours_enabled", settings.QuietHoursEnabled),
	)
	return nil
}

// ValidateSettings checks ranges and clock formats
func ValidateSettings(settings model.NotificationSettings) error {
	if settings.CheckInFrequency < 1 || settings.CheckInFrequency > 3 {
		return fmt.Errorf("%w: check_in_frequency must be between 1 and 3", ErrInvalidSettings)
	}
	if settings.MaxNotificationsPerDay < 0 {
		return fmt.Errorf("%w: max_notifications_per_day must not be negative", ErrInvalidSettings)
	}
	if settings.QuietHoursEnabled {
		if !clockPattern.MatchString(settings.QuietHoursStart) {
			return fmt.Errorf("%w: quiet_hours_start must be HH:MM", ErrInvalidSettings)
		}
		if !clockPattern.MatchString(settings.QuietHoursEnd) {
			return fmt.Errorf("%w: quiet_hours_end must be HH:MM", ErrInvalidSettings)
		}
	}
	return nil
}

// Send gates n and, when allowed, records it in the notification center and
// delivers it immediately. It returns the stored record, or nil when a gate
// suppressed it. A delivery failure is logged; the record stays stored.
func (s *NotificationService) Send(ctx context.Context, n model.NotificationRecord) (*model.NotificationRecord, error) {
	n.ScheduledTime = nil

	s.mu.Lock()
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}

	now := s.now().In(s.loc)
	if gate, ok := s.shouldSend(n.Type, now, records); !ok {
		s.mu.Unlock()
		s.suppressed(n.Type, gate)
		return nil, nil
	}

	sentTime := now
	n.ID = newNotificationID()
	n.SentTime = &sentTime
	n.Read = false

	records = append([]model.NotificationRecord{n}, records...)
	if err := s.store.SaveAll(ctx, records); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to record notification",
			zap.Error(err),
			zap.String("type", string(n.Type)),
		)
		return nil, fmt.Errorf("failed to record notification: %w", err)
	}
	s.mu.Unlock()

	s.deliver(ctx, n, nil)
	return &n, nil
}

// Schedule gates n and hands it to the sink for delivery at the given time.
// A scheduled notification is not recorded until the host reports its
// delivery through RecordDelivered. A time that is not in the future sends
// immediately. It returns the notification id, or "" when suppressed.
func (s *NotificationService) Schedule(ctx context.Context, n model.NotificationRecord, at time.Time) (string, error) {
	now := s.now().In(s.loc)
	if !at.After(now) {
		record, err := s.Send(ctx, n)
		if err != nil || record == nil {
			return "", err
		}
		return record.ID, nil
	}

	s.mu.Lock()
	records, err := s.store.LoadAll(ctx)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to load notifications: %w", err)
	}

	if gate, ok := s.shouldSend(n.Type, now, records); !ok {
		s.suppressed(n.Type, gate)
		return "", nil
	}

	scheduled := at
	n.ID = newNotificationID()
	n.ScheduledTime = &scheduled
	n.SentTime = nil
	n.Read = false

	if err := s.deliver(ctx, n, &scheduled); err != nil {
		return "", fmt.Errorf("failed to schedule notification: %w", err)
	}

	s.logger.Info("notification scheduled",
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.Type)),
		zap.Time("scheduled_time", scheduled),
	)
	return n.ID, nil
}

// RecordDelivered adds a scheduled notification to the center once the
// platform has shown it. Reporting the same id twice stores it once.
func (s *NotificationService) RecordDelivered(ctx context.Context, n model.NotificationRecord) (*model.NotificationRecord, error) {
	if n.ID == "" {
		n.ID = newNotificationID()
	}
	if n.SentTime == nil {
		sentTime := s.now().In(s.loc)
		n.SentTime = &sentTime
	}
	n.Read = false

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	for i := range records {
		if records[i].ID == n.ID {
			return &records[i], nil
		}
	}

	records = append([]model.NotificationRecord{n}, records...)
	if err := s.store.SaveAll(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to record delivered notification: %w", err)
	}

	s.logger.Info("delivered notification recorded",
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.Type)),
	)
	return &n, nil
}

// GetAllNotifications returns every stored notification, newest first
func (s *NotificationService) GetAllNotifications(ctx context.Context) ([]model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return records, nil
}

// GetNotification returns one notification by id
func (s *NotificationService) GetNotification(ctx context.Context, id string) (*model.NotificationRecord, error) {
	records, err := s.GetAllNotifications(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
}

// GetUnreadCount returns the number of unread notifications
func (s *NotificationService) GetUnreadCount(ctx context.Context) (int, error) {
	records, err := s.GetAllNotifications(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range records {
		if !r.Read {
			count++
		}
	}
	return count, nil
}

// HasSentSince reports whether a notification of type t was sent at or after since
func (s *NotificationService) HasSentSince(ctx context.Context, t model.NotificationType, since time.Time) (bool, error) {
	records, err := s.GetAllNotifications(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Type == t && r.SentTime != nil && !r.SentTime.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// MarkAsRead flags one notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	found := false
	for i := range records {
		if records[i].ID == id {
			if records[i].Read {
				return nil
			}
			records[i].Read = true
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}

	if err := s.store.SaveAll(ctx, records); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	s.audit(ctx, audit.OperationUpdate, audit.ResourceNotification, id)
	return nil
}

// MarkAllAsRead flags every notification as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	for i := range records {
		records[i].Read = true
	}

	if err := s.store.SaveAll(ctx, records); err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	s.audit(ctx, audit.OperationUpdate, audit.ResourceNotification, "*")
	return nil
}

// DeleteNotification removes a notification and cancels its scheduled
// delivery. Scheduled notifications are not stored yet, so the cancel is
// issued even when the id is not in the center.
func (s *NotificationService) DeleteNotification(ctx context.Context, id string) error {
	s.mu.Lock()
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	kept := make([]model.NotificationRecord, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}

	if len(kept) != len(records) {
		if err := s.store.SaveAll(ctx, kept); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to delete notification: %w", err)
		}
	}
	s.mu.Unlock()

	if err := s.sink.Cancel(ctx, id); err != nil {
		s.logger.Warn("failed to cancel scheduled notification",
			zap.Error(err),
			zap.String("notification_id", id),
		)
	}

	s.audit(ctx, audit.OperationDelete, audit.ResourceNotification, id)
	return nil
}

// ClearAll removes every notification and cancels all scheduled deliveries
func (s *NotificationService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	if err := s.store.SaveAll(ctx, []model.NotificationRecord{}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	s.mu.Unlock()

	if err := s.sink.CancelAll(ctx); err != nil {
		s.logger.Warn("failed to cancel scheduled notifications", zap.Error(err))
	}

	s.audit(ctx, audit.OperationDelete, audit.ResourceNotification, "*")
	return nil
}

// shouldSend evaluates the gates in order and names the first that fails.
// Quiet hours compare "HH:MM" strings, so a window wrapping past midnight
// never matches. Predictive warnings pass quiet hours and the daily cap.
func (s *NotificationService) shouldSend(t model.NotificationType, now time.Time, records []model.NotificationRecord) (string, bool) {
	settings := s.GetSettings()

	if !settings.Enabled {
		return GateDisabled, false
	}

	if settings.QuietHoursEnabled && settings.QuietHoursStart != "" && settings.QuietHoursEnd != "" {
		current := now.Format("15:04")
		if current >= settings.QuietHoursStart && current < settings.QuietHoursEnd && t != model.NotificationPredictiveWarning {
			return GateQuietHours, false
		}
	}

	if !settings.TypeEnabled(t) {
		return GateTypeDisabled, false
	}

	if settings.MaxNotificationsPerDay > 0 && t != model.NotificationPredictiveWarning {
		midnight := startOfDay(now)
		sentToday := 0
		for _, r := range records {
			if r.SentTime != nil && !r.SentTime.Before(midnight) {
				sentToday++
			}
		}
		if sentToday >= settings.MaxNotificationsPerDay {
			return GateDailyCap, false
		}
	}

	return "", true
}

func (s *NotificationService) deliver(ctx context.Context, n model.NotificationRecord, at *time.Time) error {
	channel, sound := delivery.ChannelFor(n.Priority)

	data := map[string]any{
		"notification_id": n.ID,
		"type":            string(n.Type),
	}
	if n.PatternData != nil {
		data["pattern_data"] = n.PatternData
	}

	_, err := s.sink.Deliver(ctx, delivery.Request{
		ID:          n.ID,
		Title:       n.Title,
		Body:        n.Body,
		Data:        data,
		Priority:    n.Priority,
		Channel:     channel,
		Sound:       sound,
		ScheduledAt: at,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.DeliveryFailures.WithLabelValues(string(n.Type)).Inc()
		}
		s.logger.Error("failed to deliver notification",
			zap.Error(err),
			zap.String("notification_id", n.ID),
			zap.String("type", string(n.Type)),
		)
		return err
	}

	if s.metrics != nil {
		s.metrics.NotificationsDispatched.WithLabelValues(string(n.Type)).Inc()
	}
	s.logger.Info("notification dispatched",
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("priority", string(n.Priority)),
		zap.String("channel", channel),
	)
	return nil
}

func (s *NotificationService) suppressed(t model.NotificationType, gate string) {
	if s.metrics != nil {
		s.metrics.NotificationsSuppressed.WithLabelValues(string(t), gate).Inc()
	}
	s.logger.Info("notification suppressed",
		zap.String("type", string(t)),
		zap.String("gate", gate),
	)
}

func (s *NotificationService) audit(ctx context.Context, op audit.OperationType, resource audit.ResourceType, id string) {
	recordAudit(ctx, s.auditor, op, resource, id, s.logger)
}

func recordAudit(ctx context.Context, auditor Auditor, op audit.OperationType, resource audit.ResourceType, id string, logger *zap.Logger) {
	if auditor == nil {
		return
	}

	var err error
	switch op {
	case audit.OperationCreate:
		err = auditor.LogCreate(ctx, resource, id)
	case audit.OperationUpdate:
		err = auditor.LogUpdate(ctx, resource, id)
	case audit.OperationDelete:
		err = auditor.LogDelete(ctx, resource, id)
	}
	if err != nil {
		logger.Warn("failed to write audit entry", zap.Error(err))
	}
}

func newNotificationID() string {
	return "notif_" + uuid.NewString()
}

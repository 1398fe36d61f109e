package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"go.uber.org/zap"
)

const (
	notificationsKey        = "migrainauts/notifications"
	notificationSettingsKey = "migrainauts/notification_settings"
)

// NotificationRepository persists the notification center as one serialized
// collection, newest first. Every save overwrites the whole collection.
type NotificationRepository struct {
	store  KeyValueStore
	logger *zap.Logger
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(store KeyValueStore, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		store:  store,
		logger: logger,
	}
}

// LoadAll returns every stored notification; a store with no collection yields none
func (r *NotificationRepository) LoadAll(ctx context.Context) ([]model.NotificationRecord, error) {
	data, err := r.store.Get(ctx, notificationsKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []model.NotificationRecord{}, nil
		}
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}

	var records []model.NotificationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		r.logger.Error("failed to decode notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	if records == nil {
		records = []model.NotificationRecord{}
	}

	return records, nil
}

// SaveAll replaces the stored collection with records
func (r *NotificationRepository) SaveAll(ctx context.Context, records []model.NotificationRecord) error {
	if records == nil {
		records = []model.NotificationRecord{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}

	if err := r.store.Put(ctx, notificationsKey, data); err != nil {
		return fmt.Errorf("failed to save notifications: %w", err)
	}

	r.logger.Debug("notifications saved", zap.Int("count", len(records)))
	return nil
}

// SettingsRepository persists NotificationSettings
type SettingsRepository struct {
	store  KeyValueStore
	logger *zap.Logger
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(store KeyValueStore, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{
		store:  store,
		logger: logger,
	}
}

// Load returns the stored settings, or ErrNotFound when none were saved yet
func (r *SettingsRepository) Load(ctx context.Context) (*model.NotificationSettings, error) {
	data, err := r.store.Get(ctx, notificationSettingsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification settings: %w", err)
	}

	var settings model.NotificationSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		r.logger.Error("failed to decode notification settings", zap.Error(err))
		return nil, fmt.Errorf("failed to decode notification settings: %w", err)
	}

	return &settings, nil
}

// Save stores settings
func (r *SettingsRepository) Save(ctx context.Context, settings model.NotificationSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode notification settings: %w", err)
	}

	if err := r.store.Put(ctx, notificationSettingsKey, data); err != nil {
		return fmt.Errorf("failed to save notification settings: %w", err)
	}

	return nil
}

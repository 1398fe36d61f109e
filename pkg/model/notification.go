package model

import "time"

// NotificationType represents the kind of notification
type NotificationType string

const (
	NotificationPredictiveWarning     NotificationType = "predictive_warning"
	NotificationEarlyPattern          NotificationType = "early_pattern"
	NotificationPositiveReinforcement NotificationType = "positive_reinforcement"
	NotificationCheckIn               NotificationType = "check_in"
	NotificationTrackingReminder      NotificationType = "tracking_reminder"
	NotificationWeatherWarning        NotificationType = "weather_warning"
)

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationPredictiveWarning, NotificationEarlyPattern, NotificationPositiveReinforcement,
		NotificationCheckIn, NotificationTrackingReminder, NotificationWeatherWarning:
		return true
	}
	return false
}

// NotificationPriority represents how urgently a notification is presented
type NotificationPriority string

const (
	PriorityLow      NotificationPriority = "low"
	PriorityMedium   NotificationPriority = "medium"
	PriorityHigh     NotificationPriority = "high"
	PriorityCritical NotificationPriority = "critical"
)

// ActionType marks how a suggested action is presented
type ActionType string

const (
	ActionPrimary   ActionType = "primary"
	ActionSecondary ActionType = "secondary"
	ActionDismiss   ActionType = "dismiss"
)

// NotificationAction is a suggested action attached to a notification
type NotificationAction struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Icon  string     `json:"icon,omitempty"`
	Type  ActionType `json:"type"`
}

// TimelineItem is one step of a day timeline shown with a notification
type TimelineItem struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
	IsNormal bool   `json:"is_normal"`
}

// TriggerState reports whether a named risk factor is active
type TriggerState struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// NotificationDetails carries the explanation behind a notification
type NotificationDetails struct {
	Explanation string               `json:"explanation"`
	Confidence  float64              `json:"confidence"`
	DataPoints  []string             `json:"data_points"`
	Timeline    []TimelineItem       `json:"timeline,omitempty"`
	Triggers    []TriggerState       `json:"triggers,omitempty"`
	Actions     []NotificationAction `json:"actions,omitempty"`
}

// PatternData records which pattern produced a notification
type PatternData struct {
	DayOfWeek     string   `json:"day_of_week,omitempty"`
	TimeOfDay     string   `json:"time_of_day,omitempty"`
	ActivityLevel string   `json:"activity_level,omitempty"`
	Factors       []string `json:"factors"`
}

// NotificationRecord is a notification as stored in the notification center.
// Only Read is ever mutated after creation.
type NotificationRecord struct {
	ID            string               `json:"id"`
	Type          NotificationType     `json:"type"`
	Priority      NotificationPriority `json:"priority"`
	Title         string               `json:"title"`
	Body          string               `json:"body"`
	ScheduledTime *time.Time           `json:"scheduled_time,omitempty"`
	SentTime      *time.Time           `json:"sent_time,omitempty"`
	Read          bool                 `json:"read"`
	Details       *NotificationDetails `json:"details,omitempty"`
	PatternData   *PatternData         `json:"pattern_data,omitempty"`
}

// NotificationSettings is the process-wide notification configuration
type NotificationSettings struct {
	Enabled               bool `json:"enabled"`
	PredictiveWarnings    bool `json:"predictive_warnings"`
	EarlyPatterns         bool `json:"early_patterns"`
	PositiveReinforcement bool `json:"positive_reinforcement"`
	CheckInReminders      bool `json:"check_in_reminders"`
	TrackingReminders     bool `json:"tracking_reminders"`
	WeatherWarnings       bool `json:"weather_warnings"`

	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start,omitempty"` // HH:MM
	QuietHoursEnd     string `json:"quiet_hours_end,omitempty"`   // HH:MM

	CheckInFrequency       int `json:"check_in_frequency"` // 1-3 per day
	MaxNotificationsPerDay int `json:"max_notifications_per_day"`
}

// DefaultNotificationSettings returns the settings used before any are saved
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:                true,
		PredictiveWarnings:     true,
		EarlyPatterns:          true,
		PositiveReinforcement:  true,
		CheckInReminders:       true,
		TrackingReminders:      true,
		WeatherWarnings:        true,
		QuietHoursEnabled:      false,
		CheckInFrequency:       2,
		MaxNotificationsPerDay: 10,
	}
}

// TypeEnabled returns the per-type toggle for t
func (s NotificationSettings) TypeEnabled(t NotificationType) bool {
	switch t {
	case NotificationPredictiveWarning:
		return s.PredictiveWarnings
	case NotificationEarlyPattern:
		return s.EarlyPatterns
	case NotificationPositiveReinforcement:
		return s.PositiveReinforcement
	case NotificationCheckIn:
		return s.CheckInReminders
	case NotificationTrackingReminder:
		return s.TrackingReminders
	case NotificationWeatherWarning:
		return s.WeatherWarnings
	default:
		return true
	}
}

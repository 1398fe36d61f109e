package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/delivery"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notification(t model.NotificationType, p model.NotificationPriority) model.NotificationRecord {
	return model.NotificationRecord{Type: t, Priority: p, Title: "title", Body: "body"}
}

func TestNotificationService_SendRecordsAndDelivers(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	record, err := f.service.Send(ctx, notification(model.NotificationPredictiveWarning, model.PriorityHigh))
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Read)
	require.NotNil(t, record.SentTime)
	assert.True(t, record.SentTime.Equal(saturdayNoon))

	stored, err := f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, record.ID, stored[0].ID)

	requests := f.sink.delivered()
	require.Len(t, requests, 1)
	assert.Equal(t, record.ID, requests[0].ID)
	assert.Equal(t, delivery.ChannelHighPriority, requests[0].Channel)
	assert.True(t, requests[0].Sound)
	assert.Nil(t, requests[0].ScheduledAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsDispatched.WithLabelValues("predictive_warning")))
}

func TestNotificationService_NewestFirst(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	first, err := f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
	require.NoError(t, err)
	second, err := f.service.Send(ctx, notification(model.NotificationTrackingReminder, model.PriorityLow))
	require.NoError(t, err)

	stored, err := f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, second.ID, stored[0].ID)
	assert.Equal(t, first.ID, stored[1].ID)
}

func TestNotificationService_Gates(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		settings func(*model.NotificationSettings)
		nType    model.NotificationType
		gate     string
	}{
		{
			name:     "disabled globally",
			now:      saturdayNoon,
			settings: func(s *model.NotificationSettings) { s.Enabled = false },
			nType:    model.NotificationPredictiveWarning,
			gate:     GateDisabled,
		},
		{
			name: "inside quiet hours",
			now:  time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC),
			settings: func(s *model.NotificationSettings) {
				s.QuietHoursEnabled, s.QuietHoursStart, s.QuietHoursEnd = true, "12:00", "14:00"
			},
			nType: model.NotificationEarlyPattern,
			gate:  GateQuietHours,
		},
		{
			name:     "type toggled off",
			now:      saturdayNoon,
			settings: func(s *model.NotificationSettings) { s.EarlyPatterns = false },
			nType:    model.NotificationEarlyPattern,
			gate:     GateTypeDisabled,
		},
		{
			name:     "predictive warnings toggled off",
			now:      saturdayNoon,
			settings: func(s *model.NotificationSettings) { s.PredictiveWarnings = false },
			nType:    model.NotificationPredictiveWarning,
			gate:     GateTypeDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNotificationFixture(tt.now)
			settings := model.DefaultNotificationSettings()
			tt.settings(&settings)
			require.NoError(t, f.service.SaveSettings(context.Background(), settings))

			record, err := f.service.Send(context.Background(), notification(tt.nType, model.PriorityMedium))
			require.NoError(t, err)
			assert.Nil(t, record)
			assert.Empty(t, f.sink.delivered())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsSuppressed.WithLabelValues(string(tt.nType), tt.gate)))

			stored, err := f.service.GetAllNotifications(context.Background())
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}

func TestNotificationService_QuietHours(t *testing.T) {
	quiet := func(start, end string) model.NotificationSettings {
		s := model.DefaultNotificationSettings()
		s.QuietHoursEnabled, s.QuietHoursStart, s.QuietHoursEnd = true, start, end
		return s
	}

	tests := []struct {
		name     string
		clock    [2]int
		settings model.NotificationSettings
		nType    model.NotificationType
		sent     bool
	}{
		{"start is inclusive", [2]int{12, 0}, quiet("12:00", "14:00"), model.NotificationCheckIn, false},
		{"end is exclusive", [2]int{14, 0}, quiet("12:00", "14:00"), model.NotificationCheckIn, true},
		{"before window", [2]int{11, 59}, quiet("12:00", "14:00"), model.NotificationCheckIn, true},
		{"predictive warning bypasses", [2]int{13, 0}, quiet("12:00", "14:00"), model.NotificationPredictiveWarning, true},
		// string comparison never matches a window that wraps past midnight
		{"wrapping window at 23:00", [2]int{23, 0}, quiet("22:00", "07:00"), model.NotificationCheckIn, true},
		{"wrapping window at 03:00", [2]int{3, 0}, quiet("22:00", "07:00"), model.NotificationCheckIn, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 10, 17, tt.clock[0], tt.clock[1], 0, 0, time.UTC)
			f := newNotificationFixture(now)
			require.NoError(t, f.service.SaveSettings(context.Background(), tt.settings))

			record, err := f.service.Send(context.Background(), notification(tt.nType, model.PriorityMedium))
			require.NoError(t, err)
			assert.Equal(t, tt.sent, record != nil)
		})
	}
}

func TestNotificationService_DailyCap(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	settings := model.DefaultNotificationSettings()
	settings.MaxNotificationsPerDay = 2
	require.NoError(t, f.service.SaveSettings(ctx, settings))

	// one sent yesterday does not count
	yesterday := saturdayNoon.AddDate(0, 0, -1)
	_, err := f.service.RecordDelivered(ctx, model.NotificationRecord{ID: "old", Type: model.NotificationCheckIn, SentTime: &yesterday})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		record, err := f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
		require.NoError(t, err)
		require.NotNil(t, record)
	}

	record, err := f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
	require.NoError(t, err)
	assert.Nil(t, record, "third notification of the day should hit the cap")

	record, err = f.service.Send(ctx, notification(model.NotificationPredictiveWarning, model.PriorityHigh))
	require.NoError(t, err)
	assert.NotNil(t, record, "predictive warnings are exempt from the cap")
}

func TestNotificationService_DeliveryFailureKeepsRecord(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	f.sink.deliverErr = errors.New("gateway down")
	ctx := context.Background()

	record, err := f.service.Send(ctx, notification(model.NotificationEarlyPattern, model.PriorityMedium))
	require.NoError(t, err)
	require.NotNil(t, record)

	stored, err := f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DeliveryFailures.WithLabelValues("early_pattern")))
}

func TestNotificationService_SaveFailureLeavesNoPartialState(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	first, err := f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
	require.NoError(t, err)

	f.store.failPut = true
	_, err = f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Len(t, f.sink.delivered(), 1, "an unrecorded notification is not delivered")

	f.store.failPut = false
	stored, err := f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, first.ID, stored[0].ID)
}

func TestNotificationService_ReadState(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	a, err := f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
	require.NoError(t, err)
	_, err = f.service.Send(ctx, notification(model.NotificationTrackingReminder, model.PriorityLow))
	require.NoError(t, err)

	count, err := f.service.GetUnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, f.service.MarkAsRead(ctx, a.ID))
	count, err = f.service.GetUnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := f.service.GetNotification(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	assert.ErrorIs(t, f.service.MarkAsRead(ctx, "missing"), ErrNotificationNotFound)
	_, err = f.service.GetNotification(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	require.NoError(t, f.service.MarkAllAsRead(ctx))
	count, err = f.service.GetUnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNotificationService_DeleteAndClear(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	a, err := f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
	require.NoError(t, err)
	b, err := f.service.Send(ctx, notification(model.NotificationCheckIn, model.PriorityMedium))
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteNotification(ctx, a.ID))
	stored, err := f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)
	assert.Equal(t, []string{a.ID}, f.sink.cancelled)

	// a scheduled notification is not stored yet but is still cancelled
	require.NoError(t, f.service.DeleteNotification(ctx, "scheduled-1"))
	assert.Equal(t, []string{a.ID, "scheduled-1"}, f.sink.cancelled)

	require.NoError(t, f.service.ClearAll(ctx))
	stored, err = f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, 1, f.sink.cancelAll)
}

func TestNotificationService_ScheduleAndRecordDelivered(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()
	at := saturdayNoon.Add(2 * time.Hour)

	id, err := f.service.Schedule(ctx, notification(model.NotificationCheckIn, model.PriorityMedium), at)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stored, err := f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored, "scheduled notifications are recorded on delivery")

	requests := f.sink.delivered()
	require.Len(t, requests, 1)
	require.NotNil(t, requests[0].ScheduledAt)
	assert.True(t, requests[0].ScheduledAt.Equal(at))
	assert.Equal(t, delivery.ChannelDefault, requests[0].Channel)

	n := notification(model.NotificationCheckIn, model.PriorityMedium)
	n.ID = id
	for i := 0; i < 2; i++ {
		_, err = f.service.RecordDelivered(ctx, n)
		require.NoError(t, err)
	}

	stored, err = f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].ID)
	assert.NotNil(t, stored[0].SentTime)
}

func TestNotificationService_SchedulePastTimeSendsNow(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	id, err := f.service.Schedule(ctx, notification(model.NotificationCheckIn, model.PriorityLow), saturdayNoon.Add(-time.Minute))
	require.NoError(t, err)

	stored, err := f.service.GetAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].ID)
	assert.Equal(t, delivery.ChannelLowPriority, f.sink.delivered()[0].Channel)
}

func TestNotificationService_Settings(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	require.NoError(t, f.service.LoadSettings(ctx))
	assert.Equal(t, model.DefaultNotificationSettings(), f.service.GetSettings())

	updated := model.DefaultNotificationSettings()
	updated.CheckInFrequency = 3
	updated.QuietHoursEnabled, updated.QuietHoursStart, updated.QuietHoursEnd = true, "22:00", "07:00"
	require.NoError(t, f.service.SaveSettings(ctx, updated))

	// a fresh service picks the persisted settings up
	reloaded := NewNotificationService(f.records, f.service.settings, f.sink, nil, nil, time.UTC, f.service.logger)
	require.NoError(t, reloaded.LoadSettings(ctx))
	assert.Equal(t, updated, reloaded.GetSettings())
}

func TestNotificationService_SettingsSaveFailureKeepsMemory(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	updated := model.DefaultNotificationSettings()
	updated.Enabled = false

	f.store.failPut = true
	err := f.service.SaveSettings(ctx, updated)
	require.Error(t, err)
	assert.False(t, f.service.GetSettings().Enabled)
}

func TestNotificationService_LoadSettingsFailureKeepsDefaults(t *testing.T) {
	f := newNotificationFixture(saturdayNoon)
	f.store.failGet = true

	err := f.service.LoadSettings(context.Background())
	require.Error(t, err)
	assert.Equal(t, model.DefaultNotificationSettings(), f.service.GetSettings())
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.NotificationSettings)
		wantErr bool
	}{
		{"defaults", func(s *model.NotificationSettings) {}, false},
		{"frequency zero", func(s *model.NotificationSettings) { s.CheckInFrequency = 0 }, true},
		{"frequency four", func(s *model.NotificationSettings) { s.CheckInFrequency = 4 }, true},
		{"negative cap", func(s *model.NotificationSettings) { s.MaxNotificationsPerDay = -1 }, true},
		{"unlimited cap", func(s *model.NotificationSettings) { s.MaxNotificationsPerDay = 0 }, false},
		{"bad quiet start", func(s *model.NotificationSettings) {
			s.QuietHoursEnabled, s.QuietHoursStart, s.QuietHoursEnd = true, "7:00", "09:00"
		}, true},
		{"bad quiet end", func(s *model.NotificationSettings) {
			s.QuietHoursEnabled, s.QuietHoursStart, s.QuietHoursEnd = true, "07:00", "24:00"
		}, true},
		{"quiet hours off ignores times", func(s *model.NotificationSettings) {
			s.QuietHoursStart = "garbage"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.DefaultNotificationSettings()
			tt.mutate(&s)
			err := ValidateSettings(s)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestProperty_AtMostOnePredictiveWarningPerDay verifies repeated checks on one day warn once
func TestProperty_AtMostOnePredictiveWarningPerDay(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	migraines, days := saturdayAfternoonHistory()
	today := dayWith(date(2026, 10, 17), model.AllRisk(), nil)

	properties.Property("one predictive warning regardless of invocation count", prop.ForAll(
		func(minutes []int) bool {
			f := newNotificationFixture(saturdayNoon)
			detector := newDetector(f.service, saturdayNoon)
			patterns := detector.AnalyzePatterns(migraines, days)

			for _, m := range minutes {
				// every invocation lands inside the afternoon warning window
				now := time.Date(2026, 10, 17, 12, m, 0, 0, time.UTC)
				detector.now = fixedClock(now)
				f.service.now = fixedClock(now)
				if _, err := detector.CheckForPatterns(context.Background(), today, patterns, migraines); err != nil {
					return false
				}
			}

			stored, err := f.service.GetAllNotifications(context.Background())
			if err != nil {
				return false
			}
			warnings := 0
			for _, r := range stored {
				if r.Type == model.NotificationPredictiveWarning {
					warnings++
				}
			}
			return warnings == 1
		},
		gen.SliceOfN(6, gen.IntRange(0, 59)),
	))

	properties.TestingRun(t)
}

func TestPredictiveWarning_AlreadyRecordedThisMorning(t *testing.T) {
	migraines, days := saturdayAfternoonHistory()
	f := newNotificationFixture(saturdayNoon)
	ctx := context.Background()

	nine := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	_, err := f.service.RecordDelivered(ctx, model.NotificationRecord{
		ID: "earlier", Type: model.NotificationPredictiveWarning, Priority: model.PriorityHigh, SentTime: &nine,
	})
	require.NoError(t, err)

	detector := newDetector(f.service, saturdayNoon)
	record, err := detector.CheckForPatterns(ctx, dayWith(date(2026, 10, 17), model.AllRisk(), nil), detector.AnalyzePatterns(migraines, days), migraines)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, f.sink.delivered())
}

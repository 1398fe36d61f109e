package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/boswellbenjamin/migrainauts/internal/delivery"
	"github.com/boswellbenjamin/migrainauts/internal/metrics"
	"github.com/boswellbenjamin/migrainauts/internal/repository"
	"github.com/boswellbenjamin/migrainauts/pkg/model"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// saturdayNoon is a Saturday in the afternoon bucket
var saturdayNoon = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// entriesFor builds tracking entries that produce exactly the given conditions
func entriesFor(day time.Time, c model.ConditionSet) model.TrackingEntries {
	meta := model.EntryMeta{Date: day, Tracked: true}
	var entries model.TrackingEntries
	if !c.LowActivity {
		entries = append(entries, &model.ActivityEntry{EntryMeta: meta, Value: "walk"})
	}
	if !c.PoorSleep {
		entries = append(entries, &model.SleepEntry{EntryMeta: meta, Hours: floatPtr(8)})
	}
	if !c.LowWater {
		entries = append(entries, &model.WaterEntry{EntryMeta: meta, Glasses: intPtr(8)})
	}
	if !c.HighStress {
		entries = append(entries, &model.StressEntry{EntryMeta: meta, Level: model.StressLow})
	}
	return entries
}

func dayWith(day time.Time, c model.ConditionSet, migraine *model.MigraineEvent) model.DayRecord {
	entries := entriesFor(day, c)
	return model.DayRecord{
		Date:         day,
		HasMigraine:  migraine != nil,
		Migraine:     migraine,
		Entries:      entries,
		TrackedCount: len(entries),
	}
}

// saturdayAfternoonHistory has five Saturday-afternoon migraines on days
// with low activity, poor sleep and low water but no high stress
func saturdayAfternoonHistory() ([]model.MigraineEvent, []model.DayRecord) {
	conditions := model.ConditionSet{LowActivity: true, PoorSleep: true, LowWater: true, HighStress: false}

	var migraines []model.MigraineEvent
	var days []model.DayRecord
	for week := 1; week <= 5; week++ {
		d := saturdayNoon.AddDate(0, 0, -7*week)
		d = date(d.Year(), d.Month(), d.Day())
		m := model.MigraineEvent{
			ID:        "m-" + d.Format("0102"),
			Date:      d,
			StartTime: "14:30",
			Severity:  model.SeverityModerate,
		}
		migraines = append(migraines, m)
		days = append(days, dayWith(d, conditions, &migraines[len(migraines)-1]))
	}
	return migraines, days
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n model.NotificationRecord) (*model.NotificationRecord, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationRecord), args.Error(1)
}

func (m *MockNotifier) HasSentSince(ctx context.Context, t model.NotificationType, since time.Time) (bool, error) {
	args := m.Called(ctx, t, since)
	return args.Bool(0), args.Error(1)
}

// recordingSink captures delivery requests
type recordingSink struct {
	mu         sync.Mutex
	requests   []delivery.Request
	cancelled  []string
	cancelAll  int
	deliverErr error
}

func (s *recordingSink) Deliver(_ context.Context, req delivery.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliverErr != nil {
		return "", s.deliverErr
	}
	s.requests = append(s.requests, req)
	return req.ID, nil
}

func (s *recordingSink) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
	return nil
}

func (s *recordingSink) CancelAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAll++
	return nil
}

func (s *recordingSink) delivered() []delivery.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.Request(nil), s.requests...)
}

// failingStore wraps a KeyValueStore and fails writes on demand
type failingStore struct {
	repository.KeyValueStore
	failPut bool
	failGet bool
}

var errStoreDown = errors.New("store unavailable")

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.failGet {
		return nil, errStoreDown
	}
	return s.KeyValueStore.Get(ctx, key)
}

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if s.failPut {
		return errStoreDown
	}
	return s.KeyValueStore.Put(ctx, key, value)
}

type notificationFixture struct {
	service *NotificationService
	store   *failingStore
	records *repository.NotificationRepository
	sink    *recordingSink
	metrics *metrics.Metrics
}

func newNotificationFixture(now time.Time) *notificationFixture {
	logger := zap.NewNop()
	store := &failingStore{KeyValueStore: repository.NewMemoryKeyValueStore(logger)}
	records := repository.NewNotificationRepository(store, logger)
	settings := repository.NewSettingsRepository(store, logger)
	sink := &recordingSink{}
	m := metrics.New()

	svc := NewNotificationService(records, settings, sink, nil, m, time.UTC, logger)
	svc.now = fixedClock(now)

	return &notificationFixture{
		service: svc,
		store:   store,
		records: records,
		sink:    sink,
		metrics: m,
	}
}

func newDetector(notifier Notifier, now time.Time) *PatternDetectionService {
	d := NewPatternDetectionService(notifier, DefaultPatternThresholds(), time.UTC, zap.NewNop())
	d.now = fixedClock(now)
	return d
}
